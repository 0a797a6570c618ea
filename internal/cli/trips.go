package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/model"
)

func newTripsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Inspect, price and manage trips",
	}

	var status string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List trips, newest first",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			params := api.Params{}
			if status != "" {
				params["status"] = status
			}
			if limit > 0 {
				params["limit"] = strconv.Itoa(limit)
			}
			trips, err := e.api.Trips.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return e.printer.print(trips, func() string { return tripsTable(trips) })
		}),
	}
	list.Flags().StringVar(&status, "status", "", "only trips in this status")
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of trips")

	active := &cobra.Command{
		Use:   "active",
		Short: "List trips that are not finished",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			trips, err := e.api.Trips.Active(cmd.Context())
			if err != nil {
				return err
			}
			return e.printer.print(trips, func() string { return tripsTable(trips) })
		}),
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one trip",
		Args:  cobra.ExactArgs(1),
		RunE: authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			trip, err := e.api.Trips.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return e.printer.print(trip, func() string { return tripTable(trip) })
		}),
	}

	var fareReq model.FareRequest
	var pickup, dropoff string
	fare := &cobra.Command{
		Use:   "fare",
		Short: "Quote a fare between two points",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			var err error
			if fareReq.Pickup, err = parseLocation(pickup); err != nil {
				return fmt.Errorf("--pickup: %w", err)
			}
			if fareReq.Dropoff, err = parseLocation(dropoff); err != nil {
				return fmt.Errorf("--dropoff: %w", err)
			}
			est, err := e.api.Trips.CalculateFare(cmd.Context(), fareReq)
			if err != nil {
				return err
			}
			return e.printer.print(est, func() string { return fareTable(est) })
		}),
	}
	fare.Flags().StringVar(&pickup, "pickup", "", `pickup as "lat,lng" or "lat,lng,address"`)
	fare.Flags().StringVar(&dropoff, "dropoff", "", `dropoff as "lat,lng" or "lat,lng,address"`)
	fare.Flags().StringVar(&fareReq.VehicleType, "vehicle", "economy", "vehicle type")
	_ = fare.MarkFlagRequired("pickup")
	_ = fare.MarkFlagRequired("dropoff")

	var reason string
	cancel := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a trip",
		Args:  cobra.ExactArgs(1),
		RunE: authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			trip, err := e.api.Trips.Cancel(cmd.Context(), args[0], reason)
			if err != nil {
				return err
			}
			return e.printer.print(trip, func() string { return tripTable(trip) })
		}),
	}
	cancel.Flags().StringVar(&reason, "reason", "", "cancellation reason")

	var rating int
	var comment string
	rate := &cobra.Command{
		Use:   "rate <id>",
		Short: "Rate a completed trip",
		Args:  cobra.ExactArgs(1),
		RunE: authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			if rating < 1 || rating > 5 {
				return fmt.Errorf("--rating must be between 1 and 5")
			}
			if err := e.api.Trips.Rate(cmd.Context(), args[0], rating, comment); err != nil {
				return err
			}
			e.printer.message("Thanks for rating trip %s.", args[0])
			return nil
		}),
	}
	rate.Flags().IntVar(&rating, "rating", 5, "stars from 1 to 5")
	rate.Flags().StringVar(&comment, "comment", "", "optional comment")

	cmd.AddCommand(list, active, get, fare, cancel, rate)
	return cmd
}

// parseLocation reads "lat,lng[,address]".
func parseLocation(s string) (model.Location, error) {
	parts := strings.SplitN(s, ",", 3)
	if len(parts) < 2 {
		return model.Location{}, fmt.Errorf("want lat,lng got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Location{}, fmt.Errorf("invalid latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Location{}, fmt.Errorf("invalid longitude %q", parts[1])
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return model.Location{}, fmt.Errorf("coordinates out of range: %s", s)
	}
	loc := model.Location{Lat: lat, Lng: lng}
	if len(parts) == 3 {
		loc.Address = strings.TrimSpace(parts[2])
	}
	return loc, nil
}
