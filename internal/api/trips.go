package api

import (
	"context"
	"net/http"

	"github.com/joltcab/console/internal/model"
)

// TripService covers booking, fares and the trip lifecycle.
type TripService struct {
	*Resource[model.Trip]
}

// NewTripService creates the trips facade.
func NewTripService(c *Client) *TripService {
	return &TripService{Resource: NewResource[model.Trip](c, "/trips", "trips", "trip")}
}

// Book creates a trip request.
func (s *TripService) Book(ctx context.Context, req model.TripRequest) (*model.Trip, error) {
	return s.Create(ctx, req)
}

// CalculateFare asks the backend for a price quote.
func (s *TripService) CalculateFare(
	ctx context.Context,
	req model.FareRequest,
) (*model.FareEstimate, error) {
	return fetchOne[model.FareEstimate](ctx, s.client, http.MethodPost,
		s.path+"/calculate-fare", req, "fare")
}

// Cancel cancels trip id with an optional reason.
func (s *TripService) Cancel(ctx context.Context, id, reason string) (*model.Trip, error) {
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	return fetchOne[model.Trip](ctx, s.client, http.MethodPost,
		s.itemPath(id)+"/cancel", body, "trip")
}

// Rate scores a completed trip from 1 to 5.
func (s *TripService) Rate(ctx context.Context, id string, rating int, comment string) error {
	_, err := call(ctx, s.client, http.MethodPost, s.itemPath(id)+"/rate",
		map[string]interface{}{"rating": rating, "comment": comment})
	return err
}

// Active returns the caller's trips that are not completed or cancelled.
func (s *TripService) Active(ctx context.Context) ([]model.Trip, error) {
	return fetchList[model.Trip](ctx, s.client, s.path+"/active", "trips", nil)
}
