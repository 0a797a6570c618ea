package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/model"
)

func newStatsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Admin dashboard numbers",
	}

	drivers := &cobra.Command{
		Use:   "drivers",
		Short: "Driver fleet summary",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			st, err := e.api.Stats.Drivers(cmd.Context())
			if err != nil {
				return err
			}
			return e.printer.print(st, func() string {
				t := newTable("DRIVERS", "COUNT")
				t.Row("total", fmt.Sprint(st.Total))
				t.Row("online", fmt.Sprint(st.Online))
				t.Row("on trip", fmt.Sprint(st.OnTrip))
				t.Row("pending approval", fmt.Sprint(st.PendingApproval))
				t.Row("suspended", fmt.Sprint(st.Suspended))
				return t.String()
			})
		}),
	}

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Today's headline numbers",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			st, err := e.api.Stats.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return e.printer.print(st, func() string {
				t := newTable("TODAY", "VALUE")
				t.Row("trips", fmt.Sprint(st.TripsToday))
				t.Row("cancelled", fmt.Sprint(st.CancelledToday))
				t.Row("revenue", money(st.RevenueToday, st.Currency))
				t.Row("active drivers", fmt.Sprint(st.ActiveDrivers))
				t.Row("active passengers", fmt.Sprint(st.ActivePassengers))
				return t.String()
			})
		}),
	}

	cmd.AddCommand(drivers, dashboard)
	return cmd
}

func newUsersCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Admin user directory",
	}

	var role string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			var (
				users []model.User
				err   error
			)
			if role != "" {
				users, err = e.api.Users.ByRole(cmd.Context(), role)
			} else {
				users, err = e.api.Users.List(cmd.Context(), api.Params{})
			}
			if err != nil {
				return err
			}
			return e.printer.print(users, func() string { return usersTable(users) })
		}),
	}
	list.Flags().StringVar(&role, "role", "", "only users with this role")

	status := &cobra.Command{
		Use:   "status <id> <active|suspended|pending>",
		Short: "Change a user's account status",
		Args:  cobra.ExactArgs(2),
		RunE: authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			u, err := e.api.Users.SetStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return e.printer.print(u, func() string { return userTable(u) })
		}),
	}

	cmd.AddCommand(list, status)
	return cmd
}

func usersTable(users []model.User) string {
	if len(users) == 0 {
		return "No users."
	}
	t := newTable("ID", "NAME", "EMAIL", "ROLE", "STATUS")
	for _, u := range users {
		t.Row(u.ID, u.FullName, u.Email, u.Role, u.Status)
	}
	return t.String()
}
