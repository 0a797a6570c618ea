package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/api"
	"github.com/joltcab/console/internal/maps"
	"github.com/joltcab/console/internal/model"
)

func newSettingsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Remote configuration and integration checks",
	}

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List settings",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			all, err := e.api.Settings.All(cmd.Context(), category)
			if err != nil {
				return err
			}
			return e.printer.print(all, func() string { return settingsTable(all) })
		}),
	}
	list.Flags().StringVar(&category, "category", "", "only settings in this category")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Show one setting",
		Args:  cobra.ExactArgs(1),
		RunE: authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			s, err := e.api.Settings.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return e.printer.print(s, func() string { return s.String() })
		}),
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update a setting (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			s, err := e.api.Settings.Update(cmd.Context(), args[0], parseSettingValue(args[1]))
			if err != nil {
				return err
			}
			return e.printer.print(s, func() string {
				return fmt.Sprintf("%s = %s", s.Key, s.String())
			})
		}),
	}

	mapsCmd := &cobra.Command{
		Use:   "maps",
		Short: "Show which map provider the client will use",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			provider, cfg, err := maps.Resolve(cmd.Context(), e.api.Settings)
			if err != nil {
				return err
			}
			out := mapsReport{
				Provider:         provider,
				MapboxPrimary:    cfg.MapboxPrimary,
				MapboxToken:      cfg.MapboxToken != "",
				GoogleConfigured: cfg.GoogleConfigured,
			}
			return e.printer.print(out, func() string {
				t := newTable("FIELD", "VALUE")
				t.Row("provider", string(out.Provider))
				t.Row("mapbox primary", fmt.Sprintf("%t", out.MapboxPrimary))
				t.Row("mapbox token", fmt.Sprintf("%t", out.MapboxToken))
				t.Row("google configured", fmt.Sprintf("%t", out.GoogleConfigured))
				return t.String()
			})
		}),
	}

	setup := &cobra.Command{
		Use:   "setup",
		Short: "Show the admin setup wizard progress",
		Args:  cobra.NoArgs,
		RunE: authed(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			st, err := e.api.Setup.Status(cmd.Context())
			if err != nil {
				return err
			}
			return e.printer.print(st, func() string { return setupTable(st) })
		}),
	}

	cmd.AddCommand(list, get, set, mapsCmd, setup, newIntegrationTestCommand(flags))
	return cmd
}

// mapsReport never carries the token itself.
type mapsReport struct {
	Provider         maps.Provider `json:"provider"`
	MapboxPrimary    bool          `json:"mapbox_primary"`
	MapboxToken      bool          `json:"mapbox_token_set"`
	GoogleConfigured bool          `json:"google_configured"`
}

func newIntegrationTestCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run integration checks (admin)",
	}

	run := func(check func(cmd *cobra.Command, e *env, args []string) (*model.TestResult, error)) func(*cobra.Command, []string) error {
		return authed(flags, func(cmd *cobra.Command, e *env, args []string) error {
			res, err := check(cmd, e, args)
			if err != nil && !errors.Is(err, api.ErrTestFailed) {
				return err
			}
			if perr := e.printer.print(res, func() string { return testResultLine(res) }); perr != nil {
				return perr
			}
			return err
		})
	}

	email := &cobra.Command{
		Use:   "email <address>",
		Short: "Send a test email",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, e *env, args []string) (*model.TestResult, error) {
			return e.api.Test.Email(cmd.Context(), args[0])
		}),
	}
	sms := &cobra.Command{
		Use:   "sms <phone>",
		Short: "Send a test SMS",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(cmd *cobra.Command, e *env, args []string) (*model.TestResult, error) {
			return e.api.Test.SMS(cmd.Context(), args[0])
		}),
	}
	gateway := &cobra.Command{
		Use:   "payment",
		Short: "Check the payment gateway credentials",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, e *env, _ []string) (*model.TestResult, error) {
			return e.api.Test.PaymentGateway(cmd.Context())
		}),
	}

	cmd.AddCommand(email, sms, gateway)
	return cmd
}

// parseSettingValue stores flags and numbers with their JSON type.
func parseSettingValue(s string) interface{} {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func testResultLine(r *model.TestResult) string {
	status := "OK"
	if !r.Delivered {
		status = "FAILED"
	}
	line := fmt.Sprintf("%s via %s", status, r.Provider)
	if r.Message != "" {
		line += ": " + r.Message
	}
	return line
}

func settingsTable(all []model.Setting) string {
	if len(all) == 0 {
		return "No settings."
	}
	t := newTable("KEY", "VALUE", "CATEGORY")
	for _, s := range all {
		t.Row(s.Key, s.String(), s.Category)
	}
	return t.String()
}

func setupTable(st *model.SetupStatus) string {
	t := newTable("", "STEP", "TITLE")
	for _, step := range st.Steps {
		mark := " "
		if step.Completed {
			mark = "✓"
		} else if step.Key == st.CurrentStep {
			mark = "→"
		}
		t.Row(mark, step.Key, step.Title)
	}
	return t.String()
}
