package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	output     string
	verbose    bool
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the joltcab command tree reading from in and
// writing to out and errOut.
func NewRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "joltcab",
		Short: "JoltCab ride-hailing client",
		Long: `joltcab talks to the JoltCab backend: sign in, inspect trips,
wallet and settings, follow live notifications, or open the console.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	// Disable completion command
	root.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"config file path (default is $HOME/.config/joltcab/config.yaml)")
	root.PersistentFlags().StringVarP(&flags.output, "output", "o", formatTable,
		"output format: table, json or yaml")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"enable debug logging")

	root.AddCommand(
		newLoginCommand(flags),
		newLogoutCommand(flags),
		newMeCommand(flags),
		newRegisterCommand(flags),
		newOAuthCommand(flags),
		newPasswordCommand(flags),
		newTripsCommand(flags),
		newWalletCommand(flags),
		newSettingsCommand(flags),
		newStatsCommand(flags),
		newUsersCommand(flags),
		newNotificationsCommand(flags),
		newWatchCommand(flags),
		newConsoleCommand(flags),
		newConfigCommand(flags),
	)

	return root
}
