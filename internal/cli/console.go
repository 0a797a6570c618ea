package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/app"
	appsync "github.com/joltcab/console/internal/sync"
)

func newConsoleCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the interactive terminal console",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, envOptions{logFile: true}, func(cmd *cobra.Command, e *env, _ []string) error {
			mgr := e.newRealtime()
			defer mgr.Close()

			var poller *appsync.Poller
			if !mgr.Enabled() {
				poller = e.newPoller(mgr)
			}

			model := app.New(app.Deps{
				API:      e.api,
				Session:  e.session,
				Realtime: mgr,
				Poller:   poller,
				Logger:   e.log,
			})

			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(e.in),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running console: %w", err)
			}
			return nil
		}),
	}
}
