package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joltcab/console/internal/config"
)

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}

	var (
		baseURL string
		backend string
		force   bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath(flags)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if baseURL != "" {
				cfg.API.BaseURL = baseURL
			}
			if backend != "" {
				cfg.Storage.Backend = backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL")
	initCmd.Flags().StringVar(&backend, "storage", "", "token storage: keyring, sqlite or memory")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPrinter(flags.output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath(flags))
			if err != nil {
				return err
			}
			// Tables make little sense for nested config.
			if p.format == formatTable {
				p.format = formatYAML
			}
			return p.print(cfg, nil)
		},
	}

	cmd.AddCommand(initCmd, show)
	return cmd
}

func configPath(flags *globalFlags) string {
	if flags.configPath != "" {
		return flags.configPath
	}
	return config.DefaultConfigPath()
}
