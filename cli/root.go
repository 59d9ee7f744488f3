package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"yellowpages-backend/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	APIURL     string
	Verbose    bool

	Settings *Settings
	Logger   zerolog.Logger
}

// NewRootCommand creates the root command for vendorctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vendorctl",
		Short: "vendorctl - vendor directory ops tool",
		Long:  "Operational tooling for the vendor directory API: seeding, smoke tests, GitHub sync and admin tokens.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := LoadSettings(opts.ConfigPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-url") {
				settings.APIURL = opts.APIURL
			}
			opts.Settings = settings

			level := "info"
			if opts.Verbose {
				level = "debug"
			}
			opts.Logger = logger.New(level, "development", cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (yaml)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "vendor API base URL including /api")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewSmokeCommand(opts))
	cmd.AddCommand(NewCompareCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
