// Package cli provides the command-line interface for sqlstage.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlstage/internal/cli/commands"
	"github.com/leapstack-labs/sqlstage/internal/cli/config"
	"github.com/leapstack-labs/sqlstage/internal/logging"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqlstage",
		Short: "sqlstage - Text2SQL dataset staging and database bootstrap",
		Long: `sqlstage downloads, caches and stages SQL dumps for Text2SQL benchmark
datasets, imports them into running MySQL/MariaDB engines and writes
structure-only schema snapshots for downstream evaluation tooling.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			ctx := config.NewContext(cmd.Context(), cfg)
			ctx = logging.NewContext(ctx, logging.NewLogger(cfg.Verbose))
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./sqlstage.yaml)")
	rootCmd.PersistentFlags().String("cache-dir", "", "Root of the asset cache")
	rootCmd.PersistentFlags().String("datasets-dir", "", "Directory for question-set downloads")
	rootCmd.PersistentFlags().String("state-path", "", "Path to the run-history database")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewBootstrapCommand())
	rootCmd.AddCommand(commands.NewDatasetsCommand())
	rootCmd.AddCommand(commands.NewSourcesCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit))

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
