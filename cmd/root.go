// Package cmd defines and implements the CLI commands for the catalog
// crawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"catalog-crawler/internal/config"
	"catalog-crawler/internal/logging"
	"catalog-crawler/internal/metrics"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

// newRootCmd creates and configures the root command. Configuration and the
// logger are built once here and shared by every subcommand.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog-crawler",
		Short: "An incremental crawler for a retail product catalog.",
		Long: `catalog-crawler walks an upstream catalog API page by page, normalizes
every product and store record through a declarative field engine, and
reconciles the result against the previously stored catalog. Crawls
checkpoint after every job and can resume from where they stopped.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			metrics.Init()
			return nil
		},

		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); defaults apply when omitted")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newReconcileCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		if logger != nil {
			logger.Error("command failed", zap.Error(err))
			_ = logger.Sync()
		}
		os.Exit(1)
	}
}
