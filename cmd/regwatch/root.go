package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abk1969/ai-act-assistant-sub000/internal/app"
	"github.com/abk1969/ai-act-assistant-sub000/internal/config"
	"github.com/abk1969/ai-act-assistant-sub000/internal/logging"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:          "regwatch",
	Short:        "Regulatory update intelligence pipeline",
	Long:         "regwatch collects AI regulation updates, scores them against your organization and turns them into action plans.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (defaults to $REGWATCH_CONFIG)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "regwatch %s (commit: %s)\n", version, commit)
	},
}

func loadConfig() config.Config {
	if flagConfig != "" {
		return config.LoadFile(flagConfig)
	}
	return config.Load()
}

// openApp loads configuration and builds the application. A non-empty
// reportPath overrides the configured report destination.
func openApp(ctx context.Context, reportPath string) (*app.Application, *slog.Logger, error) {
	cfg := loadConfig()
	if reportPath != "" {
		cfg.Report.Path = reportPath
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, logger, fmt.Errorf("starting application: %w", err)
	}
	return application, logger, nil
}
