package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file without sending any request",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "config", cfgPath, "error", err)
		return err
	}

	slog.Info("Configuration is valid",
		"config", cfgPath,
		"model", cfg.Model.Name,
		"max_requests_per_minute", cfg.Scheduler.MaxRequestsPerMinute,
		"max_cost_per_minute", cfg.Scheduler.MaxCostPerMinute,
		"batch_token_ceiling", cfg.Batching.TokenCeiling(cfg.Model),
	)
	return nil
}
