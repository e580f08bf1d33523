package cli

import (
	"context"

	"github.com/MikeBiancalana/wxctl/internal/actions"
	"github.com/MikeBiancalana/wxctl/internal/config"
	"github.com/MikeBiancalana/wxctl/internal/logger"
	"github.com/spf13/cobra"
)

// newRunner builds the action runner for a command. Tests replace it.
var newRunner = func(cmd *cobra.Command) *actions.Runner {
	r := actions.DefaultOutput()
	r.Out = cmd.OutOrStdout()
	r.Err = cmd.ErrOrStderr()
	r.OnConfig = configureLogging
	return r
}

// RootCmd is the root command for the CLI
var RootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "wxctl - weather archive database maintenance",
	Long: `Maintains the archive database of a weather station: creates it and
drops or rebuilds the daily summaries derived from the archive records.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(logger.Initialize)

	RootCmd.AddCommand(databaseCmd)
}

// configureLogging applies the logging section of the configuration file.
func configureLogging(cfg *config.Config) {
	logger.InitializeWithConfig(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	logger.Debug("Logging configured from file", "config", cfg.Path(), "level", logger.GetLevel().String())
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}
