package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fdg312/sourdough-hub/internal/config"
	"github.com/fdg312/sourdough-hub/internal/dbmigrate"
)

var rootCmd = &cobra.Command{
	Use:       "migrate [up|status|down]",
	Short:     "Apply database migrations for the configured STORAGE_DRIVER",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "status", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = zap.L().Sync() }()

		driver, dsn, source, err := dbmigrate.SelectTarget(cfg)
		if err != nil {
			return err
		}

		command := args[0]
		zap.L().Info("migrate", zap.String("command", command), zap.String("driver", driver), zap.String("using", source))
		if err := dbmigrate.Run(cmd.Context(), command, driver, dsn, zap.L()); err != nil {
			return err
		}
		zap.L().Info("migrate completed", zap.String("command", command))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
