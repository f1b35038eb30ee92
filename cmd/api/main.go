package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fdg312/sourdough-hub/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Sourdough Hub API server",
	Long:  "Serves the bread calculator, saved recipes, feeding reminders and the guestbook.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		for _, w := range cfg.Warnings {
			zap.L().Warn("config fallback", zap.String("detail", w))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	// Running without a subcommand serves.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
