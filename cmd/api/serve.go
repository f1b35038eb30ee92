package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fdg312/sourdough-hub/internal/config"
	"github.com/fdg312/sourdough-hub/internal/httpserver"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the reminder dispatcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort > 0 {
			cfg.Port = servePort
		}

		printStartupBanner(cfg)
		if err := validateProductionConfig(cfg); err != nil {
			return err
		}

		srv, err := httpserver.New(ctx, cfg, zap.L())
		if err != nil {
			return err
		}
		defer srv.Close()

		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from PORT)")
	rootCmd.AddCommand(serveCmd)
}

// printStartupBanner logs the resolved configuration once. Secrets are
// only reported as set or not set.
func printStartupBanner(cfg *config.Config) {
	log := zap.L().Named("startup")

	log.Info("Sourdough Hub API",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.Strings("cors_origins", cfg.CORSAllowedOrigins),
		zap.Int("rate_limit_rps", cfg.RateLimitRPS),
	)
	log.Info("storage",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("sqlite_path", config.NonEmptyOrDash(cfg.Storage.SQLitePath)),
		zap.String("database_url", config.SetOrNot(cfg.Storage.DatabaseURL)),
		zap.Bool("migrations_on_startup", cfg.Storage.RunMigrationsOnStartup),
	)

	blobFields := []zap.Field{zap.String("mode", cfg.Blob.Mode), zap.String("local_dir", config.NonEmptyOrDash(cfg.Blob.LocalDir))}
	if cfg.Blob.Mode == config.BlobModeS3 || cfg.Blob.Mode == config.BlobModeAuto {
		blobFields = append(blobFields, zap.String("s3", cfg.Blob.S3.DiagnosticsSummary()))
	}
	log.Info("blob", blobFields...)

	log.Info("push",
		zap.String("mode", cfg.Push.Mode),
		zap.String("vapid_public_key", config.SetOrNot(cfg.Push.VAPIDPublicKey)),
		zap.String("vapid_private_key", config.SetOrNot(cfg.Push.VAPIDPrivateKey)),
		zap.String("vapid_subject", config.NonEmptyOrDash(cfg.Push.VAPIDSubject)),
		zap.Int("ttl_seconds", cfg.Push.TTLSeconds),
	)
	log.Info("reminders",
		zap.Bool("dispatcher_enabled", cfg.Reminders.DispatcherEnabled),
		zap.Duration("dispatch_interval", cfg.Reminders.DispatchInterval),
		zap.Int("max_active", cfg.Reminders.MaxActive),
	)
}

// validateProductionConfig rejects configurations that would fail at the
// first request instead of at startup.
func validateProductionConfig(cfg *config.Config) error {
	if cfg.Blob.Mode == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			return fmt.Errorf("blob: BLOB_MODE=s3 but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if cfg.Push.Mode == config.PushModeWebPush {
		if missing := cfg.Push.MissingVAPID(); len(missing) > 0 {
			return fmt.Errorf("push: PUSH_MODE=webpush but VAPID config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if cfg.IsProduction() {
		if cfg.Storage.Driver == config.StorageMemory {
			return fmt.Errorf("storage: STORAGE_DRIVER=memory is not allowed in production")
		}
		if cfg.Blob.Mode == config.BlobModeMemory {
			return fmt.Errorf("blob: BLOB_MODE=memory is not allowed in production")
		}
		if cfg.Push.Mode != config.PushModeWebPush {
			zap.L().Warn("PUSH_MODE is not webpush in production; reminders will only be logged")
		}
	}
	return nil
}
