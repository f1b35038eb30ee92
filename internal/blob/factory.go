package blob

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appcfg "github.com/fdg312/sourdough-hub/internal/config"
)

// NewBlobStore builds a blob store using mode memory|local|s3|auto.
// auto uses S3 when it is fully configured and the local directory otherwise.
func NewBlobStore(ctx context.Context, cfg appcfg.BlobConfig, logger *zap.Logger) (Store, string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("blob")

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = appcfg.BlobModeLocal
	}

	switch mode {
	case appcfg.BlobModeMemory:
		log.Info("mode=memory")
		return NewMemoryStore(), appcfg.BlobModeMemory, nil

	case appcfg.BlobModeLocal:
		store, err := NewFSStore(cfg.LocalDir)
		if err != nil {
			return nil, "", err
		}
		log.Info("mode=local (forced)", zap.String("dir", cfg.LocalDir))
		return store, appcfg.BlobModeLocal, nil

	case appcfg.BlobModeAuto:
		if !cfg.S3.IsConfigured() {
			level, code, msg := cfg.S3.Diagnostics()
			fields := []zap.Field{zap.String("code", code), zap.String("summary", cfg.S3.DiagnosticsSummary())}
			if level == "warn" {
				log.Warn(msg, fields...)
			} else {
				log.Info(msg, fields...)
			}
			return localFallback(cfg, log, "mode=local (auto, S3 not configured)")
		}

		store, err := NewS3Store(ctx, cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
		if err != nil {
			log.Warn("s3 init failed, fallback=local", zap.Error(err))
			return localFallback(cfg, log, "mode=local (auto, S3 init failed)")
		}

		log.Info("mode=s3 (auto, configured)", zap.String("summary", cfg.S3.DiagnosticsSummary()))
		return store, appcfg.BlobModeS3, nil

	case appcfg.BlobModeS3:
		if !cfg.S3.IsConfigured() {
			missing := cfg.S3.MissingRequired()
			log.Error("s3 config incomplete", zap.String("code", "s3_config_incomplete"), zap.Strings("missing", missing))
			return nil, "", fmt.Errorf("BLOB_MODE=s3 requested but missing required config: %s", strings.Join(missing, ", "))
		}

		store, err := NewS3Store(ctx, cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey)
		if err != nil {
			return nil, "", fmt.Errorf("BLOB_MODE=s3 init failed: %w", err)
		}

		log.Info("mode=s3 (forced)", zap.String("summary", cfg.S3.DiagnosticsSummary()))
		return store, appcfg.BlobModeS3, nil

	default:
		return nil, "", fmt.Errorf("unsupported blob mode: %s", mode)
	}
}

func localFallback(cfg appcfg.BlobConfig, log *zap.Logger, msg string) (Store, string, error) {
	store, err := NewFSStore(cfg.LocalDir)
	if err != nil {
		return nil, "", err
	}
	log.Info(msg, zap.String("dir", cfg.LocalDir))
	return store, appcfg.BlobModeLocal, nil
}
