package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("BLOB_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.RunMigrationsOnStartup)
	assert.Equal(t, BlobModeLocal, cfg.Blob.Mode)
	assert.Equal(t, PushModeLog, cfg.Push.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Reminders.DispatchInterval)
	assert.True(t, cfg.Reminders.DispatcherEnabled)
	assert.Equal(t, 10, cfg.Reminders.MaxActive)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/sourdough")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "1")
	t.Setenv("DISPATCH_INTERVAL", "30s")
	t.Setenv("REMINDERS_MAX_ACTIVE", "3")
	t.Setenv("PUSH_MODE", "webpush")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/sourdough", cfg.Storage.DatabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.CORSAllowCredentials)
	assert.Equal(t, 30*time.Second, cfg.Reminders.DispatchInterval)
	assert.Equal(t, 3, cfg.Reminders.MaxActive)
	assert.Equal(t, PushModeWebPush, cfg.Push.Mode)
	assert.ElementsMatch(t, []string{"VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY", "VAPID_SUBJECT"}, cfg.Push.MissingVAPID())
}

func TestLoadUnknownModeFallsBackWithWarning(t *testing.T) {
	t.Setenv("BLOB_MODE", "ftp")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BlobModeLocal, cfg.Blob.Mode)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "BLOB_MODE")
}

func TestS3ConfigMissingRequired(t *testing.T) {
	cfg := S3Config{Endpoint: "https://s3.example", Bucket: "bucket"}
	assert.Equal(t, []string{"S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY"}, cfg.MissingRequired())
	assert.False(t, cfg.IsConfigured())

	level, code, _ := cfg.Diagnostics()
	assert.Equal(t, "warn", level)
	assert.Equal(t, "s3_partial_config", code)

	_, code, _ = S3Config{}.Diagnostics()
	assert.Equal(t, "s3_not_configured", code)
}

func TestS3ConfigSummaryHidesSecrets(t *testing.T) {
	cfg := S3Config{
		Endpoint:        "https://s3.example",
		Region:          "eu-central-1",
		Bucket:          "bucket",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "very-secret",
	}
	require.True(t, cfg.IsConfigured())

	summary := cfg.DiagnosticsSummary()
	assert.NotContains(t, summary, "AKIAEXAMPLE")
	assert.NotContains(t, summary, "very-secret")
	assert.Contains(t, summary, "access_key_id=set")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
