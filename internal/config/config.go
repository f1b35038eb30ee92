package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

const (
	BlobModeMemory = "memory"
	BlobModeLocal  = "local"
	BlobModeS3     = "s3"
	BlobModeAuto   = "auto"

	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"

	PushModeLog     = "log"
	PushModeWebPush = "webpush"
)

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) MissingRequired() []string {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "S3_REGION")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

func (c S3Config) Diagnostics() (level string, code string, msg string) {
	allEmpty := strings.TrimSpace(c.Endpoint) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Bucket) == "" &&
		strings.TrimSpace(c.AccessKeyID) == "" &&
		strings.TrimSpace(c.SecretAccessKey) == ""

	if allEmpty {
		return "info", "s3_not_configured", "not configured (all empty)"
	}

	missing := c.MissingRequired()
	if len(missing) > 0 {
		return "warn", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}

	return "info", "s3_ready", "ready"
}

// DiagnosticsSummary returns a detailed summary for logging (no secrets)
func (c S3Config) DiagnosticsSummary() string {
	return fmt.Sprintf("endpoint=%s region=%s bucket=%s prefix=%s access_key_id=%s secret_access_key=%s",
		NonEmptyOrDash(c.Endpoint),
		NonEmptyOrDash(c.Region),
		NonEmptyOrDash(c.Bucket),
		NonEmptyOrDash(c.Prefix),
		SetOrNot(c.AccessKeyID),
		SetOrNot(c.SecretAccessKey),
	)
}

type BlobConfig struct {
	Mode     string // memory|local|s3|auto
	LocalDir string
	S3       S3Config
}

type LogConfig struct {
	Level  string
	Format string // json|console
}

type StorageConfig struct {
	Driver                 string // memory|sqlite|postgres
	SQLitePath             string
	DatabaseURL            string
	RunMigrationsOnStartup bool
}

type PushConfig struct {
	Mode            string // log|webpush
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	TTLSeconds      int
}

// MissingVAPID lists the VAPID settings webpush mode cannot run without.
func (c PushConfig) MissingVAPID() []string {
	var missing []string
	if strings.TrimSpace(c.VAPIDPublicKey) == "" {
		missing = append(missing, "VAPID_PUBLIC_KEY")
	}
	if strings.TrimSpace(c.VAPIDPrivateKey) == "" {
		missing = append(missing, "VAPID_PRIVATE_KEY")
	}
	if strings.TrimSpace(c.VAPIDSubject) == "" {
		missing = append(missing, "VAPID_SUBJECT")
	}
	return missing
}

type RemindersConfig struct {
	DispatchInterval  time.Duration
	DispatcherEnabled bool
	MaxActive         int
}

type Config struct {
	Env  string // local | staging | production
	Port int
	Log  LogConfig

	Storage StorageConfig

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	RateLimitRPS   int
	RateLimitBurst int

	Blob      BlobConfig
	Push      PushConfig
	Reminders RemindersConfig

	// Warnings collects fallbacks taken while loading, logged once the logger exists.
	Warnings []string
}

// IsProduction reports whether debug-only routes must stay closed.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "local")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("STORAGE_DRIVER", StorageSQLite)
	v.SetDefault("SQLITE_DB_PATH", "data/sourdough.db")
	v.SetDefault("RUN_MIGRATIONS_ON_STARTUP", true)
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 0)
	v.SetDefault("BLOB_MODE", BlobModeLocal)
	v.SetDefault("BLOB_LOCAL_DIR", "data/blobs")
	v.SetDefault("S3_PREFIX", "sourdough")
	v.SetDefault("PUSH_MODE", PushModeLog)
	v.SetDefault("PUSH_TTL_SECONDS", 3600)
	v.SetDefault("DISPATCH_INTERVAL", "5m")
	v.SetDefault("DISPATCHER_ENABLED", true)
	v.SetDefault("REMINDERS_MAX_ACTIVE", 10)

	cfg := &Config{}

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	if env == "" {
		env = "local"
	}
	cfg.Env = env

	cfg.Port = v.GetInt("PORT")
	if cfg.Port <= 0 {
		return nil, eris.Errorf("config: invalid PORT %q", v.GetString("PORT"))
	}

	cfg.Log = LogConfig{
		Level:  strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		Format: strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
	}

	cfg.Storage = StorageConfig{
		Driver:                 cfg.oneOf("STORAGE_DRIVER", v.GetString("STORAGE_DRIVER"), StorageSQLite, StorageMemory, StorageSQLite, StoragePostgres),
		SQLitePath:             strings.TrimSpace(v.GetString("SQLITE_DB_PATH")),
		DatabaseURL:            strings.TrimSpace(v.GetString("DATABASE_URL")),
		RunMigrationsOnStartup: v.GetBool("RUN_MIGRATIONS_ON_STARTUP"),
	}

	cfg.CORSAllowedOrigins = parseCORSOrigins(v.GetString("CORS_ALLOWED_ORIGINS"), env)
	cfg.CORSAllowCredentials = v.GetBool("CORS_ALLOW_CREDENTIALS")

	cfg.RateLimitRPS = v.GetInt("RATE_LIMIT_RPS")
	cfg.RateLimitBurst = v.GetInt("RATE_LIMIT_BURST")

	cfg.Blob = BlobConfig{
		Mode:     cfg.oneOf("BLOB_MODE", v.GetString("BLOB_MODE"), BlobModeLocal, BlobModeMemory, BlobModeLocal, BlobModeS3, BlobModeAuto),
		LocalDir: strings.TrimSpace(v.GetString("BLOB_LOCAL_DIR")),
		S3: S3Config{
			Endpoint:        strings.TrimSpace(v.GetString("S3_ENDPOINT")),
			Region:          strings.TrimSpace(v.GetString("S3_REGION")),
			Bucket:          strings.TrimSpace(v.GetString("S3_BUCKET")),
			Prefix:          strings.TrimSpace(v.GetString("S3_PREFIX")),
			AccessKeyID:     strings.TrimSpace(v.GetString("S3_ACCESS_KEY_ID")),
			SecretAccessKey: strings.TrimSpace(v.GetString("S3_SECRET_ACCESS_KEY")),
		},
	}

	cfg.Push = PushConfig{
		Mode:            cfg.oneOf("PUSH_MODE", v.GetString("PUSH_MODE"), PushModeLog, PushModeLog, PushModeWebPush),
		VAPIDPublicKey:  strings.TrimSpace(v.GetString("VAPID_PUBLIC_KEY")),
		VAPIDPrivateKey: strings.TrimSpace(v.GetString("VAPID_PRIVATE_KEY")),
		VAPIDSubject:    strings.TrimSpace(v.GetString("VAPID_SUBJECT")),
		TTLSeconds:      v.GetInt("PUSH_TTL_SECONDS"),
	}
	if cfg.Push.TTLSeconds <= 0 {
		cfg.Push.TTLSeconds = 3600
	}

	interval := v.GetDuration("DISPATCH_INTERVAL")
	if interval <= 0 {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("invalid DISPATCH_INTERVAL=%q, fallback to 5m", v.GetString("DISPATCH_INTERVAL")))
		interval = 5 * time.Minute
	}
	maxActive := v.GetInt("REMINDERS_MAX_ACTIVE")
	if maxActive <= 0 {
		maxActive = 10
	}
	cfg.Reminders = RemindersConfig{
		DispatchInterval:  interval,
		DispatcherEnabled: v.GetBool("DISPATCHER_ENABLED"),
		MaxActive:         maxActive,
	}

	return cfg, nil
}

// oneOf lowercases raw and checks it against allowed, falling back to def with a warning.
func (c *Config) oneOf(key, raw, def string, allowed ...string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	if mode == "" {
		return def
	}
	for _, a := range allowed {
		if mode == a {
			return mode
		}
	}
	c.Warnings = append(c.Warnings, fmt.Sprintf("unknown %s=%q, fallback to %s", key, mode, def))
	return def
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000"}
		}
		return nil
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// NonEmptyOrDash renders empty settings as "-" in logs.
func NonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

// SetOrNot masks a secret for logging.
func SetOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}
