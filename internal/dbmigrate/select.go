package dbmigrate

import (
	"fmt"

	"github.com/fdg312/sourdough-hub/internal/config"
)

// SelectTarget picks the migration driver and DSN from the storage config.
func SelectTarget(cfg *config.Config) (driver string, dsn string, source string, err error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		if cfg.Storage.DatabaseURL == "" {
			return "", "", "", fmt.Errorf("DATABASE_URL is required for STORAGE_DRIVER=postgres")
		}
		return "postgres", cfg.Storage.DatabaseURL, "DATABASE_URL", nil
	case config.StorageSQLite:
		if cfg.Storage.SQLitePath == "" {
			return "", "", "", fmt.Errorf("SQLITE_DB_PATH is required for STORAGE_DRIVER=sqlite")
		}
		return "sqlite", cfg.Storage.SQLitePath, "SQLITE_DB_PATH", nil
	default:
		return "", "", "", fmt.Errorf("STORAGE_DRIVER=%s has no migrations", cfg.Storage.Driver)
	}
}
