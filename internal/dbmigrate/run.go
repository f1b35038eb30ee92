package dbmigrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrations embed.FS

// Migrate runs a goose command (up|status|down) against an open database.
// driver is "sqlite" or "postgres".
func Migrate(ctx context.Context, db *sql.DB, driver, command string, logger *zap.Logger) error {
	dialect, dir, err := dialectFor(driver)
	if err != nil {
		return err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger.Named("migrate").Sugar()})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, dir); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	return nil
}

// Run opens dsn with the driver's sql driver and runs command.
func Run(ctx context.Context, command, driver, dsn string, logger *zap.Logger) error {
	if dsn == "" {
		return fmt.Errorf("database DSN is empty")
	}

	sqlDriver := "pgx"
	if driver == "sqlite" {
		sqlDriver = "sqlite"
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return Migrate(ctx, db, driver, command, logger)
}

// SQLiteDSN turns a file path into a modernc DSN that enables foreign keys,
// WAL and a busy timeout on every connection.
func SQLiteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func dialectFor(driver string) (dialect, dir string, err error) {
	switch driver {
	case "sqlite":
		return "sqlite3", "migrations/sqlite", nil
	case "postgres":
		return "postgres", "migrations/postgres", nil
	default:
		return "", "", fmt.Errorf("unsupported migration driver %q", driver)
	}
}

type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Infof(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Fatalf(strings.TrimSpace(format), v...)
}
