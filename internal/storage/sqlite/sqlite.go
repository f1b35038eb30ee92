package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fdg312/sourdough-hub/internal/dbmigrate"
	"github.com/fdg312/sourdough-hub/internal/storage"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically, so "due" is a plain string comparison.
const timeLayout = "2006-01-02 15:04:05"

// SQLiteStorage is the default storage.Storage backend.
type SQLiteStorage struct {
	db *sql.DB
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// New opens (or creates) the database file at path.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbmigrate.SQLiteDSN(path))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer; pragmas are per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &SQLiteStorage{db: db}, nil
}

// DB exposes the handle for migrations.
func (s *SQLiteStorage) DB() *sql.DB { return s.db }

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, v, time.UTC)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "sqlite: parse time %q", v)
	}
	return t, nil
}

func (s *SQLiteStorage) UpsertSubscription(ctx context.Context, endpoint, p256dh, auth string) (storage.PushSubscription, error) {
	const q = `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET p256dh = excluded.p256dh, auth = excluded.auth
		RETURNING id, endpoint, p256dh, auth, created_at`

	sub, err := scanSubscription(s.db.QueryRowContext(ctx, q, endpoint, p256dh, auth, formatTime(time.Now())))
	if err != nil {
		return storage.PushSubscription{}, eris.Wrap(err, "sqlite: upsert subscription")
	}
	return sub, nil
}

func (s *SQLiteStorage) GetSubscriptionByEndpoint(ctx context.Context, endpoint string) (storage.PushSubscription, bool, error) {
	const q = `SELECT id, endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE endpoint = ?`

	sub, err := scanSubscription(s.db.QueryRowContext(ctx, q, endpoint))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.PushSubscription{}, false, nil
	}
	if err != nil {
		return storage.PushSubscription{}, false, eris.Wrap(err, "sqlite: get subscription")
	}
	return sub, true, nil
}

func (s *SQLiteStorage) LatestSubscription(ctx context.Context) (storage.PushSubscription, bool, error) {
	const q = `SELECT id, endpoint, p256dh, auth, created_at FROM push_subscriptions ORDER BY id DESC LIMIT 1`

	sub, err := scanSubscription(s.db.QueryRowContext(ctx, q))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.PushSubscription{}, false, nil
	}
	if err != nil {
		return storage.PushSubscription{}, false, eris.Wrap(err, "sqlite: latest subscription")
	}
	return sub, true, nil
}

func (s *SQLiteStorage) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete subscription")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete subscription")
	}
	return n > 0, nil
}

func scanSubscription(row *sql.Row) (storage.PushSubscription, error) {
	var (
		sub     storage.PushSubscription
		created string
	)
	if err := row.Scan(&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &created); err != nil {
		return storage.PushSubscription{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return storage.PushSubscription{}, err
	}
	sub.CreatedAt = t
	return sub, nil
}
