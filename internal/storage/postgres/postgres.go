package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fdg312/sourdough-hub/internal/storage"
)

// pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStorage implements storage.Storage on a pgx pool.
type PostgresStorage struct {
	pool pool
}

var _ storage.Storage = (*PostgresStorage)(nil)

// New connects to databaseURL and checks the connection.
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStorage{pool: p}, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStorage) UpsertSubscription(ctx context.Context, endpoint, p256dh, auth string) (storage.PushSubscription, error) {
	const q = `
		INSERT INTO push_subscriptions (endpoint, p256dh, auth)
		VALUES ($1, $2, $3)
		ON CONFLICT (endpoint) DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
		RETURNING id, endpoint, p256dh, auth, created_at`

	var sub storage.PushSubscription
	err := s.pool.QueryRow(ctx, q, endpoint, p256dh, auth).
		Scan(&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt)
	if err != nil {
		return storage.PushSubscription{}, eris.Wrap(err, "postgres: upsert subscription")
	}
	return sub, nil
}

func (s *PostgresStorage) GetSubscriptionByEndpoint(ctx context.Context, endpoint string) (storage.PushSubscription, bool, error) {
	return s.oneSubscription(ctx, `SELECT id, endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE endpoint = $1`, endpoint)
}

func (s *PostgresStorage) LatestSubscription(ctx context.Context) (storage.PushSubscription, bool, error) {
	return s.oneSubscription(ctx, `SELECT id, endpoint, p256dh, auth, created_at FROM push_subscriptions ORDER BY id DESC LIMIT 1`)
}

func (s *PostgresStorage) oneSubscription(ctx context.Context, q string, args ...any) (storage.PushSubscription, bool, error) {
	var sub storage.PushSubscription
	err := s.pool.QueryRow(ctx, q, args...).
		Scan(&sub.ID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.PushSubscription{}, false, nil
	}
	if err != nil {
		return storage.PushSubscription{}, false, eris.Wrap(err, "postgres: get subscription")
	}
	return sub, true, nil
}

func (s *PostgresStorage) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	if err != nil {
		return false, eris.Wrap(err, "postgres: delete subscription")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStorage) CreateReminder(ctx context.Context, r *storage.Reminder) error {
	const q = `
		INSERT INTO reminders (subscription_id, scheduled_time, message, recurrence_interval_hours, end_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	r.ScheduledTime = r.ScheduledTime.UTC().Truncate(time.Second)
	if r.EndDate != nil {
		e := r.EndDate.UTC().Truncate(time.Second)
		r.EndDate = &e
	}

	err := s.pool.QueryRow(ctx, q, r.SubscriptionID, r.ScheduledTime, r.Message, r.RecurrenceIntervalHours, r.EndDate).
		Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: create reminder")
	}
	return nil
}

func (s *PostgresStorage) CountFutureReminders(ctx context.Context, subscriptionID int64, now time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM reminders WHERE subscription_id = $1 AND scheduled_time > $2`,
		subscriptionID, now.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count reminders")
	}
	return n, nil
}

func (s *PostgresStorage) ListReminders(ctx context.Context, subscriptionID int64) ([]storage.Reminder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, subscription_id, scheduled_time, message, recurrence_interval_hours, end_date, created_at
		FROM reminders
		WHERE subscription_id = $1
		ORDER BY scheduled_time, id`,
		subscriptionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reminders")
	}
	defer rows.Close()

	out := make([]storage.Reminder, 0)
	for rows.Next() {
		var r storage.Reminder
		if err := rows.Scan(&r.ID, &r.SubscriptionID, &r.ScheduledTime, &r.Message, &r.RecurrenceIntervalHours, &r.EndDate, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reminder")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list reminders")
	}
	return out, nil
}

func (s *PostgresStorage) DeleteReminder(ctx context.Context, id, subscriptionID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reminders WHERE id = $1 AND subscription_id = $2`, id, subscriptionID)
	if err != nil {
		return false, eris.Wrap(err, "postgres: delete reminder")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStorage) DeleteRemindersForSubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reminders WHERE subscription_id = $1`, subscriptionID)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete reminders")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStorage) DueReminders(ctx context.Context, now time.Time) ([]storage.DueReminder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.subscription_id, r.scheduled_time, r.message, r.recurrence_interval_hours, r.end_date, r.created_at,
		       ps.endpoint, ps.p256dh, ps.auth
		FROM reminders r
		JOIN push_subscriptions ps ON ps.id = r.subscription_id
		WHERE r.scheduled_time <= $1
		ORDER BY r.scheduled_time, r.id`,
		now.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: due reminders")
	}
	defer rows.Close()

	out := make([]storage.DueReminder, 0)
	for rows.Next() {
		var d storage.DueReminder
		if err := rows.Scan(
			&d.ID, &d.SubscriptionID, &d.ScheduledTime, &d.Message, &d.RecurrenceIntervalHours, &d.EndDate, &d.CreatedAt,
			&d.Endpoint, &d.P256dh, &d.Auth,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan due reminder")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: due reminders")
	}
	return out, nil
}

func (s *PostgresStorage) DeleteReminderByID(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id); err != nil {
		return eris.Wrap(err, "postgres: delete reminder")
	}
	return nil
}

func (s *PostgresStorage) RescheduleReminder(ctx context.Context, id int64, next time.Time) error {
	if _, err := s.pool.Exec(ctx, `UPDATE reminders SET scheduled_time = $1 WHERE id = $2`, next.UTC().Truncate(time.Second), id); err != nil {
		return eris.Wrap(err, "postgres: reschedule reminder")
	}
	return nil
}

func (s *PostgresStorage) CreateEntry(ctx context.Context, text string) (storage.Entry, error) {
	e := storage.Entry{Text: text}
	err := s.pool.QueryRow(ctx, `INSERT INTO entries (text) VALUES ($1) RETURNING id, created_at`, text).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return storage.Entry{}, eris.Wrap(err, "postgres: create entry")
	}
	return e, nil
}

func (s *PostgresStorage) LatestEntries(ctx context.Context, limit int) ([]storage.Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, text, created_at FROM entries ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest entries")
	}
	defer rows.Close()

	out := make([]storage.Entry, 0, limit)
	for rows.Next() {
		var e storage.Entry
		if err := rows.Scan(&e.ID, &e.Text, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: latest entries")
	}
	return out, nil
}
