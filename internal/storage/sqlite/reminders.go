package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fdg312/sourdough-hub/internal/storage"
)

func (s *SQLiteStorage) CreateReminder(ctx context.Context, r *storage.Reminder) error {
	const q = `
		INSERT INTO reminders (subscription_id, scheduled_time, message, recurrence_interval_hours, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`

	now := time.Now().UTC().Truncate(time.Second)
	var end any
	if r.EndDate != nil {
		end = formatTime(*r.EndDate)
	}

	if err := s.db.QueryRowContext(ctx, q,
		r.SubscriptionID,
		formatTime(r.ScheduledTime),
		r.Message,
		r.RecurrenceIntervalHours,
		end,
		formatTime(now),
	).Scan(&r.ID); err != nil {
		return eris.Wrap(err, "sqlite: create reminder")
	}

	r.ScheduledTime = r.ScheduledTime.UTC().Truncate(time.Second)
	if r.EndDate != nil {
		e := r.EndDate.UTC().Truncate(time.Second)
		r.EndDate = &e
	}
	r.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) CountFutureReminders(ctx context.Context, subscriptionID int64, now time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM reminders WHERE subscription_id = ? AND scheduled_time > ?`,
		subscriptionID, formatTime(now),
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count reminders")
	}
	return n, nil
}

const reminderColumns = `r.id, r.subscription_id, r.scheduled_time, r.message, r.recurrence_interval_hours, r.end_date, r.created_at`

func (s *SQLiteStorage) ListReminders(ctx context.Context, subscriptionID int64) ([]storage.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders r WHERE r.subscription_id = ? ORDER BY r.scheduled_time, r.id`,
		subscriptionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reminders")
	}
	defer rows.Close()

	out := make([]storage.Reminder, 0)
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list reminders")
	}
	return out, nil
}

func (s *SQLiteStorage) DeleteReminder(ctx context.Context, id, subscriptionID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ? AND subscription_id = ?`, id, subscriptionID)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete reminder")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: delete reminder")
	}
	return n > 0, nil
}

func (s *SQLiteStorage) DeleteRemindersForSubscription(ctx context.Context, subscriptionID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE subscription_id = ?`, subscriptionID)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete reminders")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete reminders")
	}
	return n, nil
}

func (s *SQLiteStorage) DueReminders(ctx context.Context, now time.Time) ([]storage.DueReminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reminderColumns+`, ps.endpoint, ps.p256dh, ps.auth
		FROM reminders r
		JOIN push_subscriptions ps ON ps.id = r.subscription_id
		WHERE r.scheduled_time <= ?
		ORDER BY r.scheduled_time, r.id`,
		formatTime(now),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: due reminders")
	}
	defer rows.Close()

	out := make([]storage.DueReminder, 0)
	for rows.Next() {
		var d storage.DueReminder
		r, err := scanReminder(rows, &d.Endpoint, &d.P256dh, &d.Auth)
		if err != nil {
			return nil, err
		}
		d.Reminder = r
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: due reminders")
	}
	return out, nil
}

func (s *SQLiteStorage) DeleteReminderByID(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id); err != nil {
		return eris.Wrap(err, "sqlite: delete reminder")
	}
	return nil
}

func (s *SQLiteStorage) RescheduleReminder(ctx context.Context, id int64, next time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE reminders SET scheduled_time = ? WHERE id = ?`, formatTime(next), id); err != nil {
		return eris.Wrap(err, "sqlite: reschedule reminder")
	}
	return nil
}

// scanReminder reads reminderColumns followed by any extra destinations.
func scanReminder(rows *sql.Rows, extra ...any) (storage.Reminder, error) {
	var (
		r         storage.Reminder
		scheduled string
		message   sql.NullString
		interval  sql.NullInt64
		end       sql.NullString
		created   string
	)
	dest := append([]any{&r.ID, &r.SubscriptionID, &scheduled, &message, &interval, &end, &created}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return storage.Reminder{}, eris.Wrap(err, "sqlite: scan reminder")
	}

	var err error
	if r.ScheduledTime, err = parseTime(scheduled); err != nil {
		return storage.Reminder{}, err
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return storage.Reminder{}, err
	}
	if message.Valid {
		m := message.String
		r.Message = &m
	}
	if interval.Valid {
		h := int(interval.Int64)
		r.RecurrenceIntervalHours = &h
	}
	if end.Valid {
		e, err := parseTime(end.String)
		if err != nil {
			return storage.Reminder{}, err
		}
		r.EndDate = &e
	}
	return r, nil
}
