package storage

import (
	"context"
	"time"
)

// PushSubscription is a browser push endpoint with its encryption keys.
type PushSubscription struct {
	ID        int64
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}

// Reminder is a scheduled push notification. RecurrenceIntervalHours nil
// means one-shot; EndDate is only meaningful for recurring reminders.
type Reminder struct {
	ID                      int64
	SubscriptionID          int64
	ScheduledTime           time.Time
	Message                 *string
	RecurrenceIntervalHours *int
	EndDate                 *time.Time
	CreatedAt               time.Time
}

// DueReminder is a reminder joined with the subscription it is delivered to.
type DueReminder struct {
	Reminder
	Endpoint string
	P256dh   string
	Auth     string
}

// Entry is a guestbook entry.
type Entry struct {
	ID        int64
	Text      string
	CreatedAt time.Time
}

// SubscriptionsStorage holds push subscriptions keyed by endpoint.
type SubscriptionsStorage interface {
	// UpsertSubscription inserts or updates keys by endpoint
	UpsertSubscription(ctx context.Context, endpoint, p256dh, auth string) (PushSubscription, error)

	// GetSubscriptionByEndpoint returns found=false when missing
	GetSubscriptionByEndpoint(ctx context.Context, endpoint string) (PushSubscription, bool, error)

	// LatestSubscription returns the most recently created subscription
	LatestSubscription(ctx context.Context) (PushSubscription, bool, error)

	// DeleteSubscriptionByEndpoint removes the subscription and, by cascade, its reminders
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) (bool, error)
}

// RemindersStorage holds scheduled reminders.
type RemindersStorage interface {
	// CreateReminder inserts r and sets its ID and CreatedAt
	CreateReminder(ctx context.Context, r *Reminder) error

	// CountFutureReminders counts reminders of a subscription scheduled after now
	CountFutureReminders(ctx context.Context, subscriptionID int64, now time.Time) (int, error)

	// ListReminders returns reminders of a subscription ordered by scheduled time
	ListReminders(ctx context.Context, subscriptionID int64) ([]Reminder, error)

	// DeleteReminder deletes a reminder only if it belongs to the subscription
	DeleteReminder(ctx context.Context, id, subscriptionID int64) (bool, error)

	// DeleteRemindersForSubscription removes every reminder of a subscription
	DeleteRemindersForSubscription(ctx context.Context, subscriptionID int64) (int64, error)

	// DueReminders returns reminders with scheduled_time <= now, oldest first
	DueReminders(ctx context.Context, now time.Time) ([]DueReminder, error)

	// DeleteReminderByID removes a fired reminder
	DeleteReminderByID(ctx context.Context, id int64) error

	// RescheduleReminder moves a recurring reminder to its next time
	RescheduleReminder(ctx context.Context, id int64, next time.Time) error
}

// EntriesStorage holds guestbook entries.
type EntriesStorage interface {
	CreateEntry(ctx context.Context, text string) (Entry, error)
	LatestEntries(ctx context.Context, limit int) ([]Entry, error)
}

// Storage is implemented by every backend (memory, sqlite, postgres).
type Storage interface {
	SubscriptionsStorage
	RemindersStorage
	EntriesStorage

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Close releases the connection
	Close() error
}
