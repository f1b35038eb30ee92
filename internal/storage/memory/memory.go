package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/sourdough-hub/internal/storage"
)

// MemoryStorage keeps everything in maps; used for tests and STORAGE_DRIVER=memory.
type MemoryStorage struct {
	mu            sync.RWMutex
	subscriptions map[int64]storage.PushSubscription
	byEndpoint    map[string]int64
	reminders     map[int64]storage.Reminder
	entries       []storage.Entry
	nextSubID     int64
	nextRemID     int64
	nextEntryID   int64
	now           func() time.Time
}

var _ storage.Storage = (*MemoryStorage)(nil)

func New() *MemoryStorage {
	return &MemoryStorage{
		subscriptions: make(map[int64]storage.PushSubscription),
		byEndpoint:    make(map[string]int64),
		reminders:     make(map[int64]storage.Reminder),
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func (m *MemoryStorage) Ping(context.Context) error { return nil }
func (m *MemoryStorage) Close() error               { return nil }

func (m *MemoryStorage) UpsertSubscription(_ context.Context, endpoint, p256dh, auth string) (storage.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byEndpoint[endpoint]; ok {
		sub := m.subscriptions[id]
		sub.P256dh = p256dh
		sub.Auth = auth
		m.subscriptions[id] = sub
		return sub, nil
	}

	m.nextSubID++
	sub := storage.PushSubscription{
		ID:        m.nextSubID,
		Endpoint:  endpoint,
		P256dh:    p256dh,
		Auth:      auth,
		CreatedAt: m.now(),
	}
	m.subscriptions[sub.ID] = sub
	m.byEndpoint[endpoint] = sub.ID
	return sub, nil
}

func (m *MemoryStorage) GetSubscriptionByEndpoint(_ context.Context, endpoint string) (storage.PushSubscription, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEndpoint[endpoint]
	if !ok {
		return storage.PushSubscription{}, false, nil
	}
	return m.subscriptions[id], true, nil
}

func (m *MemoryStorage) LatestSubscription(context.Context) (storage.PushSubscription, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest storage.PushSubscription
	found := false
	for _, sub := range m.subscriptions {
		if !found || sub.ID > latest.ID {
			latest = sub
			found = true
		}
	}
	return latest, found, nil
}

func (m *MemoryStorage) DeleteSubscriptionByEndpoint(_ context.Context, endpoint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEndpoint[endpoint]
	if !ok {
		return false, nil
	}
	delete(m.byEndpoint, endpoint)
	delete(m.subscriptions, id)
	for rid, r := range m.reminders {
		if r.SubscriptionID == id {
			delete(m.reminders, rid)
		}
	}
	return true, nil
}

func (m *MemoryStorage) CreateReminder(_ context.Context, r *storage.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRemID++
	r.ID = m.nextRemID
	r.CreatedAt = m.now()
	r.ScheduledTime = r.ScheduledTime.UTC().Truncate(time.Second)
	if r.EndDate != nil {
		end := r.EndDate.UTC().Truncate(time.Second)
		r.EndDate = &end
	}
	m.reminders[r.ID] = *r
	return nil
}

func (m *MemoryStorage) CountFutureReminders(_ context.Context, subscriptionID int64, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.reminders {
		if r.SubscriptionID == subscriptionID && r.ScheduledTime.After(now) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStorage) ListReminders(_ context.Context, subscriptionID int64) ([]storage.Reminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.Reminder, 0)
	for _, r := range m.reminders {
		if r.SubscriptionID == subscriptionID {
			out = append(out, r)
		}
	}
	sortReminders(out)
	return out, nil
}

func (m *MemoryStorage) DeleteReminder(_ context.Context, id, subscriptionID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[id]
	if !ok || r.SubscriptionID != subscriptionID {
		return false, nil
	}
	delete(m.reminders, id)
	return true, nil
}

func (m *MemoryStorage) DeleteRemindersForSubscription(_ context.Context, subscriptionID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.reminders {
		if r.SubscriptionID == subscriptionID {
			delete(m.reminders, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStorage) DueReminders(_ context.Context, now time.Time) ([]storage.DueReminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	due := make([]storage.Reminder, 0)
	for _, r := range m.reminders {
		if !r.ScheduledTime.After(now) {
			due = append(due, r)
		}
	}
	sortReminders(due)

	out := make([]storage.DueReminder, 0, len(due))
	for _, r := range due {
		sub, ok := m.subscriptions[r.SubscriptionID]
		if !ok {
			continue
		}
		out = append(out, storage.DueReminder{
			Reminder: r,
			Endpoint: sub.Endpoint,
			P256dh:   sub.P256dh,
			Auth:     sub.Auth,
		})
	}
	return out, nil
}

func (m *MemoryStorage) DeleteReminderByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reminders, id)
	return nil
}

func (m *MemoryStorage) RescheduleReminder(_ context.Context, id int64, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[id]
	if !ok {
		return nil
	}
	r.ScheduledTime = next.UTC().Truncate(time.Second)
	m.reminders[id] = r
	return nil
}

func (m *MemoryStorage) CreateEntry(_ context.Context, text string) (storage.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextEntryID++
	e := storage.Entry{ID: m.nextEntryID, Text: text, CreatedAt: m.now()}
	m.entries = append(m.entries, e)
	return e, nil
}

func (m *MemoryStorage) LatestEntries(_ context.Context, limit int) ([]storage.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func sortReminders(rs []storage.Reminder) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].ScheduledTime.Equal(rs[j].ScheduledTime) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].ScheduledTime.Before(rs[j].ScheduledTime)
	})
}
