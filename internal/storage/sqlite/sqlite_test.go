package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/sourdough-hub/internal/dbmigrate"
	"github.com/fdg312/sourdough-hub/internal/storage"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	ctx := context.Background()

	s, err := New(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, dbmigrate.Migrate(ctx, s.DB(), "sqlite", "up", nil))
	return s
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestUpsertSubscription(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first, err := s.UpsertSubscription(ctx, "https://push/1", "p1", "a1")
	require.NoError(t, err)
	second, err := s.UpsertSubscription(ctx, "https://push/1", "p2", "a2")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "p2", second.P256dh)
	assert.Equal(t, "a2", second.Auth)

	got, found, err := s.GetSubscriptionByEndpoint(ctx, "https://push/1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "p2", got.P256dh)

	_, found, err = s.GetSubscriptionByEndpoint(ctx, "https://push/none")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLatestSubscription(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, found, err := s.LatestSubscription(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.UpsertSubscription(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)
	b, err := s.UpsertSubscription(ctx, "https://push/2", "p", "a")
	require.NoError(t, err)

	latest, found, err := s.LatestSubscription(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, b.ID, latest.ID)
}

func TestReminderRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sub, err := s.UpsertSubscription(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)

	at := time.Date(2026, 5, 1, 10, 30, 15, 999, time.UTC)
	end := at.Add(7 * 24 * time.Hour)
	r := &storage.Reminder{
		SubscriptionID:          sub.ID,
		ScheduledTime:           at,
		Message:                 strPtr("Feed me"),
		RecurrenceIntervalHours: intPtr(12),
		EndDate:                 &end,
	}
	require.NoError(t, s.CreateReminder(ctx, r))
	require.NotZero(t, r.ID)

	plain := &storage.Reminder{SubscriptionID: sub.ID, ScheduledTime: at.Add(time.Hour)}
	require.NoError(t, s.CreateReminder(ctx, plain))

	list, err := s.ListReminders(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, r.ID, list[0].ID)
	assert.True(t, list[0].ScheduledTime.Equal(at.Truncate(time.Second)))
	require.NotNil(t, list[0].Message)
	assert.Equal(t, "Feed me", *list[0].Message)
	require.NotNil(t, list[0].RecurrenceIntervalHours)
	assert.Equal(t, 12, *list[0].RecurrenceIntervalHours)
	require.NotNil(t, list[0].EndDate)
	assert.True(t, list[0].EndDate.Equal(end.Truncate(time.Second)))

	assert.Nil(t, list[1].Message)
	assert.Nil(t, list[1].RecurrenceIntervalHours)
	assert.Nil(t, list[1].EndDate)
}

func TestCountAndDueReminders(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	sub, err := s.UpsertSubscription(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)

	for _, at := range []time.Time{now.Add(-time.Hour), now, now.Add(time.Hour), now.Add(2 * time.Hour)} {
		require.NoError(t, s.CreateReminder(ctx, &storage.Reminder{SubscriptionID: sub.ID, ScheduledTime: at}))
	}

	n, err := s.CountFutureReminders(ctx, sub.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	due, err := s.DueReminders(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "https://push/1", due[0].Endpoint)
	assert.Equal(t, "p", due[0].P256dh)
	assert.True(t, due[0].ScheduledTime.Before(due[1].ScheduledTime))

	require.NoError(t, s.RescheduleReminder(ctx, due[0].ID, now.Add(24*time.Hour)))
	require.NoError(t, s.DeleteReminderByID(ctx, due[1].ID))

	due, err = s.DueReminders(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDeleteReminderChecksOwnership(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	a, err := s.UpsertSubscription(ctx, "https://push/a", "p", "a")
	require.NoError(t, err)
	b, err := s.UpsertSubscription(ctx, "https://push/b", "p", "a")
	require.NoError(t, err)

	r := &storage.Reminder{SubscriptionID: a.ID, ScheduledTime: time.Now().Add(time.Hour)}
	require.NoError(t, s.CreateReminder(ctx, r))

	ok, err := s.DeleteReminder(ctx, r.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.DeleteReminder(ctx, r.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteSubscriptionCascades(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	at := time.Now().Add(time.Hour)

	a, err := s.UpsertSubscription(ctx, "https://push/a", "p", "a")
	require.NoError(t, err)
	b, err := s.UpsertSubscription(ctx, "https://push/b", "p", "a")
	require.NoError(t, err)
	require.NoError(t, s.CreateReminder(ctx, &storage.Reminder{SubscriptionID: a.ID, ScheduledTime: at}))
	require.NoError(t, s.CreateReminder(ctx, &storage.Reminder{SubscriptionID: b.ID, ScheduledTime: at}))

	ok, err := s.DeleteSubscriptionByEndpoint(ctx, "https://push/a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteSubscriptionByEndpoint(ctx, "https://push/a")
	require.NoError(t, err)
	assert.False(t, ok)

	listA, err := s.ListReminders(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, listA)

	listB, err := s.ListReminders(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, listB, 1)
}

func TestDeleteRemindersForSubscription(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	sub, err := s.UpsertSubscription(ctx, "https://push/a", "p", "a")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateReminder(ctx, &storage.Reminder{SubscriptionID: sub.ID, ScheduledTime: time.Now()}))
	}

	n, err := s.DeleteRemindersForSubscription(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestEntries(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	for _, text := range []string{"first", "second", "third"} {
		_, err := s.CreateEntry(ctx, text)
		require.NoError(t, err)
	}

	latest, err := s.LatestEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "third", latest[0].Text)
	assert.Equal(t, "second", latest[1].Text)
}

func TestEntryTextConstraint(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.CreateEntry(context.Background(), "")
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, dbmigrate.Migrate(context.Background(), s.DB(), "sqlite", "up", nil))
}
