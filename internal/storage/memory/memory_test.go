package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/sourdough-hub/internal/storage"
)

func TestSubscriptionUpsertAndCascade(t *testing.T) {
	m := New()
	ctx := context.Background()

	a, err := m.UpsertSubscription(ctx, "https://push/a", "p1", "a1")
	require.NoError(t, err)
	again, err := m.UpsertSubscription(ctx, "https://push/a", "p2", "a2")
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, "p2", again.P256dh)

	b, err := m.UpsertSubscription(ctx, "https://push/b", "p", "a")
	require.NoError(t, err)

	at := time.Now().Add(time.Hour)
	require.NoError(t, m.CreateReminder(ctx, &storage.Reminder{SubscriptionID: a.ID, ScheduledTime: at}))
	require.NoError(t, m.CreateReminder(ctx, &storage.Reminder{SubscriptionID: b.ID, ScheduledTime: at}))

	ok, err := m.DeleteSubscriptionByEndpoint(ctx, "https://push/a")
	require.NoError(t, err)
	assert.True(t, ok)

	listA, err := m.ListReminders(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, listA)

	listB, err := m.ListReminders(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, listB, 1)

	latest, found, err := m.LatestSubscription(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, b.ID, latest.ID)
}

func TestDueRemindersOrdered(t *testing.T) {
	m := New()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	sub, err := m.UpsertSubscription(ctx, "https://push/a", "p", "a")
	require.NoError(t, err)
	for _, at := range []time.Time{now, now.Add(-2 * time.Hour), now.Add(time.Hour)} {
		require.NoError(t, m.CreateReminder(ctx, &storage.Reminder{SubscriptionID: sub.ID, ScheduledTime: at}))
	}

	n, err := m.CountFutureReminders(ctx, sub.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	due, err := m.DueReminders(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.True(t, due[0].ScheduledTime.Before(due[1].ScheduledTime))
	assert.Equal(t, "https://push/a", due[0].Endpoint)

	require.NoError(t, m.RescheduleReminder(ctx, due[0].ID, now.Add(24*time.Hour)))
	require.NoError(t, m.DeleteReminderByID(ctx, due[1].ID))

	due, err = m.DueReminders(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDeleteReminderOwnership(t *testing.T) {
	m := New()
	ctx := context.Background()

	r := &storage.Reminder{SubscriptionID: 1, ScheduledTime: time.Now()}
	require.NoError(t, m.CreateReminder(ctx, r))

	ok, err := m.DeleteReminder(ctx, r.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := m.DeleteRemindersForSubscription(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLatestEntries(t *testing.T) {
	m := New()
	ctx := context.Background()

	for _, text := range []string{"a", "b", "c"} {
		_, err := m.CreateEntry(ctx, text)
		require.NoError(t, err)
	}

	latest, err := m.LatestEntries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "c", latest[0].Text)
	assert.Equal(t, "b", latest[1].Text)
}
