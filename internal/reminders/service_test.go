package reminders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/sourdough-hub/internal/storage/memory"
)

var testNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.MemoryStorage) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, 0)
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func subscribe(t *testing.T, svc *Service, endpoint string) {
	t.Helper()
	_, err := svc.Subscribe(context.Background(), endpoint, "p256dh", "auth")
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }

func iso(t time.Time) string { return t.Format(time.RFC3339) }

func TestSubscribe_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Subscribe(context.Background(), "", "p", "a")
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Subscribe(context.Background(), "https://push/1", "", "a")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSchedule_OneShot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "https://push/1")

	r, err := svc.Schedule(ctx, ScheduleRequest{
		Endpoint:      "https://push/1",
		ScheduledTime: "2026-03-01T10:00:00.000Z",
		EndDate:       ptr("2026-03-05T10:00:00Z"),
	})
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Nil(t, r.EndDate, "one-shot reminders ignore endDate")
	assert.Nil(t, r.Message)

	sub, _, err := store.GetSubscriptionByEndpoint(ctx, "https://push/1")
	require.NoError(t, err)
	list, err := store.ListReminders(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), list[0].ScheduledTime)
}

func TestSchedule_RequiredFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Schedule(ctx, ScheduleRequest{ScheduledTime: iso(testNow)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: "tomorrow"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSchedule_UnknownSubscription(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Schedule(context.Background(), ScheduleRequest{Endpoint: "https://push/x", ScheduledTime: iso(testNow)})
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestSchedule_Message(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "https://push/1")

	r, err := svc.Schedule(ctx, ScheduleRequest{
		Endpoint:      "https://push/1",
		ScheduledTime: iso(testNow.Add(time.Hour)),
		Message:       ptr("  <b>Feed</b> me & go  "),
	})
	require.NoError(t, err)
	require.NotNil(t, r.Message)
	assert.Equal(t, "Feed me & go", *r.Message)

	r, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:      "https://push/1",
		ScheduledTime: iso(testNow.Add(time.Hour)),
		Message:       ptr("<i></i>   "),
	})
	require.NoError(t, err)
	assert.Nil(t, r.Message, "empty after sanitizing falls back to the default")

	_, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:      "https://push/1",
		ScheduledTime: iso(testNow.Add(time.Hour)),
		Message:       ptr(strings.Repeat("é", MaxMessageLength)),
	})
	require.NoError(t, err)

	_, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:      "https://push/1",
		ScheduledTime: iso(testNow.Add(time.Hour)),
		Message:       ptr(strings.Repeat("é", MaxMessageLength+1)),
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSchedule_Recurrence(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "https://push/1")
	at := testNow.Add(time.Hour)

	for _, hours := range []int{0, 1, 5, 36, 169} {
		_, err := svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(at), RecurrenceIntervalHours: ptr(hours)})
		assert.ErrorIs(t, err, ErrInvalidInterval, "interval %d", hours)
	}

	r, err := svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(at), RecurrenceIntervalHours: ptr(24)})
	require.NoError(t, err)
	require.NotNil(t, r.EndDate)
	assert.Equal(t, testNow.AddDate(1, 0, 0), *r.EndDate, "defaults to one year out")

	r, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:                "https://push/1",
		ScheduledTime:           iso(at),
		RecurrenceIntervalHours: ptr(12),
		EndDate:                 ptr(iso(testNow.AddDate(3, 0, 0))),
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.AddDate(1, 0, 0), *r.EndDate, "capped at one year out")

	r, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:                "https://push/1",
		ScheduledTime:           iso(at),
		RecurrenceIntervalHours: ptr(168),
		EndDate:                 ptr(iso(at.Add(30 * 24 * time.Hour))),
	})
	require.NoError(t, err)
	assert.Equal(t, at.Add(30*24*time.Hour), *r.EndDate)

	_, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:                "https://push/1",
		ScheduledTime:           iso(at),
		RecurrenceIntervalHours: ptr(4),
		EndDate:                 ptr(iso(at)),
	})
	assert.ErrorIs(t, err, ErrInvalidEndDate)

	_, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:                "https://push/1",
		ScheduledTime:           iso(at),
		RecurrenceIntervalHours: ptr(4),
		EndDate:                 ptr("next week"),
	})
	assert.ErrorIs(t, err, ErrInvalidEndDate)
}

func TestSchedule_Limit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "https://push/1")

	_, err := svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(testNow.Add(-time.Hour))})
	require.NoError(t, err)

	for i := 0; i < DefaultMaxActive; i++ {
		_, err := svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(testNow.Add(time.Duration(i+1) * time.Hour))})
		require.NoError(t, err, "reminder %d", i)
	}

	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(testNow.Add(48 * time.Hour))})
	assert.ErrorIs(t, err, ErrReminderLimit)

	subscribe(t, svc, "https://push/2")
	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/2", ScheduledTime: iso(testNow.Add(48 * time.Hour))})
	assert.NoError(t, err, "limit is per subscription")
}

func TestCancel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "https://push/1")
	subscribe(t, svc, "https://push/2")

	r, err := svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(testNow.Add(time.Hour))})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Cancel(ctx, "", r.ID), ErrInvalidRequest)
	assert.ErrorIs(t, svc.Cancel(ctx, "https://push/x", r.ID), ErrSubscriptionNotFound)
	assert.ErrorIs(t, svc.Cancel(ctx, "https://push/2", r.ID), ErrReminderNotFound)
	require.NoError(t, svc.Cancel(ctx, "https://push/1", r.ID))
	assert.ErrorIs(t, svc.Cancel(ctx, "https://push/1", r.ID), ErrReminderNotFound)
}

func TestUnsubscribeRemovesReminders(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	subscribe(t, svc, "https://push/1")

	_, err := svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(testNow.Add(time.Hour))})
	require.NoError(t, err)

	require.NoError(t, svc.Unsubscribe(ctx, "https://push/1"))
	require.NoError(t, svc.Unsubscribe(ctx, "https://push/1"))

	_, err = svc.List(ctx, "https://push/1")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestDebugDispatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.DebugDispatch(ctx)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	subscribe(t, svc, "https://push/1")
	subscribe(t, svc, "https://push/2")
	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/2", ScheduledTime: iso(testNow.Add(time.Hour))})
	require.NoError(t, err)

	resp, err := svc.DebugDispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://push/2", resp.Endpoint)
	assert.Equal(t, int64(1), resp.Cleared)
	assert.Equal(t, testNow.Add(-time.Minute), resp.ScheduledTime)

	list, err := svc.List(ctx, "https://push/2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].ScheduledTime.After(testNow))
}
