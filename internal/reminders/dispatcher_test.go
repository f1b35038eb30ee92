package reminders

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fdg312/sourdough-hub/internal/dbmigrate"
	"github.com/fdg312/sourdough-hub/internal/push"
	"github.com/fdg312/sourdough-hub/internal/storage"
	"github.com/fdg312/sourdough-hub/internal/storage/memory"
	"github.com/fdg312/sourdough-hub/internal/storage/sqlite"
)

type sentMessage struct {
	Endpoint string
	Payload  push.Payload
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	errs  map[string]error
	block chan struct{}
}

func (f *fakeSender) Send(_ context.Context, sub push.Subscription, payload push.Payload) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Endpoint: sub.Endpoint, Payload: payload})
	return f.errs[sub.Endpoint]
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func newSQLiteStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	ctx := context.Background()
	s, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "reminders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, dbmigrate.Migrate(ctx, s.DB(), "sqlite", "up", nil))
	return s
}

func remindersOf(t *testing.T, store storage.RemindersStorage, subID int64) []storage.Reminder {
	t.Helper()
	list, err := store.ListReminders(context.Background(), subID)
	require.NoError(t, err)
	return list
}

func TestDispatcher_OneShotIsDeleted(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	svc := NewService(store, 0)
	sender := &fakeSender{}
	d := NewDispatcher(store, sender, time.Minute, nil, zaptest.NewLogger(t))

	sub, err := svc.Subscribe(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:      "https://push/1",
		ScheduledTime: iso(time.Now().Add(-time.Hour)),
		Message:       ptr("Levain is ready"),
	})
	require.NoError(t, err)

	res := d.Tick(ctx)
	assert.Equal(t, TickResult{Due: 1, Sent: 1, Retired: 1}, res)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Levain is ready", msgs[0].Payload.Body)
	assert.Equal(t, NotificationTitle, msgs[0].Payload.Title)
	assert.Equal(t, NotificationURL, msgs[0].Payload.Data.URL)
	assert.Empty(t, remindersOf(t, store, sub.ID))
}

func TestDispatcher_DefaultMessage(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	svc := NewService(store, 0)
	sender := &fakeSender{}
	d := NewDispatcher(store, sender, time.Minute, nil, nil)

	_, err := svc.Subscribe(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(time.Now().Add(-time.Hour))})
	require.NoError(t, err)

	d.Tick(ctx)
	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultMessage, msgs[0].Payload.Body)
}

func TestDispatcher_RecurringIsAdvanced(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	svc := NewService(store, 0)
	sender := &fakeSender{}
	d := NewDispatcher(store, sender, time.Minute, nil, nil)

	now := time.Now().UTC()
	sub, err := svc.Subscribe(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:                "https://push/1",
		ScheduledTime:           iso(now.Add(-time.Hour)),
		RecurrenceIntervalHours: ptr(24),
		EndDate:                 ptr(iso(now.Add(7 * 24 * time.Hour))),
	})
	require.NoError(t, err)

	res := d.Tick(ctx)
	assert.Equal(t, 1, res.Rescheduled)

	list := remindersOf(t, store, sub.ID)
	require.Len(t, list, 1)
	assert.WithinDuration(t, now.Add(23*time.Hour), list[0].ScheduledTime, 2*time.Second)
	require.Len(t, sender.messages(), 1)
	assert.NotContains(t, sender.messages()[0].Payload.Body, FinalReminderSuffix)

	res = d.Tick(ctx)
	assert.Equal(t, TickResult{}, res, "nothing due until the next occurrence")
}

func TestDispatcher_FinalReminder(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	svc := NewService(store, 0)
	sender := &fakeSender{}
	d := NewDispatcher(store, sender, time.Minute, nil, nil)

	now := time.Now().UTC()
	sub, err := svc.Subscribe(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, ScheduleRequest{
		Endpoint:                "https://push/1",
		ScheduledTime:           iso(now.Add(-time.Hour)),
		RecurrenceIntervalHours: ptr(24),
		EndDate:                 ptr(iso(now.Add(12 * time.Hour))),
		Message:                 ptr("Bake day"),
	})
	require.NoError(t, err)

	res := d.Tick(ctx)
	assert.Equal(t, 1, res.Retired)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Bake day"+FinalReminderSuffix, msgs[0].Payload.Body)
	assert.Empty(t, remindersOf(t, store, sub.ID))
}

func TestDispatcher_GoneSubscriptionIsPruned(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	svc := NewService(store, 0)
	sender := &fakeSender{errs: map[string]error{
		"https://push/gone": &push.SendError{StatusCode: 410},
	}}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	d := NewDispatcher(store, sender, time.Minute, metrics, nil)

	past := iso(time.Now().Add(-time.Hour))
	future := iso(time.Now().Add(time.Hour))

	gone, err := svc.Subscribe(ctx, "https://push/gone", "p", "a")
	require.NoError(t, err)
	other, err := svc.Subscribe(ctx, "https://push/other", "p", "a")
	require.NoError(t, err)

	for _, at := range []string{past, future} {
		_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/gone", ScheduledTime: at})
		require.NoError(t, err)
	}
	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/other", ScheduledTime: future})
	require.NoError(t, err)

	res := d.Tick(ctx)
	assert.Equal(t, TickResult{Due: 1, Pruned: 1}, res)

	_, found, err := store.GetSubscriptionByEndpoint(ctx, "https://push/gone")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, remindersOf(t, store, gone.ID))

	_, found, err = store.GetSubscriptionByEndpoint(ctx, "https://push/other")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, remindersOf(t, store, other.ID), 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Outcomes.WithLabelValues(outcomePruned)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Ticks))
}

func TestDispatcher_TransientFailureKeepsReminder(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewService(store, 0)
	sender := &fakeSender{errs: map[string]error{
		"https://push/flaky": errors.New("connection reset"),
		"https://push/busy":  &push.SendError{StatusCode: 429},
	}}
	d := NewDispatcher(store, sender, time.Minute, nil, nil)

	past := iso(time.Now().Add(-time.Hour))
	for _, endpoint := range []string{"https://push/flaky", "https://push/busy", "https://push/ok"} {
		_, err := svc.Subscribe(ctx, endpoint, "p", "a")
		require.NoError(t, err)
		_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: endpoint, ScheduledTime: past})
		require.NoError(t, err)
	}

	res := d.Tick(ctx)
	assert.Equal(t, TickResult{Due: 3, Sent: 1, Retired: 1, Failed: 2}, res)

	due, err := store.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Len(t, due, 2, "failed reminders stay for the next tick")

	res = d.Tick(ctx)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, sender.messages(), 5)
}

func TestDispatcher_OverlappingTickIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewService(store, 0)
	sender := &fakeSender{block: make(chan struct{})}
	d := NewDispatcher(store, sender, time.Minute, nil, nil)

	_, err := svc.Subscribe(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(time.Now().Add(-time.Hour))})
	require.NoError(t, err)

	done := make(chan TickResult)
	go func() { done <- d.Tick(ctx) }()

	require.Eventually(t, func() bool { return d.running.Load() }, time.Second, time.Millisecond)
	assert.Equal(t, TickResult{Skipped: true}, d.Tick(ctx))

	close(sender.block)
	first := <-done
	assert.Equal(t, 1, first.Sent)
}

func TestDispatcher_RunTicksImmediatelyAndStops(t *testing.T) {
	store := memory.New()
	svc := NewService(store, 0)
	sender := &fakeSender{}
	d := NewDispatcher(store, sender, time.Hour, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Subscribe(ctx, "https://push/1", "p", "a")
	require.NoError(t, err)
	_, err = svc.Schedule(ctx, ScheduleRequest{Endpoint: "https://push/1", ScheduledTime: iso(time.Now().Add(-time.Minute))})
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	step := 24 * time.Hour

	assert.Equal(t, now.Add(23*time.Hour), nextOccurrence(now.Add(-time.Hour), step, now))
	assert.Equal(t, now.Add(24*time.Hour), nextOccurrence(now, step, now))
	assert.Equal(t, now.Add(12*time.Hour), nextOccurrence(now.Add(-60*time.Hour), step, now), "missed firings are skipped")
}

func TestBuildPayload(t *testing.T) {
	p := BuildPayload(nil, false)
	assert.Equal(t, DefaultMessage, p.Body)
	assert.Equal(t, NotificationIcon, p.Icon)

	p = BuildPayload(ptr("Shape"), true)
	assert.Equal(t, "Shape (final reminder)", p.Body)
}
