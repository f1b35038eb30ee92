package reminders

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fdg312/sourdough-hub/internal/push"
	"github.com/fdg312/sourdough-hub/internal/storage"
)

// DispatchStorage is what a tick reads and writes.
type DispatchStorage interface {
	DueReminders(ctx context.Context, now time.Time) ([]storage.DueReminder, error)
	DeleteReminderByID(ctx context.Context, id int64) error
	RescheduleReminder(ctx context.Context, id int64, next time.Time) error
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) (bool, error)
}

// TickResult counts what one tick did with the due reminders.
type TickResult struct {
	Due         int  `json:"due"`
	Sent        int  `json:"sent"`
	Rescheduled int  `json:"rescheduled"`
	Retired     int  `json:"retired"`
	Pruned      int  `json:"pruned"`
	Failed      int  `json:"failed"`
	Skipped     bool `json:"skipped"`
}

type Dispatcher struct {
	store    DispatchStorage
	sender   push.Sender
	logger   *zap.Logger
	metrics  *Metrics
	interval time.Duration
	now      func() time.Time
	running  atomic.Bool
}

func NewDispatcher(store DispatchStorage, sender push.Sender, interval time.Duration, metrics *Metrics, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Dispatcher{
		store:    store,
		sender:   sender,
		logger:   logger.Named("dispatcher"),
		metrics:  metrics,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks once right away and then every interval until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", zap.Duration("interval", d.interval))
	d.Tick(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick delivers every due reminder. A tick started while another is still
// running returns immediately with Skipped set.
func (d *Dispatcher) Tick(ctx context.Context) TickResult {
	if !d.running.CompareAndSwap(false, true) {
		d.metrics.SkippedTicks.Inc()
		d.logger.Warn("tick skipped, previous tick still running")
		return TickResult{Skipped: true}
	}
	defer d.running.Store(false)

	start := time.Now()
	defer func() { d.metrics.TickDuration.Observe(time.Since(start).Seconds()) }()
	d.metrics.Ticks.Inc()

	now := d.now()
	due, err := d.store.DueReminders(ctx, now)
	if err != nil {
		d.logger.Error("load due reminders", zap.Error(err))
		return TickResult{}
	}

	res := TickResult{Due: len(due)}
	if len(due) == 0 {
		return res
	}
	d.logger.Info("due reminders", zap.Int("count", len(due)))

	for _, r := range due {
		if ctx.Err() != nil {
			break
		}
		d.process(ctx, r, now, &res)
	}
	return res
}

func (d *Dispatcher) process(ctx context.Context, r storage.DueReminder, now time.Time, res *TickResult) {
	log := d.logger.With(zap.Int64("reminder_id", r.ID), zap.Int64("subscription_id", r.SubscriptionID))

	recurring := r.RecurrenceIntervalHours != nil && *r.RecurrenceIntervalHours > 0
	final := false
	var next time.Time
	if recurring {
		step := time.Duration(*r.RecurrenceIntervalHours) * time.Hour
		if r.EndDate != nil && now.Add(step).After(*r.EndDate) {
			final = true
		} else {
			next = nextOccurrence(r.ScheduledTime, step, now)
		}
	}

	err := d.sender.Send(ctx, push.Subscription{
		Endpoint: r.Endpoint,
		P256dh:   r.P256dh,
		Auth:     r.Auth,
	}, BuildPayload(r.Message, final))
	if err != nil {
		if push.IsGone(err) {
			log.Info("subscription gone, removing", zap.String("endpoint", r.Endpoint))
			if _, err := d.store.DeleteSubscriptionByEndpoint(ctx, r.Endpoint); err != nil {
				log.Error("remove subscription", zap.Error(err))
				d.fail(res)
				return
			}
			res.Pruned++
			d.metrics.Outcomes.WithLabelValues(outcomePruned).Inc()
			return
		}
		log.Warn("send failed, will retry", zap.Error(err))
		d.fail(res)
		return
	}
	res.Sent++

	if recurring && !final {
		if err := d.store.RescheduleReminder(ctx, r.ID, next); err != nil {
			log.Error("reschedule reminder", zap.Error(err))
			d.fail(res)
			return
		}
		res.Rescheduled++
		d.metrics.Outcomes.WithLabelValues(outcomeRescheduled).Inc()
		return
	}

	if err := d.store.DeleteReminderByID(ctx, r.ID); err != nil {
		log.Error("delete fired reminder", zap.Error(err))
		d.fail(res)
		return
	}
	res.Retired++
	d.metrics.Outcomes.WithLabelValues(outcomeRetired).Inc()
}

func (d *Dispatcher) fail(res *TickResult) {
	res.Failed++
	d.metrics.Outcomes.WithLabelValues(outcomeFailed).Inc()
}

// nextOccurrence advances scheduled by whole steps until it is in the future,
// so missed firings are not replayed one per tick.
func nextOccurrence(scheduled time.Time, step time.Duration, now time.Time) time.Time {
	next := scheduled.Add(step)
	for !next.After(now) {
		next = next.Add(step)
	}
	return next
}

// BuildPayload renders the notification for a reminder message.
func BuildPayload(message *string, final bool) push.Payload {
	body := DefaultMessage
	if message != nil && *message != "" {
		body = *message
	}
	if final {
		body += FinalReminderSuffix
	}
	return push.Payload{
		Title: NotificationTitle,
		Body:  body,
		Icon:  NotificationIcon,
		Data:  push.PayloadData{URL: NotificationURL},
	}
}
