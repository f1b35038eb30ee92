package reminders

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/fdg312/sourdough-hub/internal/storage"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidInterval      = errors.New("invalid recurrence interval")
	ErrInvalidEndDate       = errors.New("invalid end date")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrReminderNotFound     = errors.New("reminder not found")
	ErrReminderLimit        = errors.New("reminder limit reached")
)

const DefaultMaxActive = 10

// maxHorizon bounds how far out a recurring reminder may keep firing.
const maxHorizon = 1

// Storage is what the reminder service needs from the backend.
type Storage interface {
	storage.SubscriptionsStorage
	storage.RemindersStorage
}

type Service struct {
	store     Storage
	maxActive int
	policy    *bluemonday.Policy
	now       func() time.Time
}

func NewService(store Storage, maxActive int) *Service {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Service{
		store:     store,
		maxActive: maxActive,
		policy:    bluemonday.StrictPolicy(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) MaxActive() int { return s.maxActive }

// Subscribe stores the endpoint, replacing keys of an existing one.
func (s *Service) Subscribe(ctx context.Context, endpoint, p256dh, auth string) (storage.PushSubscription, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.TrimSpace(p256dh) == "" || strings.TrimSpace(auth) == "" {
		return storage.PushSubscription{}, fmt.Errorf("%w: invalid subscription object", ErrInvalidRequest)
	}
	return s.store.UpsertSubscription(ctx, endpoint, p256dh, auth)
}

// Unsubscribe removes the subscription and its reminders. Unknown
// endpoints are not an error.
func (s *Service) Unsubscribe(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidRequest)
	}
	_, err := s.store.DeleteSubscriptionByEndpoint(ctx, endpoint)
	return err
}

// Schedule validates req and creates a reminder. For recurring reminders the
// returned reminder carries the effective end date.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (storage.Reminder, error) {
	endpoint := strings.TrimSpace(req.Endpoint)
	if endpoint == "" || strings.TrimSpace(req.ScheduledTime) == "" {
		return storage.Reminder{}, fmt.Errorf("%w: endpoint and scheduledTime are required", ErrInvalidRequest)
	}
	scheduled, err := parseTimestamp(req.ScheduledTime)
	if err != nil {
		return storage.Reminder{}, fmt.Errorf("%w: scheduledTime must be ISO 8601", ErrInvalidRequest)
	}

	message, err := s.sanitizeMessage(req.Message)
	if err != nil {
		return storage.Reminder{}, err
	}

	r := storage.Reminder{ScheduledTime: scheduled, Message: message}

	if req.RecurrenceIntervalHours != nil {
		hours := *req.RecurrenceIntervalHours
		if !IsAllowedInterval(hours) {
			return storage.Reminder{}, fmt.Errorf("%w: %d hours", ErrInvalidInterval, hours)
		}
		end, err := s.endDate(scheduled, req.EndDate)
		if err != nil {
			return storage.Reminder{}, err
		}
		r.RecurrenceIntervalHours = &hours
		r.EndDate = &end
	}

	sub, found, err := s.store.GetSubscriptionByEndpoint(ctx, endpoint)
	if err != nil {
		return storage.Reminder{}, err
	}
	if !found {
		return storage.Reminder{}, ErrSubscriptionNotFound
	}

	active, err := s.store.CountFutureReminders(ctx, sub.ID, s.now())
	if err != nil {
		return storage.Reminder{}, err
	}
	if active >= s.maxActive {
		return storage.Reminder{}, fmt.Errorf("%w: at most %d active reminders", ErrReminderLimit, s.maxActive)
	}

	r.SubscriptionID = sub.ID
	if err := s.store.CreateReminder(ctx, &r); err != nil {
		return storage.Reminder{}, err
	}
	return r, nil
}

// endDate defaults to one year out, caps a given date there, and requires it
// to be after the first firing.
func (s *Service) endDate(scheduled time.Time, raw *string) (time.Time, error) {
	limit := s.now().AddDate(maxHorizon, 0, 0)
	if raw == nil || strings.TrimSpace(*raw) == "" {
		if !limit.After(scheduled) {
			return time.Time{}, fmt.Errorf("%w: scheduledTime is beyond the one year horizon", ErrInvalidEndDate)
		}
		return limit, nil
	}

	end, err := parseTimestamp(*raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: endDate must be ISO 8601", ErrInvalidEndDate)
	}
	if end.After(limit) {
		end = limit
	}
	if !end.After(scheduled) {
		return time.Time{}, fmt.Errorf("%w: endDate must be after scheduledTime", ErrInvalidEndDate)
	}
	return end, nil
}

// sanitizeMessage returns nil when the default message should be used.
func (s *Service) sanitizeMessage(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(*raw) > MaxMessageLength {
		return nil, fmt.Errorf("%w: message must be %d characters or less", ErrInvalidRequest, MaxMessageLength)
	}

	clean := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(*raw)))
	if clean == "" {
		return nil, nil
	}
	return &clean, nil
}

// Cancel deletes one reminder of the subscription.
func (s *Service) Cancel(ctx context.Context, endpoint string, reminderID int64) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || reminderID <= 0 {
		return fmt.Errorf("%w: endpoint and reminderId are required", ErrInvalidRequest)
	}

	sub, found, err := s.store.GetSubscriptionByEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}
	if !found {
		return ErrSubscriptionNotFound
	}

	deleted, err := s.store.DeleteReminder(ctx, reminderID, sub.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrReminderNotFound
	}
	return nil
}

// List returns the reminders of a subscription, soonest first.
func (s *Service) List(ctx context.Context, endpoint string) ([]storage.Reminder, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidRequest)
	}

	sub, found, err := s.store.GetSubscriptionByEndpoint(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSubscriptionNotFound
	}
	return s.store.ListReminders(ctx, sub.ID)
}

// DebugDispatch replaces the reminders of the most recent subscription with
// one that is already due, so the next tick delivers it.
func (s *Service) DebugDispatch(ctx context.Context) (DebugDispatchResponse, error) {
	sub, found, err := s.store.LatestSubscription(ctx)
	if err != nil {
		return DebugDispatchResponse{}, err
	}
	if !found {
		return DebugDispatchResponse{}, ErrSubscriptionNotFound
	}

	cleared, err := s.store.DeleteRemindersForSubscription(ctx, sub.ID)
	if err != nil {
		return DebugDispatchResponse{}, err
	}

	r := storage.Reminder{SubscriptionID: sub.ID, ScheduledTime: s.now().Add(-time.Minute)}
	if err := s.store.CreateReminder(ctx, &r); err != nil {
		return DebugDispatchResponse{}, err
	}

	return DebugDispatchResponse{
		SubscriptionID: sub.ID,
		Endpoint:       sub.Endpoint,
		ScheduledTime:  r.ScheduledTime,
		Cleared:        cleared,
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func toDTO(r storage.Reminder) ReminderDTO {
	return ReminderDTO{
		ID:                      r.ID,
		ScheduledTime:           r.ScheduledTime,
		Message:                 r.Message,
		RecurrenceIntervalHours: r.RecurrenceIntervalHours,
		EndDate:                 r.EndDate,
		CreatedAt:               r.CreatedAt,
	}
}
