package reminders

import "time"

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type SubscriptionObject struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

type SubscribeRequest struct {
	Subscription *SubscriptionObject `json:"subscription"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// ScheduleRequest is the body of POST /api/notifications/remind.
// Times are ISO 8601 strings as sent by the browser.
type ScheduleRequest struct {
	Endpoint                string  `json:"endpoint"`
	ScheduledTime           string  `json:"scheduledTime"`
	Message                 *string `json:"message,omitempty"`
	RecurrenceIntervalHours *int    `json:"recurrenceIntervalHours,omitempty"`
	EndDate                 *string `json:"endDate,omitempty"`
}

type ScheduleResponse struct {
	ID      int64      `json:"id"`
	EndDate *time.Time `json:"endDate"`
}

type CancelRequest struct {
	Endpoint   string `json:"endpoint"`
	ReminderID int64  `json:"reminderId"`
}

type ReminderDTO struct {
	ID                      int64      `json:"id"`
	ScheduledTime           time.Time  `json:"scheduledTime"`
	Message                 *string    `json:"message,omitempty"`
	RecurrenceIntervalHours *int       `json:"recurrenceIntervalHours,omitempty"`
	EndDate                 *time.Time `json:"endDate,omitempty"`
	CreatedAt               time.Time  `json:"createdAt"`
}

type ListRemindersResponse struct {
	Reminders []ReminderDTO `json:"reminders"`
}

type MessagesResponse struct {
	Messages         []string `json:"messages"`
	Default          string   `json:"default"`
	MaxLength        int      `json:"maxLength"`
	AllowedIntervals []int    `json:"allowedIntervals"`
	MaxActive        int      `json:"maxActive"`
}

type DebugDispatchResponse struct {
	SubscriptionID int64     `json:"subscriptionId"`
	Endpoint       string    `json:"endpoint"`
	ScheduledTime  time.Time `json:"scheduledTime"`
	Cleared        int64     `json:"cleared"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
