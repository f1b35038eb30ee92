package reminders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type Handlers struct {
	service *Service
	logger  *zap.Logger
}

func NewHandlers(service *Service, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{service: service, logger: logger}
}

// HandleSubscribe handles POST /api/notifications/subscribe
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Subscription == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid subscription object")
		return
	}

	sub := req.Subscription
	if _, err := h.service.Subscribe(r.Context(), sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Subscription saved successfully"})
}

// HandleUnsubscribe handles POST /api/notifications/unsubscribe
func (h *Handlers) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.service.Unsubscribe(r.Context(), req.Endpoint); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Subscription removed successfully"})
}

// HandleRemind handles POST /api/notifications/remind
func (h *Handlers) HandleRemind(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	reminder, err := h.service.Schedule(r.Context(), req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ScheduleResponse{ID: reminder.ID, EndDate: reminder.EndDate})
}

// HandleCancel handles POST /api/notifications/cancel
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.service.Cancel(r.Context(), req.Endpoint, req.ReminderID); err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Reminder deleted"})
}

// HandleList handles GET /api/notifications/reminders?endpoint=
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("endpoint")))
	if err != nil {
		h.handleError(w, err)
		return
	}

	resp := ListRemindersResponse{Reminders: make([]ReminderDTO, 0, len(list))}
	for _, rem := range list {
		resp.Reminders = append(resp.Reminders, toDTO(rem))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMessages handles GET /api/notifications/messages
func (h *Handlers) HandleMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessagesResponse{
		Messages:         PresetMessages,
		Default:          DefaultMessage,
		MaxLength:        MaxMessageLength,
		AllowedIntervals: AllowedIntervals,
		MaxActive:        h.service.MaxActive(),
	})
}

// HandleDebugDispatch handles POST /api/notifications/debug-dispatch
func (h *Handlers) HandleDebugDispatch(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.DebugDispatch(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.logger.Info("debug reminder created",
		zap.Int64("subscription_id", resp.SubscriptionID),
		zap.Time("scheduled_time", resp.ScheduledTime),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
	case errors.Is(err, ErrInvalidEndDate):
		writeError(w, http.StatusBadRequest, "invalid_end_date", err.Error())
	case errors.Is(err, ErrSubscriptionNotFound):
		writeError(w, http.StatusNotFound, "subscription_not_found", "Subscription not found. Please subscribe first.")
	case errors.Is(err, ErrReminderNotFound):
		writeError(w, http.StatusNotFound, "reminder_not_found", "Reminder not found")
	case errors.Is(err, ErrReminderLimit):
		writeError(w, http.StatusTooManyRequests, "reminder_limit", err.Error())
	default:
		h.logger.Error("notifications request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
