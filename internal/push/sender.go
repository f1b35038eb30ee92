package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fdg312/sourdough-hub/internal/config"
)

// Subscription is the browser endpoint and keys a message is encrypted for.
type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Payload is the JSON body the service worker renders as a notification.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Icon  string      `json:"icon"`
	Data  PayloadData `json:"data"`
}

type PayloadData struct {
	URL string `json:"url"`
}

// Sender delivers one push message.
type Sender interface {
	Send(ctx context.Context, sub Subscription, payload Payload) error
}

// SendError is returned when the push service answers with a non-2xx status.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("push: service responded %d: %s", e.StatusCode, e.Body)
}

// IsGone reports whether err means the subscription no longer exists
// (404 or 410) and should be removed.
func IsGone(err error) bool {
	var se *SendError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusNotFound || se.StatusCode == http.StatusGone
}

// NewSenderFromConfig builds a push sender based on config.
func NewSenderFromConfig(cfg config.PushConfig, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Mode {
	case "", config.PushModeLog:
		return NewLogSender(logger), nil
	case config.PushModeWebPush:
		if missing := cfg.MissingVAPID(); len(missing) > 0 {
			return nil, fmt.Errorf("PUSH_MODE=webpush requires %v", missing)
		}
		return NewWebPushSender(WebPushConfig{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.VAPIDSubject,
			TTLSeconds:      cfg.TTLSeconds,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported PUSH_MODE=%q", cfg.Mode)
	}
}
