package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rotisserie/eris"
)

type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is the VAPID contact, a mailto: or https: URL.
	Subscriber string
	TTLSeconds int
}

// WebPushSender encrypts and posts messages to the subscription endpoint.
type WebPushSender struct {
	cfg    WebPushConfig
	client *http.Client
}

func NewWebPushSender(cfg WebPushConfig) *WebPushSender {
	return &WebPushSender{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub Subscription, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "push: marshal payload")
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body,
		&webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		},
		&webpush.Options{
			HTTPClient:      s.client,
			Subscriber:      s.cfg.Subscriber,
			VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
			TTL:             s.cfg.TTLSeconds,
		},
	)
	if err != nil {
		return eris.Wrap(err, "push: send")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &SendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh key pair, base64url encoded.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", eris.Wrap(err, "push: generate vapid keys")
	}
	return privateKey, publicKey, nil
}
