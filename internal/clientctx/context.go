package clientctx

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

type contextKey string

const clientIDContextKey contextKey = "client_id"

const (
	Header          = "X-Client-Id"
	DefaultClientID = "default"
)

// Client ids end up in blob keys, so only a conservative alphabet is accepted.
var validClientID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey, clientID)
}

func GetClientID(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(clientIDContextKey).(string)
	return clientID, ok
}

// ClientID returns the request's client id or DefaultClientID.
func ClientID(ctx context.Context) string {
	if id, ok := GetClientID(ctx); ok && id != "" {
		return id
	}
	return DefaultClientID
}

func IsValid(clientID string) bool {
	return validClientID.MatchString(clientID)
}

// Middleware reads X-Client-Id into the request context. A malformed id is
// rejected with 400.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(Header))
		if id == "" {
			id = DefaultClientID
		}
		if !IsValid(id) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"invalid_client_id","message":"X-Client-Id must be 1-64 characters of A-Z, a-z, 0-9, _ or -"}}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
	})
}
