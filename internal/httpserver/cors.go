package httpserver

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/fdg312/sourdough-hub/internal/clientctx"
	"github.com/fdg312/sourdough-hub/internal/config"
)

// CORSMiddleware allows the configured origins. With no origins configured
// no CORS headers are sent and browsers block cross-origin calls.
func CORSMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return next
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", clientctx.Header},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           600,
	})(next)
}
