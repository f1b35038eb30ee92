package httpserver

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fdg312/sourdough-hub/internal/calculator"
	"github.com/fdg312/sourdough-hub/internal/clientctx"
	"github.com/fdg312/sourdough-hub/internal/guestbook"
	"github.com/fdg312/sourdough-hub/internal/reminders"
	"github.com/fdg312/sourdough-hub/internal/saves"
)

func (s *Server) routes() {
	// Ops
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	// Notifications API
	reminderService := reminders.NewService(s.storage, s.config.Reminders.MaxActive)
	reminderHandler := reminders.NewHandlers(reminderService, s.logger)

	s.mux.HandleFunc("POST /api/notifications/subscribe", reminderHandler.HandleSubscribe)
	s.mux.HandleFunc("POST /api/notifications/unsubscribe", reminderHandler.HandleUnsubscribe)
	s.mux.HandleFunc("POST /api/notifications/remind", reminderHandler.HandleRemind)
	s.mux.HandleFunc("POST /api/notifications/cancel", reminderHandler.HandleCancel)
	s.mux.HandleFunc("GET /api/notifications/reminders", reminderHandler.HandleList)
	s.mux.HandleFunc("GET /api/notifications/messages", reminderHandler.HandleMessages)
	s.mux.HandleFunc("GET /api/notifications/vapid-public-key", s.handleVAPIDPublicKey)
	if !s.config.IsProduction() {
		s.mux.HandleFunc("POST /api/notifications/debug-dispatch", reminderHandler.HandleDebugDispatch)
	}

	// Calculator API
	calcHandler := calculator.NewHandlers(saves.NewStore(s.blobs), s.logger)

	s.mux.HandleFunc("GET /api/calculator/state", calcHandler.HandleState)
	s.mux.HandleFunc("POST /api/calculator/apply", calcHandler.HandleApply)
	s.mux.HandleFunc("GET /api/calculator/saves", calcHandler.HandleListSaves)
	s.mux.HandleFunc("POST /api/calculator/saves", calcHandler.HandleCreateSave)
	s.mux.HandleFunc("DELETE /api/calculator/saves", calcHandler.HandleClearSaves)
	s.mux.HandleFunc("GET /api/calculator/saves/actions", calcHandler.HandleActions)
	s.mux.HandleFunc("GET /api/calculator/saves/{id}", calcHandler.HandleGetSave)
	s.mux.HandleFunc("PUT /api/calculator/saves/{id}", calcHandler.HandleOverwriteSave)
	s.mux.HandleFunc("PATCH /api/calculator/saves/{id}", calcHandler.HandleRenameSave)
	s.mux.HandleFunc("DELETE /api/calculator/saves/{id}", calcHandler.HandleDeleteSave)
	s.mux.HandleFunc("GET /api/calculator/saves/{id}/card.pdf", calcHandler.HandleCard)

	// Guestbook API
	guestbookHandler := guestbook.NewHandlers(guestbook.NewService(s.storage), s.logger)

	s.mux.HandleFunc("GET /api/entries", guestbookHandler.HandleList)
	s.mux.HandleFunc("POST /api/entries", guestbookHandler.HandleCreate)
}

// clientIDMiddleware resolves X-Client-Id for the calculator routes only;
// the other APIs are not client scoped.
func clientIDMiddleware(next http.Handler) http.Handler {
	scoped := clientctx.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, calculatorPrefix) {
			scoped.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const calculatorPrefix = "/api/calculator/"
