package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fdg312/sourdough-hub/internal/blob"
	"github.com/fdg312/sourdough-hub/internal/config"
	"github.com/fdg312/sourdough-hub/internal/dbmigrate"
	"github.com/fdg312/sourdough-hub/internal/push"
	"github.com/fdg312/sourdough-hub/internal/reminders"
	"github.com/fdg312/sourdough-hub/internal/storage"
	"github.com/fdg312/sourdough-hub/internal/storage/memory"
	"github.com/fdg312/sourdough-hub/internal/storage/postgres"
	"github.com/fdg312/sourdough-hub/internal/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Server wires storage, push delivery and the HTTP routes together.
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	mux        *http.ServeMux
	storage    storage.Storage
	blobs      blob.Store
	sender     push.Sender
	registry   *prometheus.Registry
	dispatcher *reminders.Dispatcher
	handler    http.Handler
}

// New opens storage and registers every route. The caller owns Close.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	st, err := OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	blobs, mode, err := blob.NewBlobStore(ctx, cfg.Blob, logger)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "httpserver: blob store")
	}
	logger.Info("saved calculations blob store ready", zap.String("mode", mode))

	sender, err := push.NewSenderFromConfig(cfg.Push, logger)
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "httpserver: push sender")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		config:   cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		storage:  st,
		blobs:    blobs,
		sender:   sender,
		registry: registry,
	}
	s.dispatcher = reminders.NewDispatcher(st, sender, cfg.Reminders.DispatchInterval, reminders.NewMetrics(registry), logger)

	s.routes()
	s.handler = s.buildHandler()
	return s, nil
}

// OpenStorage connects the backend named by STORAGE_DRIVER and applies
// migrations when RUN_MIGRATIONS_ON_STARTUP is set.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logger.Info("storage ready", zap.String("driver", "memory"))
		return memory.New(), nil

	case config.StoragePostgres:
		if cfg.Storage.DatabaseURL == "" {
			return nil, eris.New("httpserver: DATABASE_URL is required for STORAGE_DRIVER=postgres")
		}
		if cfg.Storage.RunMigrationsOnStartup {
			if err := dbmigrate.Run(ctx, "up", "postgres", cfg.Storage.DatabaseURL, logger); err != nil {
				return nil, eris.Wrap(err, "httpserver: startup migrations")
			}
		}
		st, err := postgres.New(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("storage ready", zap.String("driver", "postgres"))
		return st, nil

	case config.StorageSQLite, "":
		path := cfg.Storage.SQLitePath
		if path == "" {
			return nil, eris.New("httpserver: SQLITE_DB_PATH is required for STORAGE_DRIVER=sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, eris.Wrapf(err, "httpserver: create %s", filepath.Dir(path))
		}
		st, err := sqlite.New(ctx, path)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.RunMigrationsOnStartup {
			if err := dbmigrate.Migrate(ctx, st.DB(), "sqlite", "up", logger); err != nil {
				st.Close()
				return nil, eris.Wrap(err, "httpserver: startup migrations")
			}
		}
		logger.Info("storage ready", zap.String("driver", "sqlite"), zap.String("path", path))
		return st, nil

	default:
		return nil, eris.Errorf("httpserver: unsupported STORAGE_DRIVER=%q", cfg.Storage.Driver)
	}
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// buildHandler chains, outermost first: metrics, CORS, rate limit, client id, router.
func (s *Server) buildHandler() http.Handler {
	var handler http.Handler = s.mux
	handler = clientIDMiddleware(handler)
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)
	handler = instrument(s.registry, handler)
	return handler
}

// Run serves HTTP and, when enabled, the reminder dispatcher until ctx is
// cancelled, then shuts both down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting server", zap.Int("port", s.config.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "httpserver: listen")
		}
		return nil
	})

	if s.config.Reminders.DispatcherEnabled {
		g.Go(func() error {
			s.dispatcher.Run(gctx)
			return nil
		})
	} else {
		s.logger.Info("reminder dispatcher disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "httpserver: shutdown")
		}
		return nil
	})

	return g.Wait()
}

// Dispatcher exposes the reminder dispatcher for one-off ticks.
func (s *Server) Dispatcher() *reminders.Dispatcher {
	return s.dispatcher
}

func (s *Server) Close() error {
	return s.storage.Close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.storage.Ping(ctx); err != nil {
		s.logger.Warn("healthz: storage ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if s.config.Push.VAPIDPublicKey == "" {
		writeError(w, http.StatusNotFound, "push_not_configured", "Web push is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": s.config.Push.VAPIDPublicKey})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
