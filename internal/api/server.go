package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mattjoyce/msgwebhook/internal/log"
	"github.com/mattjoyce/msgwebhook/internal/metrics"
	"github.com/mattjoyce/msgwebhook/internal/store"
	"github.com/mattjoyce/msgwebhook/internal/webhook"
)

// RequestIDHeader carries the correlation id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// MessageStore is the store surface the HTTP API needs.
type MessageStore interface {
	webhook.MessageStore
	List(ctx context.Context, q store.ListQuery) (store.Page, error)
	Stats(ctx context.Context) (store.Stats, error)
	Ping(ctx context.Context) error
}

// Config holds API server configuration
type Config struct {
	Listen  string
	Webhook webhook.Config
}

// Server represents the HTTP API server
type Server struct {
	config  Config
	store   MessageStore
	metrics *metrics.Collector
	webhook *webhook.Handler
	logger  *slog.Logger
	server  *http.Server
	now     func() time.Time
}

// New creates a new API server instance
func New(config Config, st MessageStore, collector *metrics.Collector, logger *slog.Logger) *Server {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Server{
		config:  config,
		store:   st,
		metrics: collector,
		webhook: webhook.NewHandler(config.Webhook, st, collector, logger),
		logger:  logger,
		now:     time.Now,
	}
}

// Handler returns the fully routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Probes are not counted in metrics.
	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)

	// The webhook handler records its own metrics and log line.
	r.Method(http.MethodPost, "/webhook", s.webhook)

	r.Get("/messages", s.instrument("/messages", s.handleListMessages))
	r.Get("/stats", s.instrument("/stats", s.handleStats))
	r.Get("/metrics", s.instrument("/metrics", s.handleMetrics))

	return r
}

// requestID reuses the caller's X-Request-ID or assigns a UUID, exposes it
// through middleware.GetReqID and echoes it on the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logExtraKey lets a read handler attach fields to its request log line.
type logExtraKey struct{}

type logExtra struct {
	fields []any
}

func addLogFields(r *http.Request, kv ...any) {
	if extra, ok := r.Context().Value(logExtraKey{}).(*logExtra); ok {
		extra.fields = append(extra.fields, kv...)
	}
}

// instrument records the http counter, a latency sample and one request
// log line for a read endpoint.
func (s *Server) instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		extra := &logExtra{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		h(ww, r.WithContext(context.WithValue(r.Context(), logExtraKey{}, extra)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		latency := float64(s.now().Sub(start).Microseconds()) / 1000
		s.metrics.RecordHTTPRequest(path, status)
		s.metrics.RecordLatency(latency)
		log.Request(r.Context(), s.logger, log.RequestLine{
			RequestID: middleware.GetReqID(r.Context()),
			Method:    r.Method,
			Path:      path,
			Status:    status,
			LatencyMS: latency,
			Extra:     extra.fields,
		})
	}
}
