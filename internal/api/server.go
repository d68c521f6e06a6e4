package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/driftworks/arbor/internal/envstore"
	"github.com/driftworks/arbor/internal/events"
	"github.com/driftworks/arbor/internal/provider"
	"github.com/driftworks/arbor/internal/reclaim"
	"github.com/driftworks/arbor/internal/resolve"
	"github.com/driftworks/arbor/internal/serial"
)

// Config holds API server configuration.
type Config struct {
	Listen string
	APIKey string
}

// Resolver is the resolution entry point the server fronts.
type Resolver interface {
	Resolve(ctx context.Context, conv resolve.Conversation, cb provider.Codebase, hints resolve.Hints) (*resolve.Result, error)
}

// Sweeper runs on-demand reclamation sweeps.
type Sweeper interface {
	RunSweep(ctx context.Context) (*reclaim.CleanupReport, error)
}

// Server is the HTTP ingress for chat/webhook adapters and operators.
type Server struct {
	config     Config
	resolver   Resolver
	sweeper    Sweeper
	provider   provider.Provider
	store      *envstore.Store
	serializer *serial.Serializer
	codebases  map[string]provider.Codebase
	events     *events.Hub
	logger     *slog.Logger
	server     *http.Server
	startedAt  time.Time
}

func New(config Config, resolver Resolver, sweeper Sweeper, prov provider.Provider, store *envstore.Store, serializer *serial.Serializer, codebases map[string]provider.Codebase, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:     config,
		resolver:   resolver,
		sweeper:    sweeper,
		provider:   prov,
		store:      store,
		serializer: serializer,
		codebases:  codebases,
		events:     hub,
		logger:     logger.With("component", "api"),
		startedAt:  time.Now(),
	}
}

// Start starts the HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // resolves may wait on git fetches
		IdleTimeout:  60 * time.Second,
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

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoint.
	r.Get("/healthz", s.handleHealthz)

	// Protected API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/v1/resolve", s.handleResolve)
		r.Post("/v1/sweep", s.handleSweep)
		r.Get("/v1/environments", s.handleListEnvironments)
		r.Get("/v1/environments/{envID}", s.handleGetEnvironment)
		r.Delete("/v1/environments/{envID}", s.handleDestroyEnvironment)
		r.Get("/v1/events", s.handleEvents)
		r.Get("/v1/events/recent", s.handleRecentEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
