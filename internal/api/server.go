package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/clitask/internal/auth"
	"github.com/mattjoyce/clitask/internal/dispatch"
	"github.com/mattjoyce/clitask/internal/engine"
	"github.com/mattjoyce/clitask/internal/events"
	"github.com/mattjoyce/clitask/internal/scheduler"
	"github.com/mattjoyce/clitask/internal/task"
	"github.com/mattjoyce/clitask/internal/telemetry"
	"github.com/mattjoyce/clitask/internal/workspace"
)

// TaskService resolves and executes command requests.
type TaskService interface {
	Resolve(ctx context.Context, def *task.Definition) (*task.Task, error)
	Dispatch(ctx context.Context, req task.Request) (dispatch.Outcome, error)
	Status() scheduler.Status
}

// ProjectIndex answers project queries.
type ProjectIndex interface {
	WorkspacePath() string
	ProjectEntries(ctx context.Context, snap *workspace.Snapshot) []workspace.Entry
	ProjectForPath(ctx context.Context, path string) (workspace.Project, bool)
}

// RunLog lists recorded task runs.
type RunLog interface {
	Recent(ctx context.Context, limit int) ([]engine.Run, error)
}

// UsageReader lists command usage counters.
type UsageReader interface {
	Counts(ctx context.Context) ([]telemetry.Usage, error)
}

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey is the admin bearer token (scope "*").
	APIKey string
	// Tokens is an optional list of scoped bearer tokens.
	Tokens []auth.TokenConfig
}

// Server is the HTTP API over the dispatcher.
type Server struct {
	config    Config
	tasks     TaskService
	projects  ProjectIndex
	runs      RunLog
	usage     UsageReader
	events    *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance. hub may be nil, in which case
// GET /events reports 503.
func New(config Config, tasks TaskService, projects ProjectIndex, runs RunLog, usage UsageReader, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		tasks:     tasks,
		projects:  projects,
		runs:      runs,
		usage:     usage,
		events:    hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        s.config.Listen,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /events streams stay open.
		IdleTimeout: 60 * time.Second,
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

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/openapi.json", s.handleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		for _, rt := range s.routes() {
			r.With(s.requireScopes(rt.scopes...)).Method(rt.method, rt.path, rt.handler)
		}
	})

	return r
}

// route is one authenticated endpoint. The table drives both routing and
// the OpenAPI document.
type route struct {
	method  string
	path    string
	summary string
	scopes  []string
	status  int
	handler http.HandlerFunc
}

func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, "/projects", "List workspace projects", []string{auth.ScopeProjectsRO}, http.StatusOK, s.handleProjects},
		{http.MethodGet, "/projects/owner", "Find the project owning a path", []string{auth.ScopeProjectsRO}, http.StatusOK, s.handleProjectOwner},
		{http.MethodPost, "/tasks/resolve", "Resolve a task definition", []string{auth.ScopeTasksRO}, http.StatusOK, s.handleResolve},
		{http.MethodPost, "/tasks/execute", "Execute a command request", []string{auth.ScopeTasksRW}, http.StatusAccepted, s.handleExecute},
		{http.MethodGet, "/scheduler", "Dry-run scheduler state", []string{auth.ScopeTasksRO}, http.StatusOK, s.handleScheduler},
		{http.MethodGet, "/runs", "Recent task runs", []string{auth.ScopeTasksRO}, http.StatusOK, s.handleRuns},
		{http.MethodGet, "/usage", "Command usage counters", []string{auth.ScopeTasksRO}, http.StatusOK, s.handleUsage},
		{http.MethodGet, "/events", "Server-sent event stream", []string{auth.ScopeEventsRO}, http.StatusOK, s.handleEvents},
	}
}

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
