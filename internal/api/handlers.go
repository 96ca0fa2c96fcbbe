package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/clitask/internal/engine"
	"github.com/mattjoyce/clitask/internal/scheduler"
	"github.com/mattjoyce/clitask/internal/task"
	"github.com/mattjoyce/clitask/internal/telemetry"
	"github.com/mattjoyce/clitask/internal/workspace"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
	maxBodyBytes     = 1 << 20
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Workspace:     s.projects.WorkspacePath(),
		Scheduler:     s.tasks.Status().State,
	})
}

// handleProjects handles GET /projects.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	entries := s.projects.ProjectEntries(r.Context(), nil)
	resp := ProjectsResponse{
		Workspace: s.projects.WorkspacePath(),
		Projects:  make([]ProjectResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Projects = append(resp.Projects, projectResponse(e.Project))
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleProjectOwner handles GET /projects/owner?path=.
func (s *Server) handleProjectOwner(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}
	p, ok := s.projects.ProjectForPath(r.Context(), path)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no project contains path")
		return
	}
	respondJSON(w, http.StatusOK, projectResponse(p))
}

// handleResolve handles POST /tasks/resolve. An unresolvable definition is
// not an error: it yields 204.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var def task.Definition
	if err := decodeBody(w, r, &def); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	t, err := s.tasks.Resolve(r.Context(), &def)
	if err != nil {
		s.logger.Error("failed to resolve task", "command", def.Command, "project", def.Project, "error", err)
		s.writeError(w, statusForTaskError(err), "failed to resolve task: "+err.Error())
		return
	}
	if t == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, TaskResponse{
		Name:        t.Name,
		Scope:       t.Scope,
		Cwd:         t.Cwd,
		Program:     t.Program,
		Args:        t.Args,
		Fingerprint: t.Request.Fingerprint(),
	})
}

// handleExecute handles POST /tasks/execute.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req task.Request
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		s.writeError(w, http.StatusBadRequest, "command is required")
		return
	}
	if req.Flags == nil {
		req.Flags = []string{}
	}

	out, err := s.tasks.Dispatch(r.Context(), req)
	if err != nil {
		s.logger.Error("failed to execute task", "command", req.Command, "positional", req.Positional, "error", err)
		s.writeError(w, statusForTaskError(err), "failed to execute task: "+err.Error())
		return
	}

	resp := ExecuteResponse{
		Status:      ExecuteSubmitted,
		Fingerprint: req.Fingerprint(),
		Scheduler:   out.Scheduler,
	}
	if out.Decision == scheduler.DecisionDefer {
		resp.Status = ExecuteDeferred
	}
	respondJSON(w, http.StatusAccepted, resp)
}

// handleScheduler handles GET /scheduler.
func (s *Server) handleScheduler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.tasks.Status())
}

// handleRuns handles GET /runs?limit=.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []engine.Run{}
	}
	respondJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

// handleUsage handles GET /usage.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.usage.Counts(r.Context())
	if err != nil {
		s.logger.Error("failed to read usage", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read usage")
		return
	}
	if usage == nil {
		usage = []telemetry.Usage{}
	}
	respondJSON(w, http.StatusOK, UsageResponse{Usage: usage})
}

func projectResponse(p workspace.Project) ProjectResponse {
	return ProjectResponse{
		Name:       p.Name,
		Root:       p.Root,
		Definition: p.Definition(),
	}
}

func statusForTaskError(err error) int {
	switch {
	case errors.Is(err, task.ErrNoWorkspace):
		return http.StatusConflict
	case errors.Is(err, engine.ErrEngineClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// respondJSON is a helper to write JSON responses
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
