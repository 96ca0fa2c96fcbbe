package api

import (
	"encoding/json"

	"github.com/mattjoyce/clitask/internal/engine"
	"github.com/mattjoyce/clitask/internal/scheduler"
	"github.com/mattjoyce/clitask/internal/task"
	"github.com/mattjoyce/clitask/internal/telemetry"
)

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string          `json:"status"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Workspace     string          `json:"workspace"`
	Scheduler     scheduler.State `json:"scheduler"`
}

// ProjectResponse is one project; Definition includes the project name.
type ProjectResponse struct {
	Name       string          `json:"name"`
	Root       string          `json:"root"`
	Definition json.RawMessage `json:"definition"`
}

// ProjectsResponse is returned by GET /projects.
type ProjectsResponse struct {
	Workspace string            `json:"workspace"`
	Projects  []ProjectResponse `json:"projects"`
}

// TaskResponse describes a resolved, not yet started, task.
type TaskResponse struct {
	Name        string     `json:"name"`
	Scope       task.Scope `json:"scope"`
	Cwd         string     `json:"cwd"`
	Program     string     `json:"program"`
	Args        []string   `json:"args"`
	Fingerprint string     `json:"fingerprint"`
}

// Execute outcomes.
const (
	ExecuteSubmitted = "submitted"
	ExecuteDeferred  = "deferred"
)

// ExecuteResponse is returned by POST /tasks/execute.
type ExecuteResponse struct {
	Status      string           `json:"status"`
	Fingerprint string           `json:"fingerprint"`
	Scheduler   scheduler.Status `json:"scheduler"`
}

// RunsResponse is returned by GET /runs.
type RunsResponse struct {
	Runs []engine.Run `json:"runs"`
}

// UsageResponse is returned by GET /usage.
type UsageResponse struct {
	Usage []telemetry.Usage `json:"usage"`
}
