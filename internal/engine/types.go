package engine

import (
	"errors"
	"time"

	"github.com/mattjoyce/clitask/internal/task"
)

type Status string

const (
	StatusRunning    Status = "running"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
	StatusOrphaned   Status = "orphaned"
)

// ErrEngineClosed is returned by Submit after Shutdown.
var ErrEngineClosed = errors.New("engine is shut down")

// Execution identifies a started task.
type Execution struct {
	ID        string     `json:"id"`
	TaskName  string     `json:"task_name"`
	Scope     task.Scope `json:"scope"`
	StartedAt time.Time  `json:"started_at"`
}

// Ended describes a finished execution.
type Ended struct {
	ExecutionID string    `json:"execution_id"`
	TaskName    string    `json:"task_name"`
	Status      Status    `json:"status"`
	ExitCode    int       `json:"exit_code"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Run is a row of the task_runs log.
type Run struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Scope       task.Scope `json:"scope"`
	Command     string     `json:"command"`
	Positional  string     `json:"positional"`
	Flags       []string   `json:"flags"`
	Fingerprint string     `json:"fingerprint"`
	Status      Status     `json:"status"`
	ExitCode    *int       `json:"exit_code,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Stderr      string     `json:"stderr,omitempty"`
}
