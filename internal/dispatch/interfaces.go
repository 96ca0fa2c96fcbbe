package dispatch

import (
	"context"

	"github.com/mattjoyce/clitask/internal/engine"
	"github.com/mattjoyce/clitask/internal/task"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// TaskBuilder assembles a runnable task rooted at workspaceRoot.
type TaskBuilder interface {
	Build(ctx context.Context, req task.Request, workspaceRoot string) (*task.Task, error)
}

// Engine starts tasks. Submit returns once the task is accepted; completion
// arrives later through HandleTaskEnded.
type Engine interface {
	Submit(ctx context.Context, t *task.Task) (engine.Execution, error)
}

// Telemetry records feature usage. It must not block or fail the caller.
type Telemetry interface {
	Record(ctx context.Context, command string)
}
