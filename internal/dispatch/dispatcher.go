package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mattjoyce/clitask/internal/config"
	"github.com/mattjoyce/clitask/internal/events"
	"github.com/mattjoyce/clitask/internal/log"
	"github.com/mattjoyce/clitask/internal/rewrite"
	"github.com/mattjoyce/clitask/internal/scheduler"
	"github.com/mattjoyce/clitask/internal/task"
)

var errNoTask = errors.New("builder returned no task")

// Dispatcher resolves and executes command requests.
type Dispatcher struct {
	cfg       config.Provider
	general   TaskBuilder
	workspace TaskBuilder
	engine    Engine
	sched     *scheduler.DryRun
	telemetry Telemetry
	hub       *events.Hub
	logger    *slog.Logger

	mu sync.Mutex
}

// New creates a Dispatcher. general builds ordinary CLI tasks and
// workspaceScoped builds rewritten workspace generator tasks.
func New(cfg config.Provider, general, workspaceScoped TaskBuilder, eng Engine, sched *scheduler.DryRun, tel Telemetry) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		general:   general,
		workspace: workspaceScoped,
		engine:    eng,
		sched:     sched,
		telemetry: tel,
		logger:    log.WithComponent("dispatch"),
	}
}

// WithEvents publishes deferral and replay events on hub.
func (d *Dispatcher) WithEvents(hub *events.Hub) *Dispatcher {
	d.hub = hub
	return d
}

// WorkspacePath returns the configured workspace root, or "".
func (d *Dispatcher) WorkspacePath() string {
	return d.cfg.Get(config.KeyWorkspacePath, "")
}

// Status returns a snapshot of the dry-run scheduler. It waits for any
// Execute or replay in progress, so a replay never shows up as idle.
func (d *Dispatcher) Status() scheduler.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sched.Status()
}

// Resolve fills in a host task definition. It returns a nil task and no
// error when there is no workspace or the definition lacks a command or a
// project. The returned task references def itself.
func (d *Dispatcher) Resolve(ctx context.Context, def *task.Definition) (*task.Task, error) {
	if d.WorkspacePath() == "" || def == nil || def.Command == "" || def.Project == "" {
		return nil, nil
	}

	t, err := d.Build(ctx, task.Request{
		Command:    def.Command,
		Positional: def.Project,
		Flags:      def.FlagList(),
	})
	if err != nil {
		return nil, err
	}
	t.Definition = def
	return t, nil
}

// Build assembles a general CLI task for req.
func (d *Dispatcher) Build(ctx context.Context, req task.Request) (*task.Task, error) {
	return d.build(ctx, d.general, req)
}

func (d *Dispatcher) build(ctx context.Context, b TaskBuilder, req task.Request) (*task.Task, error) {
	t, err := b.Build(ctx, req, d.WorkspacePath())
	if err != nil {
		return nil, fmt.Errorf("build task: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("build task: %w", errNoTask)
	}
	return t, nil
}

// Outcome reports what Dispatch did with a request. Scheduler is the state
// right after the decision, taken before the dispatcher lock is released.
type Outcome struct {
	Decision  scheduler.Decision `json:"decision"`
	Scheduler scheduler.Status   `json:"scheduler"`
}

// Execute runs req, or holds it as the pending dry-run when another dry-run
// is active. A nil error means the task was submitted or deferred.
func (d *Dispatcher) Execute(ctx context.Context, req task.Request) error {
	_, err := d.Dispatch(ctx, req)
	return err
}

// Dispatch is Execute that also reports whether req was run or deferred.
func (d *Dispatcher) Dispatch(ctx context.Context, req task.Request) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	decision, err := d.executeLocked(ctx, req)
	return Outcome{Decision: decision, Scheduler: d.sched.Status()}, err
}

func (d *Dispatcher) executeLocked(ctx context.Context, req task.Request) (scheduler.Decision, error) {
	logger := d.logger.With("command", req.Command, "positional", req.Positional)

	if d.sched.Admit(req) == scheduler.DecisionDefer {
		st := d.sched.Status()
		logger.Info("dry-run deferred", "active_id", st.ActiveID)
		d.publish(events.TypeDryRunDeferred, st)
		return scheduler.DecisionDefer, nil
	}

	builder, final := d.general, req
	if rewritten, ok := rewrite.Rewrite(req); ok {
		logger.Debug("rewrote workspace generator", "rewritten_command", rewritten.Command, "generator", rewritten.Positional)
		builder, final = d.workspace, rewritten
	}

	t, err := d.build(ctx, builder, final)
	if err != nil {
		return scheduler.DecisionRun, err
	}

	d.telemetry.Record(ctx, req.Command)

	exe, err := d.engine.Submit(ctx, t)
	if err != nil {
		return scheduler.DecisionRun, fmt.Errorf("submit task: %w", err)
	}
	d.sched.Started(req, exe.ID)
	logger.Debug("task submitted", "execution_id", exe.ID, "task", t.Name)
	return scheduler.DecisionRun, nil
}

// HandleTaskEnded must be called for every task end. It clears the active
// dry-run and replays the pending one, if any.
func (d *Dispatcher) HandleTaskEnded(ctx context.Context, handleID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, ok := d.sched.Ended(handleID)
	if !ok {
		return
	}

	logger := d.logger.With("ended_id", handleID, "command", next.Command, "positional", next.Positional)
	logger.Info("replaying deferred dry-run")
	d.publish(events.TypeDryRunReplayed, next)
	if _, err := d.executeLocked(ctx, next); err != nil {
		logger.Error("deferred dry-run replay failed", "error", err)
	}
}

func (d *Dispatcher) publish(eventType string, data any) {
	if d.hub != nil {
		d.hub.Publish(eventType, data)
	}
}
