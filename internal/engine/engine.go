package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/clitask/internal/events"
	"github.com/mattjoyce/clitask/internal/log"
	"github.com/mattjoyce/clitask/internal/task"
)

const (
	// maxStderrBytes caps the stderr tail kept in the run log.
	maxStderrBytes = 64 * 1024

	defaultTerminationGrace = 5 * time.Second
)

// Options configures process I/O and shutdown.
type Options struct {
	Stdout           io.Writer
	Stderr           io.Writer
	TerminationGrace time.Duration
}

// Engine starts tasks and reports their completion.
type Engine struct {
	db     *sql.DB
	hub    *events.Hub
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	running   map[string]*exec.Cmd
	listeners []func(Ended)

	wg sync.WaitGroup
}

// New creates an Engine. db and hub may be nil.
func New(db *sql.DB, hub *events.Hub, opts Options) *Engine {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.TerminationGrace <= 0 {
		opts.TerminationGrace = defaultTerminationGrace
	}
	return &Engine{
		db:      db,
		hub:     hub,
		opts:    opts,
		logger:  log.WithComponent("engine"),
		running: make(map[string]*exec.Cmd),
	}
}

// OnTaskEnded registers fn to be called after every task ends, whichever
// task it was.
func (e *Engine) OnTaskEnded(fn func(Ended)) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Submit starts t and returns once the process is running.
func (e *Engine) Submit(ctx context.Context, t *task.Task) (Execution, error) {
	if err := ctx.Err(); err != nil {
		return Execution{}, err
	}
	if t == nil || t.Program == "" {
		return Execution{}, fmt.Errorf("task has no program")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Execution{}, ErrEngineClosed
	}

	// Not CommandContext: the process outlives the submitting request.
	cmd := exec.Command(t.Program, t.Args...)
	cmd.Dir = t.Cwd
	cmd.Env = append(os.Environ(), t.Env...)
	tail := &tailBuffer{limit: maxStderrBytes}
	cmd.Stdout = e.opts.Stdout
	cmd.Stderr = io.MultiWriter(e.opts.Stderr, tail)
	// Grandchildren holding the output pipes must not block the reaper.
	cmd.WaitDelay = e.opts.TerminationGrace

	if err := cmd.Start(); err != nil {
		return Execution{}, fmt.Errorf("start %s: %w", t.Program, err)
	}

	exe := Execution{
		ID:        uuid.NewString(),
		TaskName:  t.Name,
		Scope:     t.Scope,
		StartedAt: time.Now().UTC(),
	}
	taskLogger := log.WithTask(exe.ID).With("task", t.Name, "scope", t.Scope)
	taskLogger.Info("task started", "pid", cmd.Process.Pid, "cwd", t.Cwd)

	if err := e.insertRun(ctx, exe, t); err != nil {
		taskLogger.Error("failed to record task run", "error", err)
	}

	e.running[exe.ID] = cmd
	e.wg.Add(1)
	go e.wait(exe, cmd, tail, taskLogger)

	if e.hub != nil {
		e.hub.Publish(events.TypeTaskStarted, exe)
	}
	return exe, nil
}

// wait reaps the process, records the outcome and notifies listeners.
func (e *Engine) wait(exe Execution, cmd *exec.Cmd, tail *tailBuffer, logger *slog.Logger) {
	defer e.wg.Done()

	waitErr := cmd.Wait()
	ended := Ended{
		ExecutionID: exe.ID,
		TaskName:    exe.TaskName,
		Status:      StatusSucceeded,
		CompletedAt: time.Now().UTC(),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		ended.ExitCode = exitErr.ExitCode()
		ended.Status = StatusFailed
		if ended.ExitCode < 0 {
			ended.Status = StatusTerminated
		}
		ended.Error = waitErr.Error()
	default:
		ended.ExitCode = -1
		ended.Status = StatusFailed
		ended.Error = waitErr.Error()
	}

	if ended.Status == StatusSucceeded {
		logger.Info("task ended", "status", ended.Status)
	} else {
		logger.Warn("task ended", "status", ended.Status, "exit_code", ended.ExitCode, "error", ended.Error)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := e.completeRun(ctx, ended, tail.String()); err != nil {
		logger.Error("failed to record task completion", "error", err)
	}
	cancel()

	e.mu.Lock()
	delete(e.running, exe.ID)
	listeners := append([]func(Ended){}, e.listeners...)
	e.mu.Unlock()

	if e.hub != nil {
		e.hub.Publish(events.TypeTaskEnded, ended)
	}
	for _, fn := range listeners {
		fn(ended)
	}
}

// Running returns the number of live processes.
func (e *Engine) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

// WaitIdle blocks until every started task, including tasks submitted by
// listeners while others end, has finished.
func (e *Engine) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and terminates running ones: SIGTERM first,
// SIGKILL for anything still alive after the grace period.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	cmds := make([]*exec.Cmd, 0, len(e.running))
	for _, cmd := range e.running {
		cmds = append(cmds, cmd)
	}
	e.mu.Unlock()

	if len(cmds) == 0 {
		return nil
	}
	e.logger.Info("terminating running tasks", "count", len(cmds))
	for _, cmd := range cmds {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			_ = cmd.Process.Kill()
		}
	}

	graceCtx, cancel := context.WithTimeout(ctx, e.opts.TerminationGrace)
	defer cancel()
	if err := e.WaitIdle(graceCtx); err == nil {
		return nil
	}

	e.logger.Warn("tasks did not exit after SIGTERM, sending SIGKILL")
	e.mu.Lock()
	for _, cmd := range e.running {
		_ = cmd.Process.Kill()
	}
	e.mu.Unlock()
	return e.WaitIdle(ctx)
}
