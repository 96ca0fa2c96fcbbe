package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattjoyce/clitask/internal/api"
	"github.com/mattjoyce/clitask/internal/config"
	"github.com/mattjoyce/clitask/internal/dispatch"
	"github.com/mattjoyce/clitask/internal/engine"
	"github.com/mattjoyce/clitask/internal/events"
	"github.com/mattjoyce/clitask/internal/lock"
	"github.com/mattjoyce/clitask/internal/log"
	"github.com/mattjoyce/clitask/internal/scheduler"
	"github.com/mattjoyce/clitask/internal/storage"
	"github.com/mattjoyce/clitask/internal/task"
	"github.com/mattjoyce/clitask/internal/telemetry"
	"github.com/mattjoyce/clitask/internal/workspace"
)

const eventBufferSize = 256

// usageRecorder is satisfied by both telemetry.Store and telemetry.Nop.
type usageRecorder interface {
	dispatch.Telemetry
	api.UsageReader
}

// globalFlags are accepted by every command that touches configuration.
type globalFlags struct {
	configPath string
	workspace  string
}

func addGlobalFlags(fs *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVar(&g.configPath, "config", "", "Path to config file or directory")
	fs.StringVar(&g.workspace, "workspace", "", "Workspace root (overrides workspace.path)")
	return g
}

// loadStore loads configuration, applies --workspace and sets up logging.
func loadStore(g *globalFlags) (*config.Store, error) {
	cfg, err := config.LoadOrDefault(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store := config.NewStore(cfg)
	if g.workspace != "" {
		abs, err := filepath.Abs(g.workspace)
		if err != nil {
			return nil, fmt.Errorf("resolve workspace path: %w", err)
		}
		store.SetWorkspacePath(abs)
	}
	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	return store, nil
}

func newIndex(store *config.Store) *workspace.Index {
	return workspace.NewIndex(workspace.NewFSResolver(store), store)
}

// app is the fully wired session used by serve and run.
type app struct {
	store      *config.Store
	db         *sql.DB
	hub        *events.Hub
	engine     *engine.Engine
	usage      usageRecorder
	index      *workspace.Index
	dispatcher *dispatch.Dispatcher
	session    *lock.Session
	logger     *slog.Logger
}

// openApp acquires the session lock, opens state and wires the dispatcher
// to the engine. Callers must Close the app.
func openApp(ctx context.Context, store *config.Store) (*app, error) {
	cfg := store.Config()
	logger := log.WithComponent("main")

	session, err := lock.Acquire(lock.PathFor(filepath.Dir(cfg.State.Path)))
	if err != nil {
		return nil, err
	}

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		_ = session.Release()
		return nil, err
	}
	logger.Debug("state opened", "path", cfg.State.Path)

	hub := events.NewHub(eventBufferSize)
	eng := engine.New(db, hub, engine.Options{
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		TerminationGrace: cfg.Engine.TerminationGrace,
	})
	if n, err := eng.RecoverOrphans(ctx); err != nil {
		logger.Warn("orphan recovery failed", "error", err)
	} else if n > 0 {
		logger.Info("marked orphaned runs", "count", n)
	}

	var usage usageRecorder = telemetry.Nop{}
	if cfg.Telemetry.Enabled {
		usage = telemetry.NewStore(db)
	}

	d := dispatch.New(
		store,
		task.NewCLIBuilder(store),
		task.NewWorkspaceBuilder(store),
		eng,
		scheduler.New(cfg.CLI.DryRunFlag, cfg.Scheduler.MatchCompletionHandle),
		usage,
	).WithEvents(hub)
	eng.OnTaskEnded(func(e engine.Ended) {
		d.HandleTaskEnded(context.Background(), e.ExecutionID)
	})

	return &app{
		store:      store,
		db:         db,
		hub:        hub,
		engine:     eng,
		usage:      usage,
		index:      newIndex(store),
		dispatcher: d,
		session:    session,
		logger:     logger,
	}, nil
}

// Close terminates running tasks and releases state.
func (a *app) Close(ctx context.Context) {
	if err := a.engine.Shutdown(ctx); err != nil {
		a.logger.Warn("engine shutdown", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close state", "error", err)
	}
	if err := a.session.Release(); err != nil {
		a.logger.Warn("release session lock", "error", err)
	}
}

// openState opens the state database read-side for commands that only
// report on it. It does not take the session lock.
func openState(ctx context.Context, store *config.Store) (*sql.DB, error) {
	path := store.Config().State.Path
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no state at %s: %w", path, err)
	}
	return storage.OpenSQLite(ctx, path)
}
