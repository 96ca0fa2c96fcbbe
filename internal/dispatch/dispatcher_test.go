package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"github.com/mattjoyce/clitask/internal/dispatch/mocks"
	"github.com/mattjoyce/clitask/internal/engine"
	"github.com/mattjoyce/clitask/internal/events"
	"github.com/mattjoyce/clitask/internal/scheduler"
	"github.com/mattjoyce/clitask/internal/task"
)

const testWorkspace = "/ws"

type staticConfig map[string]string

func (c staticConfig) Get(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

type fixture struct {
	general   *mocks.MockTaskBuilder
	workspace *mocks.MockTaskBuilder
	engine    *mocks.MockEngine
	telemetry *mocks.MockTelemetry
	sched     *scheduler.DryRun
	d         *Dispatcher
}

func newFixture(t *testing.T, cfg staticConfig, matchHandle bool) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		general:   mocks.NewMockTaskBuilder(ctrl),
		workspace: mocks.NewMockTaskBuilder(ctrl),
		engine:    mocks.NewMockEngine(ctrl),
		telemetry: mocks.NewMockTelemetry(ctrl),
		sched:     scheduler.New(scheduler.DefaultDryRunFlag, matchHandle),
	}
	f.d = New(cfg, f.general, f.workspace, f.engine, f.sched, f.telemetry)
	return f
}

func defaultFixture(t *testing.T) *fixture {
	return newFixture(t, staticConfig{"nxWorkspacePath": testWorkspace}, false)
}

// expectRun sets up a full successful pass through the general builder.
func (f *fixture) expectRun(req task.Request, handleID string) {
	t := &task.Task{Name: "nx " + req.String(), Request: req}
	f.general.EXPECT().Build(gomock.Any(), req, testWorkspace).Return(t, nil)
	f.telemetry.EXPECT().Record(gomock.Any(), req.Command)
	f.engine.EXPECT().Submit(gomock.Any(), t).Return(engine.Execution{ID: handleID, TaskName: t.Name}, nil)
}

func dryRun(positional string) task.Request {
	return task.Request{Command: "generate", Positional: positional, Flags: []string{"--dry-run"}}
}

func TestResolveReturnsNilWhenUnresolvable(t *testing.T) {
	tests := []struct {
		name string
		cfg  staticConfig
		def  *task.Definition
	}{
		{name: "no workspace", cfg: staticConfig{}, def: &task.Definition{Command: "build", Project: "app"}},
		{name: "nil definition", cfg: staticConfig{"nxWorkspacePath": testWorkspace}, def: nil},
		{name: "no command", cfg: staticConfig{"nxWorkspacePath": testWorkspace}, def: &task.Definition{Project: "app"}},
		{name: "no project", cfg: staticConfig{"nxWorkspacePath": testWorkspace}, def: &task.Definition{Command: "build"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.cfg, false)
			got, err := f.d.Resolve(context.Background(), tt.def)
			assert.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestResolveKeepsDefinitionIdentity(t *testing.T) {
	f := defaultFixture(t)
	def := &task.Definition{Type: "nx", Command: "build", Project: "app", Flags: json.RawMessage(`["--prod","--verbose"]`)}
	want := task.Request{Command: "build", Positional: "app", Flags: []string{"--prod", "--verbose"}}

	f.general.EXPECT().Build(gomock.Any(), want, testWorkspace).Return(&task.Task{Name: "nx build app --prod --verbose"}, nil)

	got, err := f.d.Resolve(context.Background(), def)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	assert.Same(t, def, got.Definition)
	assert.Equal(t, "nx build app --prod --verbose", got.Name)
}

func TestResolveIgnoresNonArrayFlags(t *testing.T) {
	f := defaultFixture(t)
	def := &task.Definition{Command: "test", Project: "lib", Flags: json.RawMessage(`"--watch"`)}
	want := task.Request{Command: "test", Positional: "lib", Flags: []string{}}

	f.general.EXPECT().Build(gomock.Any(), want, testWorkspace).Return(&task.Task{}, nil)

	got, err := f.d.Resolve(context.Background(), def)
	assert.NoError(t, err)
	assert.Same(t, def, got.Definition)
}

func TestResolvePropagatesBuildError(t *testing.T) {
	f := defaultFixture(t)
	boom := errors.New("no cli")
	f.general.EXPECT().Build(gomock.Any(), gomock.Any(), testWorkspace).Return(nil, boom)

	got, err := f.d.Resolve(context.Background(), &task.Definition{Command: "build", Project: "app"})
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, boom))
}

func TestBuildRejectsNilTask(t *testing.T) {
	f := defaultFixture(t)
	f.general.EXPECT().Build(gomock.Any(), gomock.Any(), testWorkspace).Return(nil, nil)

	_, err := f.d.Build(context.Background(), task.Request{Command: "build"})
	assert.True(t, errors.Is(err, errNoTask))
}

func TestExecuteSubmitsNonDryRun(t *testing.T) {
	f := defaultFixture(t)
	req := task.Request{Command: "build", Positional: "app", Flags: []string{"--prod"}}
	f.expectRun(req, "h1")

	assert.NoError(t, f.d.Execute(context.Background(), req))
	assert.Equal(t, scheduler.StateIdle, f.d.Status().State)
}

func TestExecuteDefersSecondDryRun(t *testing.T) {
	f := defaultFixture(t)
	first, second := dryRun("app"), dryRun("lib")
	f.expectRun(first, "h1")

	assert.NoError(t, f.d.Execute(context.Background(), first))
	assert.NoError(t, f.d.Execute(context.Background(), second))

	st := f.d.Status()
	assert.Equal(t, scheduler.StateRunningWithPending, st.State)
	assert.Equal(t, "h1", st.ActiveID)
	if assert.NotNil(t, st.Pending) {
		assert.Equal(t, second, *st.Pending)
	}
}

func TestDispatchReportsDecision(t *testing.T) {
	f := defaultFixture(t)
	first, second := dryRun("app"), dryRun("lib")
	f.expectRun(first, "h1")

	out, err := f.d.Dispatch(context.Background(), first)
	assert.NoError(t, err)
	assert.Equal(t, scheduler.DecisionRun, out.Decision)
	assert.Equal(t, scheduler.StateRunning, out.Scheduler.State)
	assert.Equal(t, "h1", out.Scheduler.ActiveID)

	out, err = f.d.Dispatch(context.Background(), second)
	assert.NoError(t, err)
	assert.Equal(t, scheduler.DecisionDefer, out.Decision)
	if assert.NotNil(t, out.Scheduler.Pending) {
		assert.Equal(t, second, *out.Scheduler.Pending)
	}
}

func TestAtMostOneActiveDryRun(t *testing.T) {
	f := defaultFixture(t)
	first := dryRun("app")
	f.expectRun(first, "h1")

	assert.NoError(t, f.d.Execute(context.Background(), first))
	for _, p := range []string{"a", "b", "c", "d"} {
		assert.NoError(t, f.d.Execute(context.Background(), dryRun(p)))
		assert.Equal(t, "h1", f.d.Status().ActiveID)
	}
}

func TestLatestDeferredDryRunWins(t *testing.T) {
	f := defaultFixture(t)
	first, second, third := dryRun("one"), dryRun("two"), dryRun("three")

	f.expectRun(first, "h1")
	assert.NoError(t, f.d.Execute(context.Background(), first))
	assert.NoError(t, f.d.Execute(context.Background(), second))
	assert.NoError(t, f.d.Execute(context.Background(), third))

	// Only the third is ever built; second is discarded.
	f.expectRun(third, "h3")
	f.d.HandleTaskEnded(context.Background(), "h1")

	st := f.d.Status()
	assert.Equal(t, scheduler.StateRunning, st.State)
	assert.Equal(t, "h3", st.ActiveID)
	assert.Nil(t, st.Pending)
}

func TestReplayHappensInsideHandleTaskEnded(t *testing.T) {
	f := defaultFixture(t)
	first, second := dryRun("one"), dryRun("two")

	f.expectRun(first, "h1")
	assert.NoError(t, f.d.Execute(context.Background(), first))
	assert.NoError(t, f.d.Execute(context.Background(), second))

	replayed := false
	replayTask := &task.Task{Name: "nx generate two --dry-run"}
	f.general.EXPECT().Build(gomock.Any(), second, testWorkspace).Return(replayTask, nil)
	f.telemetry.EXPECT().Record(gomock.Any(), "generate")
	f.engine.EXPECT().Submit(gomock.Any(), replayTask).DoAndReturn(func(context.Context, *task.Task) (engine.Execution, error) {
		replayed = true
		return engine.Execution{ID: "h2"}, nil
	})

	f.d.HandleTaskEnded(context.Background(), "h1")
	assert.True(t, replayed)

	st := f.d.Status()
	assert.Equal(t, scheduler.StateRunning, st.State)
	assert.Equal(t, "h2", st.ActiveID)
}

func TestTaskEndedWithoutPendingOnlyClears(t *testing.T) {
	f := defaultFixture(t)
	first := dryRun("one")
	f.expectRun(first, "h1")

	assert.NoError(t, f.d.Execute(context.Background(), first))
	f.d.HandleTaskEnded(context.Background(), "h1")

	assert.Equal(t, scheduler.StateIdle, f.d.Status().State)

	// Ending again with nothing active is harmless.
	f.d.HandleTaskEnded(context.Background(), "h1")
	assert.Equal(t, scheduler.StateIdle, f.d.Status().State)
}

func TestAnyTaskEndClearsActiveDryRun(t *testing.T) {
	f := defaultFixture(t)
	dry, other := dryRun("one"), task.Request{Command: "lint", Positional: "app"}
	f.expectRun(dry, "h1")
	f.expectRun(other, "h2")

	assert.NoError(t, f.d.Execute(context.Background(), dry))
	assert.NoError(t, f.d.Execute(context.Background(), other))
	f.d.HandleTaskEnded(context.Background(), "h2")

	assert.Equal(t, scheduler.StateIdle, f.d.Status().State)
}

func TestMatchCompletionHandleIgnoresOtherTasks(t *testing.T) {
	f := newFixture(t, staticConfig{"nxWorkspacePath": testWorkspace}, true)
	dry, other := dryRun("one"), task.Request{Command: "lint", Positional: "app"}
	f.expectRun(dry, "h1")
	f.expectRun(other, "h2")

	assert.NoError(t, f.d.Execute(context.Background(), dry))
	assert.NoError(t, f.d.Execute(context.Background(), other))
	f.d.HandleTaskEnded(context.Background(), "h2")
	assert.Equal(t, "h1", f.d.Status().ActiveID)

	f.d.HandleTaskEnded(context.Background(), "h1")
	assert.Equal(t, scheduler.StateIdle, f.d.Status().State)
}

func TestNonDryRunNeverDeferred(t *testing.T) {
	f := defaultFixture(t)
	first := dryRun("one")
	f.expectRun(first, "h1")
	assert.NoError(t, f.d.Execute(context.Background(), first))
	assert.NoError(t, f.d.Execute(context.Background(), dryRun("two")))

	for i, c := range []string{"build", "test", "lint"} {
		req := task.Request{Command: c, Positional: "app"}
		f.expectRun(req, c)
		assert.NoError(t, f.d.Execute(context.Background(), req), "request %d", i)
	}

	st := f.d.Status()
	assert.Equal(t, scheduler.StateRunningWithPending, st.State)
	assert.Equal(t, "h1", st.ActiveID)
	assert.Equal(t, "two", st.Pending.Positional)
}

func TestExecuteRewritesWorkspaceGenerator(t *testing.T) {
	f := defaultFixture(t)
	req := task.Request{Command: "generate", Positional: "@nrwl/workspace:workspace-generator:baz", Flags: []string{"--name=x"}}
	rewritten := task.Request{Command: "workspace-generator", Positional: "baz", Flags: []string{"--name=x"}}
	built := &task.Task{Name: "nx workspace-generator baz --name=x", Scope: task.ScopeWorkspace}

	gomock.InOrder(
		f.workspace.EXPECT().Build(gomock.Any(), rewritten, testWorkspace).Return(built, nil),
		f.telemetry.EXPECT().Record(gomock.Any(), "generate"),
		f.engine.EXPECT().Submit(gomock.Any(), built).Return(engine.Execution{ID: "h1"}, nil),
	)

	assert.NoError(t, f.d.Execute(context.Background(), req))
}

func TestExecuteRewrittenDryRunStillScheduled(t *testing.T) {
	f := defaultFixture(t)
	req := task.Request{Command: "generate", Positional: "workspace-generator:my-gen", Flags: []string{"--dry-run"}}
	rewritten := task.Request{Command: "workspace-generator", Positional: "my-gen", Flags: []string{"--dry-run"}}
	built := &task.Task{Name: "nx workspace-generator my-gen --dry-run"}

	f.workspace.EXPECT().Build(gomock.Any(), rewritten, testWorkspace).Return(built, nil)
	f.telemetry.EXPECT().Record(gomock.Any(), "generate")
	f.engine.EXPECT().Submit(gomock.Any(), built).Return(engine.Execution{ID: "h1"}, nil)

	assert.NoError(t, f.d.Execute(context.Background(), req))
	assert.Equal(t, "h1", f.d.Status().ActiveID)
}

func TestExecutePlainGenerateUsesGeneralBuilder(t *testing.T) {
	f := defaultFixture(t)
	req := task.Request{Command: "generate", Positional: "baz"}
	f.expectRun(req, "h1")

	assert.NoError(t, f.d.Execute(context.Background(), req))
}

func TestExecutePluginGeneratorUsesGeneralBuilder(t *testing.T) {
	f := defaultFixture(t)
	req := task.Request{Command: "generate", Positional: "@nrwl/react:component", Flags: []string{"--name=header"}}
	f.expectRun(req, "h1")

	assert.NoError(t, f.d.Execute(context.Background(), req))
}

func TestExecuteBuildErrorLeavesStateUntouched(t *testing.T) {
	f := defaultFixture(t)
	boom := errors.New("cli missing")
	f.general.EXPECT().Build(gomock.Any(), gomock.Any(), testWorkspace).Return(nil, boom)

	err := f.d.Execute(context.Background(), dryRun("one"))
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "build task")
	assert.Equal(t, scheduler.StateIdle, f.d.Status().State)
}

func TestExecuteSubmitErrorLeavesStateUntouched(t *testing.T) {
	f := defaultFixture(t)
	req := dryRun("one")
	built := &task.Task{Name: "nx generate one --dry-run"}
	f.general.EXPECT().Build(gomock.Any(), req, testWorkspace).Return(built, nil)
	f.telemetry.EXPECT().Record(gomock.Any(), "generate")
	f.engine.EXPECT().Submit(gomock.Any(), built).Return(engine.Execution{}, engine.ErrEngineClosed)

	err := f.d.Execute(context.Background(), req)
	assert.True(t, errors.Is(err, engine.ErrEngineClosed))
	assert.Contains(t, err.Error(), "submit task")
	assert.Equal(t, scheduler.StateIdle, f.d.Status().State)
}

func TestFailedReplayReturnsToIdle(t *testing.T) {
	f := defaultFixture(t)
	first, second := dryRun("one"), dryRun("two")
	f.expectRun(first, "h1")
	assert.NoError(t, f.d.Execute(context.Background(), first))
	assert.NoError(t, f.d.Execute(context.Background(), second))

	f.general.EXPECT().Build(gomock.Any(), second, testWorkspace).Return(nil, errors.New("gone"))
	f.d.HandleTaskEnded(context.Background(), "h1")

	st := f.d.Status()
	assert.Equal(t, scheduler.StateIdle, st.State)
	assert.Nil(t, st.Pending)
}

func TestDeferAndReplayPublishEvents(t *testing.T) {
	f := defaultFixture(t)
	hub := events.NewHub(8)
	f.d.WithEvents(hub)

	first, second := dryRun("one"), dryRun("two")
	f.expectRun(first, "h1")
	assert.NoError(t, f.d.Execute(context.Background(), first))
	assert.NoError(t, f.d.Execute(context.Background(), second))
	f.expectRun(second, "h2")
	f.d.HandleTaskEnded(context.Background(), "h1")

	evs := hub.SnapshotSince(0)
	if assert.Len(t, evs, 2) {
		assert.Equal(t, events.TypeDryRunDeferred, evs[0].Type)
		assert.Equal(t, events.TypeDryRunReplayed, evs[1].Type)
		assert.Contains(t, string(evs[1].Data), `"positional":"two"`)
	}
}
