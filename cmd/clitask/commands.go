package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/clitask/internal/config"
	"github.com/mattjoyce/clitask/internal/dispatch"
	"github.com/mattjoyce/clitask/internal/engine"
	"github.com/mattjoyce/clitask/internal/scheduler"
	"github.com/mattjoyce/clitask/internal/task"
	"github.com/mattjoyce/clitask/internal/telemetry"
	"github.com/mattjoyce/clitask/internal/tui/picker"
	"github.com/mattjoyce/clitask/internal/workspace"
)

// pickProject is swapped out in tests.
var pickProject = picker.Run

// --- ACTION IMPLEMENTATIONS ---

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	pick := fs.Bool("pick", false, "Choose the project interactively when none is given")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	req, err := parseRunRequest(fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		printRunHelp()
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if req.Positional == "" && *pick {
		name, err := chooseProject(ctx, newIndex(store))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		req.Positional = name
	}

	a, err := openApp(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open session: %v\n", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Close(sctx)
	}()

	var failed atomic.Int32
	a.engine.OnTaskEnded(func(e engine.Ended) {
		if e.Status != engine.StatusSucceeded {
			failed.Add(1)
			fmt.Fprintf(os.Stderr, "%s %s (exit %d)\n", e.TaskName, e.Status, e.ExitCode)
		}
	})

	if err := a.dispatcher.Execute(ctx, req); err != nil {
		fmt.Fprintf(os.Stderr, "Execute failed: %v\n", err)
		return 1
	}
	if err := a.engine.WaitIdle(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Interrupted, terminating tasks")
		return 1
	}
	if failed.Load() > 0 {
		return 1
	}
	return 0
}

// parseRunRequest splits "<command> [positional] [-- flags...]".
func parseRunRequest(args []string) (task.Request, error) {
	var head, flags []string
	for i, arg := range args {
		if arg == "--" {
			flags = args[i+1:]
			break
		}
		head = append(head, arg)
	}
	if len(head) == 0 || strings.TrimSpace(head[0]) == "" {
		return task.Request{}, errors.New("command is required")
	}
	if strings.HasPrefix(head[0], "-") {
		return task.Request{}, fmt.Errorf("command %q looks like a flag; put CLI flags after --", head[0])
	}
	if len(head) > 2 {
		return task.Request{}, fmt.Errorf("unexpected arguments %q; put CLI flags after --", head[2:])
	}

	req := task.Request{Command: head[0], Flags: []string{}}
	if len(head) == 2 {
		req.Positional = head[1]
	}
	if len(flags) > 0 {
		req.Flags = append(req.Flags, flags...)
	}
	return req, nil
}

func chooseProject(ctx context.Context, index *workspace.Index) (string, error) {
	entries := index.ProjectEntries(ctx, nil)
	if len(entries) == 0 {
		return "", fmt.Errorf("no projects found in workspace %q", index.WorkspacePath())
	}
	items := make([]picker.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, picker.Item{Name: e.Name, Detail: e.Project.Root})
	}
	name, err := pickProject("Select a project", items)
	if errors.Is(err, picker.ErrCancelled) {
		return "", errors.New("no project selected")
	}
	return name, err
}

type resolvedTaskView struct {
	Name       string           `json:"name"`
	Scope      task.Scope       `json:"scope"`
	Cwd        string           `json:"cwd"`
	Program    string           `json:"program"`
	Args       []string         `json:"args"`
	Definition *task.Definition `json:"definition"`
}

func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	command := fs.String("command", "", "CLI command")
	project := fs.String("project", "", "Project name")
	flagList := fs.String("flags", "", "Comma-separated CLI flags")
	rawDef := fs.String("definition", "", "Task definition as JSON (overrides the other flags)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	def := &task.Definition{Type: "clitask", Command: *command, Project: *project}
	if *flagList != "" {
		data, _ := json.Marshal(strings.Split(*flagList, ","))
		def.Flags = data
	}
	if *rawDef != "" {
		def = &task.Definition{}
		if err := json.Unmarshal([]byte(*rawDef), def); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid definition JSON: %v\n", err)
			return 1
		}
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Resolving never starts a process, so the engine needs no state.
	d := dispatch.New(
		store,
		task.NewCLIBuilder(store),
		task.NewWorkspaceBuilder(store),
		engine.New(nil, nil, engine.Options{}),
		scheduler.New(store.Config().CLI.DryRunFlag, false),
		telemetry.Nop{},
	)
	t, err := d.Resolve(context.Background(), def)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Resolve failed: %v\n", err)
		return 1
	}
	if t == nil {
		fmt.Fprintln(os.Stderr, "Definition does not resolve (needs a workspace, a command and a project)")
		return 0
	}

	return printJSON(resolvedTaskView{
		Name:       t.Name,
		Scope:      t.Scope,
		Cwd:        t.Cwd,
		Program:    t.Program,
		Args:       t.Args,
		Definition: t.Definition,
	})
}

func runProjectList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	entries := newIndex(store).ProjectEntries(context.Background(), nil)
	if *jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No projects found.")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tROOT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Project.Root)
	}
	_ = w.Flush()
	return 0
}

func runProjectOwner(args []string) int {
	fs := flag.NewFlagSet("owner", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	jsonOut := fs.Bool("json", false, "Output the project definition as JSON")

	// The path may come before or after the flags.
	var target string
	var rest []string
	for _, arg := range args {
		if target == "" && !strings.HasPrefix(arg, "-") && !flagValueExpected(rest) {
			target = arg
			continue
		}
		rest = append(rest, arg)
	}
	if err := fs.Parse(rest); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if target == "" && fs.NArg() > 0 {
		target = fs.Arg(0)
	}
	if target == "" {
		fmt.Fprintln(os.Stderr, "Usage: clitask project owner <path> [--json]")
		return 1
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid path: %v\n", err)
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	p, ok := newIndex(store).ProjectForPath(context.Background(), abs)
	if !ok {
		fmt.Fprintf(os.Stderr, "No project contains %s\n", abs)
		return 1
	}
	if *jsonOut {
		return printJSON(p)
	}
	fmt.Printf("%s\t%s\n", p.Name, p.Root)
	return 0
}

// flagValueExpected reports whether the last collected arg is a flag that
// takes a separate value.
func flagValueExpected(collected []string) bool {
	if len(collected) == 0 {
		return false
	}
	switch collected[len(collected)-1] {
	case "--config", "-config", "--workspace", "-workspace":
		return true
	}
	return false
}

func runProjectPick(args []string) int {
	fs := flag.NewFlagSet("pick", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	name, err := chooseProject(context.Background(), newIndex(store))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fmt.Println(name)
	return 0
}

func runRuns(args []string) int {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	limit := fs.Int("limit", 20, "Maximum runs to show")
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be positive")
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	ctx := context.Background()
	db, err := openState(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open state: %v\n", err)
		return 1
	}
	defer db.Close()

	runs, err := engine.New(db, nil, engine.Options{}).Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list runs: %v\n", err)
		return 1
	}
	if *jsonOut {
		if runs == nil {
			runs = []engine.Run{}
		}
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tEXIT\tSTARTED\tCOMMAND")
	for _, r := range runs {
		exit := "-"
		if r.ExitCode != nil {
			exit = fmt.Sprintf("%d", *r.ExitCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Status, exit, r.StartedAt.Local().Format(time.DateTime), r.Name)
	}
	_ = w.Flush()
	return 0
}

func runUsage(args []string) int {
	fs := flag.NewFlagSet("usage", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	ctx := context.Background()
	db, err := openState(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open state: %v\n", err)
		return 1
	}
	defer db.Close()

	counts, err := telemetry.NewStore(db).Counts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read usage: %v\n", err)
		return 1
	}
	if *jsonOut {
		if counts == nil {
			counts = []telemetry.Usage{}
		}
		return printJSON(counts)
	}
	if len(counts) == 0 {
		fmt.Println("No usage recorded.")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMMAND\tCOUNT\tLAST USED")
	for _, u := range counts {
		fmt.Fprintf(w, "%s\t%d\t%s\n", u.Command, u.Count, u.LastUsedAt.Local().Format(time.DateTime))
	}
	_ = w.Flush()
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
		return 1
	}
	cfg := store.Config()
	source := cfg.SourceFile
	if source == "" {
		source = "(defaults)"
	}
	fmt.Printf("Configuration valid: %s\n", source)

	ws := store.Get(config.KeyWorkspacePath, "")
	if ws == "" {
		fmt.Println("Workspace: not configured")
		return 0
	}
	res, err := workspace.NewFSResolver(store).Verify(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Workspace %s: %v\n", ws, err)
		return 1
	}
	if !res.ValidWorkspaceJSON {
		fmt.Printf("Workspace %s: no valid workspace.json or angular.json\n", ws)
		return 0
	}
	fmt.Printf("Workspace %s: %d projects\n", ws, len(res.Snapshot.Projects))
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	g := addGlobalFlags(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	store, err := loadStore(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	out, err := yaml.Marshal(redacted(store.Config()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render config: %v\n", err)
		return 1
	}
	fmt.Print(string(out))
	return 0
}

// redacted returns a copy of cfg with bearer secrets masked.
func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.API.Auth.APIKey != "" {
		out.API.Auth.APIKey = "********"
	}
	tokens := make([]config.APIToken, len(cfg.API.Auth.Tokens))
	for i, t := range cfg.API.Auth.Tokens {
		tokens[i] = config.APIToken{Token: "********", Scopes: t.Scopes}
	}
	out.API.Auth.Tokens = tokens
	return out
}

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}
