package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/clitask/internal/config"
)

// cliName is the workspace CLI both builders target.
const cliName = "nx"

// ErrNoWorkspace is returned when a build is requested without a workspace root.
var ErrNoWorkspace = errors.New("workspace root is not configured")

// CLIBuilder builds general CLI tasks. It prefers the workspace's locally
// installed CLI so the task runs the version the workspace pins.
type CLIBuilder struct {
	cfg config.Provider
}

// NewCLIBuilder creates a builder reading cli.* keys from cfg.
func NewCLIBuilder(cfg config.Provider) *CLIBuilder {
	return &CLIBuilder{cfg: cfg}
}

// Build assembles the task for req rooted at workspaceRoot.
func (b *CLIBuilder) Build(ctx context.Context, req Request, workspaceRoot string) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workspaceRoot == "" {
		return nil, ErrNoWorkspace
	}

	prefix := strings.Fields(b.cfg.Get(config.KeyCLIProgram, ""))
	if len(prefix) == 0 {
		if local := localCLIPath(workspaceRoot); isExecutable(local) {
			prefix = []string{local}
		} else {
			prefix = []string{b.cfg.Get(config.KeyPackageRunner, "npx"), cliName}
		}
	}
	return assemble(ScopeGeneral, prefix, req, workspaceRoot), nil
}

// WorkspaceBuilder builds workspace-scoped generator tasks. These always go
// through the package runner.
type WorkspaceBuilder struct {
	cfg config.Provider
}

// NewWorkspaceBuilder creates a builder reading cli.package_runner from cfg.
func NewWorkspaceBuilder(cfg config.Provider) *WorkspaceBuilder {
	return &WorkspaceBuilder{cfg: cfg}
}

// Build assembles the workspace-scoped task for req rooted at workspaceRoot.
func (b *WorkspaceBuilder) Build(ctx context.Context, req Request, workspaceRoot string) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workspaceRoot == "" {
		return nil, ErrNoWorkspace
	}
	prefix := []string{b.cfg.Get(config.KeyPackageRunner, "npx"), cliName}
	return assemble(ScopeWorkspace, prefix, req, workspaceRoot), nil
}

func assemble(scope Scope, prefix []string, req Request, root string) *Task {
	args := append(prefix[1:len(prefix):len(prefix)], req.Args()...)
	return &Task{
		Name:    cliName + " " + req.String(),
		Scope:   scope,
		Request: req.Clone(),
		Cwd:     root,
		Program: prefix[0],
		Args:    args,
		Env:     []string{"FORCE_COLOR=true"},
	}
}

func localCLIPath(root string) string {
	return filepath.Join(root, "node_modules", ".bin", cliName)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
