package workspace

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mattjoyce/clitask/internal/config"
	"github.com/mattjoyce/clitask/internal/log"
)

// Index answers project queries against the configured workspace.
type Index struct {
	resolver Resolver
	cfg      config.Provider
	logger   *slog.Logger
}

func NewIndex(resolver Resolver, cfg config.Provider) *Index {
	return &Index{
		resolver: resolver,
		cfg:      cfg,
		logger:   log.WithComponent("index"),
	}
}

// WorkspacePath returns the configured workspace root, or "".
func (x *Index) WorkspacePath() string {
	return x.cfg.Get(config.KeyWorkspacePath, "")
}

// Projects returns snap's projects when snap is non-nil, otherwise asks the
// resolver. An invalid or missing workspace yields an empty list.
func (x *Index) Projects(ctx context.Context, snap *Snapshot) Projects {
	if snap != nil {
		return snap.Projects
	}

	res, err := x.resolver.Verify(ctx)
	if err != nil {
		x.logger.Warn("workspace verification failed", "error", err)
		return Projects{}
	}
	if !res.ValidWorkspaceJSON || res.Snapshot == nil {
		x.logger.Debug("workspace is not valid")
		return Projects{}
	}
	return res.Snapshot.Projects
}

// ProjectNames lists project names in document order.
func (x *Index) ProjectNames(ctx context.Context) []string {
	return x.Projects(ctx, nil).Names()
}

// ProjectEntries lists (name, project) pairs in document order.
func (x *Index) ProjectEntries(ctx context.Context, snap *Snapshot) []Entry {
	projects := x.Projects(ctx, snap)
	out := make([]Entry, 0, len(projects))
	for _, p := range projects {
		out = append(out, Entry{Name: p.Name, Project: p})
	}
	return out
}

// ProjectForPath returns the first project whose root is path or contains
// it. The returned project's Raw carries its name.
func (x *Index) ProjectForPath(ctx context.Context, path string) (Project, bool) {
	ws := x.WorkspacePath()
	if ws == "" {
		return Project{}, false
	}

	for _, e := range x.ProjectEntries(ctx, nil) {
		if !contains(filepath.Join(ws, e.Project.Root), path) {
			continue
		}
		p := e.Project
		p.Raw = p.Definition()
		return p, true
	}
	return Project{}, false
}

// contains reports whether path is dir or lies beneath it. Both sides are
// compared cleaned, so a trailing separator or "." element does not matter.
func contains(dir, path string) bool {
	if dir == path {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
