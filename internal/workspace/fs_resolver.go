package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mattjoyce/clitask/internal/config"
	"github.com/mattjoyce/clitask/internal/log"
)

// workspaceFiles are tried in order; the first one present wins.
var workspaceFiles = []string{"workspace.json", "angular.json"}

const projectFile = "project.json"

// FSResolver reads workspace.json (or angular.json) from the configured
// workspace path on every call. Nothing is cached.
type FSResolver struct {
	cfg    config.Provider
	logger *slog.Logger
}

var _ Resolver = (*FSResolver)(nil)

func NewFSResolver(cfg config.Provider) *FSResolver {
	return &FSResolver{
		cfg:    cfg,
		logger: log.WithComponent("workspace"),
	}
}

// Verify parses the workspace file. A missing or malformed file is reported
// through Result, not as an error; errors are reserved for I/O failures.
func (r *FSResolver) Verify(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	root := r.cfg.Get(config.KeyWorkspacePath, "")
	if root == "" {
		return Result{}, nil
	}

	data, file, err := readWorkspaceFile(root)
	if err != nil {
		return Result{}, err
	}
	if data == nil {
		r.logger.Debug("no workspace file found", "workspace", root)
		return Result{}, nil
	}
	if !gjson.ValidBytes(data) {
		r.logger.Warn("workspace file is not valid JSON", "file", file)
		return Result{}, nil
	}

	snap := &Snapshot{}
	var walkErr error
	gjson.GetBytes(data, "projects").ForEach(func(key, value gjson.Result) bool {
		if err := ctx.Err(); err != nil {
			walkErr = err
			return false
		}
		p, ok := r.project(root, key.String(), value)
		if ok {
			snap.Projects = append(snap.Projects, p)
		}
		return true
	})
	if walkErr != nil {
		return Result{}, walkErr
	}
	return Result{ValidWorkspaceJSON: true, Snapshot: snap}, nil
}

// project decodes one entry of the projects map. A string value names the
// project directory holding a project.json.
func (r *FSResolver) project(root, name string, value gjson.Result) (Project, bool) {
	switch {
	case value.IsObject():
		return Project{
			Name: name,
			Root: value.Get("root").String(),
			Raw:  []byte(value.Raw),
		}, true

	case value.Type == gjson.String:
		dir := value.String()
		path := filepath.Join(root, dir, projectFile)
		raw, err := os.ReadFile(path)
		if err != nil || !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
			r.logger.Warn("skipping project with unreadable project.json", "project", name, "file", path, "error", err)
			return Project{}, false
		}
		if !gjson.GetBytes(raw, "root").Exists() {
			if withRoot, err := sjson.SetBytes(raw, "root", dir); err == nil {
				raw = withRoot
			}
		}
		return Project{
			Name: name,
			Root: gjson.GetBytes(raw, "root").String(),
			Raw:  raw,
		}, true

	default:
		r.logger.Warn("skipping project with unexpected definition", "project", name, "type", value.Type.String())
		return Project{}, false
	}
}

func readWorkspaceFile(root string) ([]byte, string, error) {
	for _, name := range workspaceFiles {
		path := filepath.Join(root, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, fmt.Errorf("read workspace file: %w", err)
		}
		return data, path, nil
	}
	return nil, "", nil
}
