package workspace

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Project is one workspace project. Root is relative to the workspace path;
// every other attribute stays in Raw untouched.
type Project struct {
	Name string
	Root string
	Raw  json.RawMessage
}

// Definition returns Raw with a "name" attribute added. A name already
// present in Raw is kept.
func (p Project) Definition() json.RawMessage {
	raw := []byte(p.Raw)
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		raw = []byte(`{}`)
	}
	if gjson.GetBytes(raw, "name").Exists() {
		return json.RawMessage(raw)
	}
	merged, err := sjson.SetBytes(raw, "name", p.Name)
	if err != nil {
		return json.RawMessage(raw)
	}
	return json.RawMessage(merged)
}

// MarshalJSON renders the project as its definition.
func (p Project) MarshalJSON() ([]byte, error) {
	return p.Definition(), nil
}

// Projects is an ordered project list, in the order the workspace file
// declares them.
type Projects []Project

// Names returns the project names in order.
func (ps Projects) Names() []string {
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name)
	}
	return names
}

// Lookup returns the first project called name.
func (ps Projects) Lookup(name string) (Project, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// Snapshot is a parsed workspace document.
type Snapshot struct {
	Projects Projects
}

// Result is what a Resolver reports about the configured workspace.
type Result struct {
	ValidWorkspaceJSON bool
	Snapshot           *Snapshot
}

// Resolver reads the workspace configuration.
type Resolver interface {
	Verify(ctx context.Context) (Result, error)
}

// Entry pairs a project name with its project.
type Entry struct {
	Name    string  `json:"name"`
	Project Project `json:"project"`
}
