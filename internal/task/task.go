package task

// Scope tells which builder path produced a Task.
type Scope string

const (
	ScopeGeneral   Scope = "general"
	ScopeWorkspace Scope = "workspace"
)

// Task is a fully assembled, not yet started, CLI invocation.
type Task struct {
	Name  string
	Scope Scope

	// Definition is the host descriptor this task was resolved from, if any.
	// Resolve sets it to the caller's pointer, never a copy.
	Definition *Definition

	Request Request
	Cwd     string
	Program string
	Args    []string
	Env     []string
}
