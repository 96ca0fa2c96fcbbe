// Package rewrite detects workspace generator references in generate
// commands and rewrites them into the workspace-scoped CLI form.
package rewrite

import (
	"regexp"

	"github.com/mattjoyce/clitask/internal/task"
)

// GenerateCommand is the only command whose positional is inspected.
const GenerateCommand = "generate"

// workspaceCommandPrefix is prepended to the kind group.
const workspaceCommandPrefix = "workspace-"

// generatorName matches "[@scope/][<package>:]workspace-<kind>:<name>" where
// kind is generator or schematic. Plugin generators such as
// "@nrwl/react:component" carry no workspace- marker and do not match.
// Group 1 is the kind, group 2 the generator's bare name.
var generatorName = regexp.MustCompile(`^(?:@[A-Za-z0-9_.~-]+/)?(?:[A-Za-z0-9_.~-]+:)?workspace-(generator|schematic):(\S+)$`)

// Match returns the capture elements for positional (whole match first), or
// nil when it is not a generator reference.
func Match(positional string) []string {
	return generatorName.FindStringSubmatch(positional)
}

// qualifies holds the threshold: a workspace generator needs more than two
// capture elements. Anything shorter passes through untouched.
func qualifies(m []string) bool {
	return len(m) > 2
}

// Rewrite returns the workspace-scoped form of req and true when req is a
// generate command naming a workspace generator. Otherwise req comes back
// unchanged with false. Flags are carried over as-is.
func Rewrite(req task.Request) (task.Request, bool) {
	if req.Command != GenerateCommand {
		return req, false
	}
	m := Match(req.Positional)
	if !qualifies(m) {
		return req, false
	}
	return task.Request{
		Command:    workspaceCommandPrefix + m[1],
		Positional: m[2],
		Flags:      req.Flags,
	}, true
}
