package task

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestArgs(t *testing.T) {
	req := Request{Command: "build", Positional: "app", Flags: []string{"--prod", "--verbose"}}
	assert.Equal(t, []string{"build", "app", "--prod", "--verbose"}, req.Args())
	assert.Equal(t, "build app --prod --verbose", req.String())

	noPos := Request{Command: "graph"}
	assert.Equal(t, []string{"graph"}, noPos.Args())
}

func TestRequestCloneIsIndependent(t *testing.T) {
	req := Request{Command: "lint", Positional: "app", Flags: []string{"--fix"}}
	c := req.Clone()
	c.Flags[0] = "--changed"
	assert.Equal(t, "--fix", req.Flags[0])
}

func TestRequestHasFlagIsExactMatch(t *testing.T) {
	req := Request{Flags: []string{"--dry-run=false", "--dry"}}
	assert.False(t, req.HasFlag("--dry-run"))
	assert.True(t, req.HasFlag("--dry"))
}

func TestFingerprint(t *testing.T) {
	a := Request{Command: "generate", Positional: "lib", Flags: []string{"--dry-run"}}
	b := Request{Command: "generate", Positional: "lib", Flags: []string{"--dry-run"}}
	c := Request{Command: "generate", Positional: "lib --dry-run"}

	assert.True(t, strings.HasPrefix(a.Fingerprint(), "blake3:"))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint(), "field boundaries must matter")
	assert.Equal(t, Request{Command: "x"}.Fingerprint(), Request{Command: "x", Flags: []string{}}.Fingerprint())
}

func TestDefinitionFlagList(t *testing.T) {
	tests := []struct {
		name  string
		flags string
		want  []string
	}{
		{name: "array", flags: `["--prod","--skip-nx-cache"]`, want: []string{"--prod", "--skip-nx-cache"}},
		{name: "missing", flags: ``, want: []string{}},
		{name: "null", flags: `null`, want: []string{}},
		{name: "string", flags: `"--prod"`, want: []string{}},
		{name: "object", flags: `{"prod":true}`, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &Definition{Command: "build", Project: "app"}
			if tt.flags != "" {
				def.Flags = json.RawMessage(tt.flags)
			}
			assert.Equal(t, tt.want, def.FlagList())
		})
	}

	var nilDef *Definition
	assert.Equal(t, []string{}, nilDef.FlagList())
}
