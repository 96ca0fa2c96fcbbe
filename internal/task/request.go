package task

import (
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"

	"github.com/zeebo/blake3"
)

// Request is an unresolved intent to run the workspace CLI.
// Flags are passed to the process verbatim and in order.
type Request struct {
	Command    string   `json:"command"`
	Positional string   `json:"positional"`
	Flags      []string `json:"flags"`
}

// Clone returns a copy that shares no memory with r.
func (r Request) Clone() Request {
	r.Flags = slices.Clone(r.Flags)
	return r
}

// HasFlag reports whether flag appears verbatim in r.Flags.
func (r Request) HasFlag(flag string) bool {
	return slices.Contains(r.Flags, flag)
}

// Args returns the CLI argument vector for r. An empty positional is omitted.
func (r Request) Args() []string {
	args := make([]string, 0, 2+len(r.Flags))
	args = append(args, r.Command)
	if r.Positional != "" {
		args = append(args, r.Positional)
	}
	return append(args, r.Flags...)
}

// String renders r the way it would be typed after the CLI name.
func (r Request) String() string {
	return strings.Join(r.Args(), " ")
}

// Fingerprint is a stable content hash of the request, prefixed "blake3:".
func (r Request) Fingerprint() string {
	flags := r.Flags
	if flags == nil {
		flags = []string{}
	}
	// JSON encoding keeps field boundaries unambiguous.
	data, _ := json.Marshal([]any{r.Command, r.Positional, flags})
	sum := blake3.Sum256(data)
	return "blake3:" + hex.EncodeToString(sum[:])
}
