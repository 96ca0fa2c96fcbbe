package task

import "encoding/json"

// Definition is the task descriptor supplied by a host's task-resolution hook.
// Flags is kept raw because hosts do not guarantee it is an array.
type Definition struct {
	Type    string          `json:"type,omitempty"`
	Command string          `json:"command,omitempty"`
	Project string          `json:"project,omitempty"`
	Flags   json.RawMessage `json:"flags,omitempty"`
}

// FlagList returns the flags when they are a JSON array of strings, and an
// empty list for anything else.
func (d *Definition) FlagList() []string {
	if d == nil || len(d.Flags) == 0 {
		return []string{}
	}
	var flags []string
	if err := json.Unmarshal(d.Flags, &flags); err != nil || flags == nil {
		return []string{}
	}
	return flags
}
