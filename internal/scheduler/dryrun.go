package scheduler

import (
	"sync"

	"github.com/mattjoyce/clitask/internal/task"
)

// DefaultDryRunFlag marks a request as a dry-run.
const DefaultDryRunFlag = "--dry-run"

// State is the dry-run scheduler's observable state.
type State string

const (
	StateIdle               State = "idle"
	StateRunning            State = "running"
	StateRunningWithPending State = "running_with_pending"
)

// Decision is the outcome of Admit.
type Decision int

const (
	// DecisionRun clears the request for immediate execution.
	DecisionRun Decision = iota
	// DecisionDefer means the request is now the pending dry-run.
	DecisionDefer
)

func (d Decision) String() string {
	if d == DecisionDefer {
		return "defer"
	}
	return "run"
}

// Status is a point-in-time copy of the scheduler slots.
type Status struct {
	State    State         `json:"state"`
	ActiveID string        `json:"active_id,omitempty"`
	Pending  *task.Request `json:"pending,omitempty"`
}

// DryRun owns the active and pending dry-run slots.
type DryRun struct {
	flag        string
	matchHandle bool

	mu      sync.Mutex
	active  string
	pending *task.Request
}

// New creates an idle scheduler. An empty flag means DefaultDryRunFlag.
func New(flag string, matchHandle bool) *DryRun {
	if flag == "" {
		flag = DefaultDryRunFlag
	}
	return &DryRun{flag: flag, matchHandle: matchHandle}
}

// Flag returns the literal that marks a dry-run.
func (s *DryRun) Flag() string { return s.flag }

// IsDryRun reports whether req carries the dry-run flag.
func (s *DryRun) IsDryRun(req task.Request) bool {
	return req.HasFlag(s.flag)
}

// Admit decides whether req may run now. A dry-run arriving while another is
// active becomes the pending request, replacing any earlier one.
func (s *DryRun) Admit(req task.Request) Decision {
	if !s.IsDryRun(req) {
		return DecisionRun
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == "" {
		return DecisionRun
	}
	pending := req.Clone()
	s.pending = &pending
	return DecisionDefer
}

// Started records handleID as the active dry-run when req is a dry-run.
// It is a no-op for other requests.
func (s *DryRun) Started(req task.Request, handleID string) {
	if !s.IsDryRun(req) {
		return
	}
	s.mu.Lock()
	s.active = handleID
	s.mu.Unlock()
}

// Ended processes a task-ended notification. It clears the active slot and,
// when a pending request exists, removes and returns it for replay.
func (s *DryRun) Ended(handleID string) (task.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.matchHandle && handleID != s.active {
		return task.Request{}, false
	}

	s.active = ""
	if s.pending == nil {
		return task.Request{}, false
	}
	next := *s.pending
	s.pending = nil
	return next, true
}

// State returns the current state.
func (s *DryRun) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Status returns a copy of both slots.
func (s *DryRun) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{State: s.stateLocked(), ActiveID: s.active}
	if s.pending != nil {
		p := s.pending.Clone()
		st.Pending = &p
	}
	return st
}

func (s *DryRun) stateLocked() State {
	switch {
	case s.active == "":
		return StateIdle
	case s.pending == nil:
		return StateRunning
	default:
		return StateRunningWithPending
	}
}
