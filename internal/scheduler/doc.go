// Package scheduler serializes dry-run executions.
//
// At most one dry-run is active at a time. A dry-run requested while another
// is active is held as the pending request; a later one replaces it (only the
// most recent survives). When the active execution ends, the pending request
// is handed back to the caller for immediate replay, so the scheduler moves
// from RunningWithPending straight to Running.
//
// States:
//   - Idle: no active dry-run
//   - Running: one active dry-run, nothing pending
//   - RunningWithPending: one active dry-run, one pending request
//
// Requests without the dry-run flag bypass the state machine entirely.
// Classification is a plain string membership test on the flags.
//
// Task-ended notifications from the execution engine fire for every task, not
// only dry-runs. By default any ended task clears the active dry-run, which
// matches the upstream event's lack of identity. With handle matching on, an
// end is only honoured for the active execution's id.
package scheduler
