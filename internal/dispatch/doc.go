// Package dispatch turns command requests into started tasks.
//
// The Dispatcher is the single entry point for running a workspace CLI
// command. For each request it:
//   - asks the dry-run scheduler whether the request may run now
//   - rewrites workspace generator references (generate @scope/pkg:name)
//     and routes them to the workspace-scoped builder
//   - builds the task, records usage of the original command and submits it
//   - records a started dry-run as the active one
//
// Completion is reported back through HandleTaskEnded. When a deferred
// dry-run is waiting it is replayed before the dispatcher lock is released,
// so observers never see the scheduler idle between the two.
//
// Execute and HandleTaskEnded are serialized on one mutex.
package dispatch
