// Package engine executes built tasks as local subprocesses.
//
// Submit returns as soon as the process has started; the caller never waits
// for completion. When a process ends the engine records the outcome in the
// task_runs table, publishes task.ended on the events hub, and calls every
// listener registered with OnTaskEnded. Listeners run on the engine's wait
// goroutine with no engine lock held, so they may submit further tasks.
//
// Shutdown handling:
//   - new submissions fail with ErrEngineClosed
//   - running processes receive SIGTERM
//   - after the termination grace period, survivors are killed
//
// The run log is optional: an engine built without a database skips it.
package engine
