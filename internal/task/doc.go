// Package task holds the value types that flow through clitask and the
// builders that turn a command request into an executable workspace CLI task.
//
// A Request is the unresolved intent (command, positional, flags). A Definition
// is the descriptor a host hands to Resolve; the built Task keeps a pointer to
// it so hosts can deduplicate by identity. Builders only assemble the process
// invocation; they never start anything.
package task
