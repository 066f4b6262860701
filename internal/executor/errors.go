// Package executor implements spec.md §4.6: the per-actor step executor
// state machine that drives one actor's coroutine loop from inbox change to
// wit invocation to new step.
package executor

import "errors"

// ErrStopped is returned by Run when the executor was stopped before
// producing an error of its own.
var ErrStopped = errors.New("executor: stopped")
