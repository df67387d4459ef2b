package core

import (
	"context"
	"time"
)

// Outcome is the result of one dispatched unit of work.
type Outcome struct {
	Value    any
	Err      error
	Started  time.Time
	Finished time.Time
	Attempts int
}

// Failed reports whether the work ended with an error.
func (o Outcome) Failed() bool { return o.Err != nil }

// Duration is the wall time between start and finish.
func (o Outcome) Duration() time.Duration {
	if o.Started.IsZero() || o.Finished.IsZero() {
		return 0
	}
	return o.Finished.Sub(o.Started)
}

// CompletionFunc receives the outcome of a dispatched unit of work.
// Dispatchers must call it exactly once per accepted dispatch, whether the
// work succeeded or not.
type CompletionFunc func(Outcome)

// Dispatcher hands a unit of work to an external worker mechanism.
//
// Dispatch must return promptly without running the work on the caller's
// goroutine. A non-nil error means the work was not accepted and done will
// not be called.
type Dispatcher interface {
	Dispatch(task string, args any, done CompletionFunc) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(task string, args any, done CompletionFunc) error

func (f DispatcherFunc) Dispatch(task string, args any, done CompletionFunc) error {
	return f(task, args, done)
}

// Handle controls a spawned execution context.
type Handle interface {
	// Wait blocks until the execution context exits and returns its error.
	Wait() error
	// Kill terminates the execution context without waiting for it.
	Kill()
}

// Spawner starts functions on their own execution context.
type Spawner interface {
	Spawn(ctx context.Context, fn func(ctx context.Context) error) Handle
}
