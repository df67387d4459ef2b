// Package scheduler provides the scheduling loop for the cronloop package.
//
// A Scheduler owns one schedule.Intervals for the lifetime of a loop. On
// each iteration it waits for the next computed duration (or a stop),
// hands a fire to its core.Dispatcher, and depending on its core.Policy
// waits for the dispatched work to report completion before computing the
// next wait.
//
// Lifecycle:
//   - Start begins the loop on a goroutine obtained from a core.Spawner.
//   - Stop signals the loop and blocks until it has exited. A loop blocked
//     on a completion under PolicyWait or PolicySkip exits only after that
//     completion arrives.
//   - Kill cancels the loop's context and returns immediately. Start fails
//     with core.ErrAlreadyStarted until the killed loop has exited.
//   - Shutdown is Stop bounded by a context, falling back to Kill.
//
// Most users should import the root package github.com/jdziat/cronloop
// which re-exports these types.
package scheduler
