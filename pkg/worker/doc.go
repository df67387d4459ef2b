// Package worker provides Pool, a bounded goroutine pool that runs
// registered task handlers and implements core.Dispatcher.
//
// This package includes:
//   - Pool: Register, Dispatch, hooks and Close
//   - PoolOption and TaskOption: concurrency, timeouts and retries
//   - Retry with exponential backoff honouring core.NoRetry and core.RetryAfter
//
// Most users should import the root package github.com/jdziat/cronloop,
// which re-exports NewPool.
package worker
