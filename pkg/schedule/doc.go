// Package schedule turns cron expressions into wait durations.
//
// This package includes:
//   - Parse for validating an expression and resolving its timezone
//   - Spec, a parsed expression bound to a location
//   - Intervals, the lazy sequence of waits a scheduling loop consumes
//   - Every(), Daily() and Weekly() helpers that build expressions
//
// Expressions have five fields (minute hour day-of-month month day-of-week)
// or six with a leading seconds field. Descriptors such as "@daily" and
// "@every 5m" are also accepted.
//
// Most users should import the root package github.com/jdziat/cronloop
// which re-exports these functions.
package schedule
