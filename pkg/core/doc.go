// Package core provides the fundamental types and interfaces for the cronloop package.
//
// This package contains:
//   - Policy, the concurrency rule applied to overlapping fires
//   - Dispatcher, Spawner and Clock, the collaborators a scheduler is built from
//   - Outcome and CompletionFunc, the result of one dispatched unit of work
//   - Run, the GORM model recorded by history stores
//   - Event types for scheduler monitoring
//   - Error types for construction and task processing
//
// Most users should import the root package github.com/jdziat/cronloop
// instead of this package directly.
package core
