// Package context provides internal context helpers for task execution.
//
// This package is internal and should not be imported directly. The worker
// pool stores a *Run in each handler's context; pkg/runctx reads it.
package context
