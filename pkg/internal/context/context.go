// Package context provides context helpers for the worker pool.
package context

import (
	"context"
	"sync/atomic"
	"time"
)

// RunKey is the key for storing run info in context.Context.
type RunKey struct{}

// Run describes the task execution a handler is serving.
type Run struct {
	ID        string
	Task      string
	StartedAt time.Time

	// attempt is updated between retries while the Run is shared by every
	// attempt's context.
	attempt atomic.Int32
}

// Attempt returns the 1-based attempt number.
func (r *Run) Attempt() int { return int(r.attempt.Load()) }

// SetAttempt records the attempt about to start.
func (r *Run) SetAttempt(n int) { r.attempt.Store(int32(n)) }

// GetRun retrieves the run info from a context.Context.
func GetRun(ctx context.Context) *Run {
	if r, ok := ctx.Value(RunKey{}).(*Run); ok {
		return r
	}
	return nil
}

// WithRun adds run info to a context.Context.
func WithRun(ctx context.Context, r *Run) context.Context {
	return context.WithValue(ctx, RunKey{}, r)
}
