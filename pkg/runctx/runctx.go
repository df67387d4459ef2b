// Package runctx provides public access to the running task for handlers.
package runctx

import (
	"context"
	"log/slog"
	"time"

	intctx "github.com/jdziat/cronloop/pkg/internal/context"
)

// Info describes the task execution a handler is serving.
type Info struct {
	ID        string
	Task      string
	Attempt   int
	StartedAt time.Time
}

// FromContext returns the current execution, or false if ctx was not
// created by a worker pool.
func FromContext(ctx context.Context) (Info, bool) {
	r := intctx.GetRun(ctx)
	if r == nil {
		return Info{}, false
	}
	return Info{
		ID:        r.ID,
		Task:      r.Task,
		Attempt:   r.Attempt(),
		StartedAt: r.StartedAt,
	}, true
}

// IDFromContext returns the current execution ID, or empty string if not in a handler.
func IDFromContext(ctx context.Context) string {
	r := intctx.GetRun(ctx)
	if r == nil {
		return ""
	}
	return r.ID
}

// TaskFromContext returns the current task name, or empty string if not in a handler.
func TaskFromContext(ctx context.Context) string {
	r := intctx.GetRun(ctx)
	if r == nil {
		return ""
	}
	return r.Task
}

// AttemptFromContext returns the 1-based attempt number, or 0 if not in a handler.
func AttemptFromContext(ctx context.Context) int {
	r := intctx.GetRun(ctx)
	if r == nil {
		return 0
	}
	return r.Attempt()
}

// Logger returns l annotated with the current task, execution ID and
// attempt. Outside a handler it returns l unchanged. A nil l means
// slog.Default().
func Logger(ctx context.Context, l *slog.Logger) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	r := intctx.GetRun(ctx)
	if r == nil {
		return l
	}
	return l.With("task", r.Task, "run_id", r.ID, "attempt", r.Attempt())
}
