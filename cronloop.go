// Package cronloop runs tasks on cron schedules, one scheduling loop per
// task, with a per-schedule policy for fires that arrive while earlier work
// is still running.
//
// This is the main package users should import. It re-exports all public
// types from the internal pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	// Create a worker pool and register a task
//	pool := cronloop.NewPool(cronloop.Concurrency(4))
//	pool.Register("report", func(ctx context.Context, args ReportArgs) error {
//	    return buildReport(ctx, args)
//	})
//
//	// Fire it at Chicago noon, never overlapping
//	s, err := cronloop.New("report", "0 12 * * *", pool,
//	    cronloop.Timezone("America/Chicago"),
//	    cronloop.WithPolicy(cronloop.PolicySkip),
//	    cronloop.Args(ReportArgs{Region: "us"}),
//	)
//	if err != nil {
//	    return err
//	}
//	s.Start(ctx)
//	defer s.Stop()
package cronloop

import (
	"log/slog"

	"github.com/jdziat/cronloop/pkg/core"
	"github.com/jdziat/cronloop/pkg/scheduler"
)

type (
	// Scheduler fires a task on a cron schedule.
	Scheduler = scheduler.Scheduler

	// Group starts and stops several schedulers together.
	Group = scheduler.Group

	// Option configures a Scheduler.
	Option = scheduler.Option

	// SchedulerConfig holds scheduler configuration.
	SchedulerConfig = scheduler.Config

	// State is the position of a scheduling loop in its state machine.
	State = scheduler.State

	// GoSpawner runs scheduling loops on plain goroutines.
	GoSpawner = scheduler.GoSpawner

	// Policy controls overlapping fires.
	Policy = core.Policy

	// Dispatcher hands a unit of work to an external worker mechanism.
	Dispatcher = core.Dispatcher

	// DispatcherFunc adapts a function to Dispatcher.
	DispatcherFunc = core.DispatcherFunc

	// CompletionFunc receives the outcome of dispatched work.
	CompletionFunc = core.CompletionFunc

	// Outcome is the result of one dispatched unit of work.
	Outcome = core.Outcome

	// Fire is one scheduled instant handed to a Dispatcher.
	Fire = core.Fire

	// Spawner starts functions on their own execution context.
	Spawner = core.Spawner

	// Handle controls a spawned execution context.
	Handle = core.Handle

	// Event is the interface for all scheduler events.
	Event = core.Event

	// SchedulerStarted is emitted when a scheduling loop begins.
	SchedulerStarted = core.SchedulerStarted

	// SchedulerStopped is emitted when a scheduling loop exits.
	SchedulerStopped = core.SchedulerStopped

	// FireDispatched is emitted after a fire was handed to the dispatcher.
	FireDispatched = core.FireDispatched

	// FireCompleted is emitted when dispatched work reports its outcome.
	FireCompleted = core.FireCompleted

	// FireSkipped is emitted when a lapsed instant is discarded.
	FireSkipped = core.FireSkipped
)

// Policy constants
const (
	PolicyAllow   = core.PolicyAllow
	PolicySkip    = core.PolicySkip
	PolicyWait    = core.PolicyWait
	DefaultPolicy = core.DefaultPolicy
)

// State constants
const (
	StateIdle       = scheduler.StateIdle
	StateWaiting    = scheduler.StateWaiting
	StateDispatched = scheduler.StateDispatched
	StateStopped    = scheduler.StateStopped
)

// New validates the task name, expression, timezone and policy and returns
// a stopped Scheduler that hands fires to d.
func New(task, expr string, d Dispatcher, opts ...Option) (*Scheduler, error) {
	return scheduler.New(task, expr, d, opts...)
}

// NewGroup creates a group from schedulers.
func NewGroup(schedulers ...*Scheduler) (*Group, error) {
	return scheduler.NewGroup(schedulers...)
}

// ParsePolicy parses "allow", "skip" or "wait". An empty string yields DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	return core.ParsePolicy(s)
}

// Scheduler option functions

// Timezone sets the IANA timezone the expression is matched in.
func Timezone(name string) Option {
	return scheduler.Timezone(name)
}

// WithPolicy sets the concurrency policy.
func WithPolicy(p Policy) Option {
	return scheduler.WithPolicy(p)
}

// Args sets the value passed to the dispatcher with every fire.
func Args(args any) Option {
	return scheduler.Args(args)
}

// WithClock sets the clock intervals are measured against.
func WithClock(clock Clock) Option {
	return scheduler.WithClock(clock)
}

// WithSpawner sets how the scheduling loop is started.
func WithSpawner(s Spawner) Option {
	return scheduler.WithSpawner(s)
}

// WithLogger sets the scheduler's logger.
func WithLogger(l *slog.Logger) Option {
	return scheduler.WithLogger(l)
}

// WithHistory records every fire in store.
func WithHistory(store HistoryStore) Option {
	return scheduler.WithHistory(store)
}

// EventBuffer sets the capacity of each Events() subscriber channel.
func EventBuffer(n int) Option {
	return scheduler.EventBuffer(n)
}
