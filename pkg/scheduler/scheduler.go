package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/cronloop/pkg/core"
	"github.com/jdziat/cronloop/pkg/schedule"
	"github.com/jdziat/cronloop/pkg/security"
)

// State is the position of a scheduling loop in its state machine.
type State int32

const (
	StateIdle State = iota
	StateWaiting
	StateDispatched
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateDispatched:
		return "dispatched"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Scheduler fires a task on a cron schedule.
type Scheduler struct {
	task       string
	spec       *schedule.Spec
	dispatcher core.Dispatcher
	config     Config
	logger     *slog.Logger

	seq     atomic.Int64
	pending pendingWrites

	mu      sync.Mutex
	current *loop // started loop, nil once stopped or exited
	last    *loop // most recently started loop

	subsMu sync.RWMutex
	subs   []chan core.Event
}

// loop is the run state of one Start.
type loop struct {
	handle   core.Handle
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	exited   chan struct{}
	state    atomic.Int32
	err      error // written before exited is closed
}

func (l *loop) signalStop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *loop) setState(s State) { l.state.Store(int32(s)) }

// New validates the task name, expression, timezone and policy and returns
// a stopped Scheduler. Construction errors wrap core.ErrInvalidScheduleExpression,
// core.ErrUnknownTimezone or core.ErrInvalidPolicy.
func New(task, expr string, d core.Dispatcher, opts ...Option) (*Scheduler, error) {
	if err := security.ValidateTaskName(task); err != nil {
		return nil, fmt.Errorf("%w: %q", err, task)
	}
	if d == nil {
		return nil, core.ErrNilDispatcher
	}

	config := defaultConfig()
	for _, opt := range opts {
		opt.ApplyScheduler(&config)
	}

	if config.Policy == "" {
		config.Policy = core.DefaultPolicy
	}
	if !config.Policy.Valid() {
		return nil, fmt.Errorf("%w %q", core.ErrInvalidPolicy, config.Policy)
	}

	spec, err := schedule.Parse(expr, config.Timezone)
	if err != nil {
		return nil, err
	}

	if config.Clock == nil {
		config.Clock = core.SystemClock
	}
	if config.Spawner == nil {
		config.Spawner = GoSpawner{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		task:       task,
		spec:       spec,
		dispatcher: d,
		config:     config,
		logger:     logger.With("task", task),
	}, nil
}

// Task returns the task name passed to the dispatcher.
func (s *Scheduler) Task() string { return s.task }

// Spec returns the parsed schedule.
func (s *Scheduler) Spec() *schedule.Spec { return s.spec }

// Policy returns the concurrency policy.
func (s *Scheduler) Policy() core.Policy { return s.config.Policy }

// State returns the state of the most recently started loop.
func (s *Scheduler) State() State {
	s.mu.Lock()
	l := s.last
	s.mu.Unlock()
	if l == nil {
		return StateIdle
	}
	return State(l.state.Load())
}

// Running reports whether a loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	select {
	case <-s.current.exited:
		return false
	default:
		return true
	}
}

// Err returns the error the most recent loop exited with: nil after Stop,
// context.Canceled after Kill, core.ErrScheduleExhausted when the schedule
// ran out of instants, or a *core.PanicError. It is nil while a loop runs.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	l := s.last
	s.mu.Unlock()
	if l == nil {
		return nil
	}
	select {
	case <-l.exited:
		return l.err
	default:
		return nil
	}
}

// Start begins the scheduling loop. ctx bounds the loop's lifetime;
// cancelling it has the effect of Kill. Start returns core.ErrAlreadyStarted
// while a previous loop has not exited, including a killed loop that is
// still unwinding.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		select {
		case <-s.current.exited:
			s.current.cancel()
			s.current = nil
		default:
			return core.ErrAlreadyStarted
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l := &loop{
		cancel: cancel,
		stopCh: make(chan struct{}),
		exited: make(chan struct{}),
	}
	l.setState(StateIdle)

	l.handle = s.config.Spawner.Spawn(loopCtx, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &core.PanicError{Value: r}
			}
			s.finish(l, err)
		}()
		return s.run(ctx, l)
	})

	s.current = l
	s.last = l
	return nil
}

// Stop signals the loop to stop and blocks until it has exited and the
// history writes issued so far have finished. No fire is dispatched after
// Stop returns. A loop waiting for a dispatched unit to complete
// (PolicyWait, PolicySkip) stops only once that unit completes.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	l := s.current
	s.mu.Unlock()
	if l == nil {
		return nil
	}

	s.logger.Debug("stopping scheduler")
	l.signalStop()
	err := l.handle.Wait()
	s.release(l)
	s.pending.wait()
	return err
}

// Kill terminates the loop without waiting for it. An in-progress wait or
// completion wait is abandoned; work already handed to the dispatcher
// keeps running. The loop stays current until it has exited, so Start
// fails with core.ErrAlreadyStarted until then.
func (s *Scheduler) Kill() {
	s.mu.Lock()
	l := s.current
	s.mu.Unlock()
	if l == nil {
		return
	}

	s.logger.Debug("killing scheduler")
	l.cancel()
	l.handle.Kill()
}

// Shutdown stops the loop like Stop but gives up when ctx is done, killing
// the loop and returning ctx.Err().
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	l := s.current
	s.mu.Unlock()
	if l == nil {
		return nil
	}

	l.signalStop()
	select {
	case <-l.exited:
		return s.Stop()
	case <-ctx.Done():
		s.logger.Warn("scheduler did not stop in time, killing", "error", ctx.Err())
		s.Kill()
		return ctx.Err()
	}
}

func (s *Scheduler) release(l *loop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == l {
		s.current = nil
	}
	l.cancel()
}

func (s *Scheduler) finish(l *loop, err error) {
	l.err = err
	l.setState(StateStopped)

	switch {
	case err == nil:
		s.logger.Info("scheduler stopped")
	case errors.Is(err, context.Canceled):
		s.logger.Info("scheduler killed")
	default:
		s.logger.Error("scheduler loop exited", "error", err)
	}
	s.emit(&core.SchedulerStopped{Task: s.task, Err: err, Timestamp: s.config.Clock.Now()})
	close(l.exited)
}

func (s *Scheduler) run(ctx context.Context, l *loop) error {
	intervals := s.spec.Intervals(s.config.Clock)

	s.logger.Info("scheduler started",
		"expression", s.spec.Expression(),
		"timezone", s.spec.Location().String(),
		"policy", s.config.Policy,
	)
	s.emit(&core.SchedulerStarted{
		Task:       s.task,
		Expression: s.spec.Expression(),
		Policy:     s.config.Policy,
		Timestamp:  s.config.Clock.Now(),
	})

	wait, ok := intervals.Next()
	for {
		if !ok {
			return core.ErrScheduleExhausted
		}

		l.setState(StateWaiting)
		s.logger.Debug("waiting for next fire", "wait", wait, "instant", intervals.Instant())
		if !sleep(ctx, l.stopCh, wait) {
			return ctx.Err()
		}

		l.setState(StateDispatched)
		done := s.dispatch(ctx, intervals.Instant())

		if s.config.Policy.AwaitsCompletion() {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		wait, ok = intervals.Next()
		if ok && wait == 0 && s.config.Policy == core.PolicySkip {
			s.skip(intervals.Instant())
			wait, ok = intervals.Next()
		}
	}
}

// sleep waits for d, returning false if stop is closed or ctx is done
// first. A stop signalled before the call is always observed.
func sleep(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}

	select {
	case <-stop:
		return false
	default:
		return ctx.Err() == nil
	}
}

// dispatch hands one fire to the dispatcher. The returned channel receives
// the outcome exactly once. A fire whose loop was killed before the hand-off
// completes with ctx.Err() and never reaches the dispatcher.
func (s *Scheduler) dispatch(ctx context.Context, instant time.Time) <-chan core.Outcome {
	fire := core.Fire{
		ID:           uuid.New().String(),
		Task:         s.task,
		Seq:          s.seq.Add(1),
		Instant:      instant,
		DispatchedAt: s.config.Clock.Now(),
	}

	recorded := s.recordRun(fire, core.RunDispatched)

	done := make(chan core.Outcome, 1)
	var once sync.Once
	complete := func(o core.Outcome) {
		once.Do(func() {
			s.completed(fire, o)
			s.completeRun(fire, recorded, o)
			done <- o
		})
	}

	s.emit(&core.FireDispatched{Fire: fire, Timestamp: fire.DispatchedAt})
	s.logger.Debug("dispatching", "fire_id", fire.ID, "seq", fire.Seq, "instant", instant)

	if err := ctx.Err(); err != nil {
		s.logger.Debug("loop killed before hand-off", "fire_id", fire.ID)
		now := s.config.Clock.Now()
		complete(core.Outcome{Err: err, Started: now, Finished: now})
		return done
	}

	if err := s.invoke(complete); err != nil {
		s.logger.Error("dispatch failed", "fire_id", fire.ID, "error", err)
		now := s.config.Clock.Now()
		complete(core.Outcome{Err: err, Started: now, Finished: now})
	}
	return done
}

func (s *Scheduler) invoke(done core.CompletionFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r}
		}
	}()
	return s.dispatcher.Dispatch(s.task, s.config.Args, done)
}

// completed runs on whichever goroutine reports the outcome.
func (s *Scheduler) completed(fire core.Fire, o core.Outcome) {
	if o.Failed() {
		s.logger.Debug("fire completed with error", "fire_id", fire.ID, "error", o.Err)
	} else {
		s.logger.Debug("fire completed", "fire_id", fire.ID, "duration", o.Duration())
	}
	s.emit(&core.FireCompleted{Fire: fire, Outcome: o, Timestamp: s.config.Clock.Now()})
}

func (s *Scheduler) skip(instant time.Time) {
	s.logger.Debug("skipping lapsed fire", "instant", instant)
	s.emit(&core.FireSkipped{Task: s.task, Instant: instant, Timestamp: s.config.Clock.Now()})
	s.recordRun(core.Fire{ID: uuid.New().String(), Task: s.task, Instant: instant}, core.RunSkipped)
}

// Events returns a channel for receiving scheduler events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (s *Scheduler) Events() <-chan core.Event {
	ch := make(chan core.Event, s.config.EventBuffer)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed; after Unsubscribe returns no further events
// are sent to it.
func (s *Scheduler) Unsubscribe(ch <-chan core.Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) emit(e core.Event) {
	s.subsMu.RLock()
	subs := make([]chan core.Event, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Drop if full - this prevents blocking on slow consumers
		}
	}
}
