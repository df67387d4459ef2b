package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jdziat/cronloop/pkg/core"
	intctx "github.com/jdziat/cronloop/pkg/internal/context"
	"github.com/jdziat/cronloop/pkg/internal/handler"
	"github.com/jdziat/cronloop/pkg/security"
)

// Execution describes one dispatched run of a registered task.
type Execution struct {
	ID        string
	Task      string
	Args      json.RawMessage
	StartedAt time.Time
}

type task struct {
	handler *handler.Handler
	config  TaskConfig
}

// Pool runs registered task handlers on a bounded set of goroutines.
// It implements core.Dispatcher.
type Pool struct {
	config     PoolConfig
	logger     *slog.Logger
	failureLog *rate.Limiter
	suppressed atomic.Int64
	sem        chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	tasks map[string]*task

	// Hooks
	onStart    []func(context.Context, Execution)
	onComplete []func(context.Context, Execution, core.Outcome)
	onFail     []func(context.Context, Execution, error)

	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

var _ core.Dispatcher = (*Pool)(nil)

// NewPool creates a worker pool.
func NewPool(opts ...PoolOption) *Pool {
	config := defaultPoolConfig()
	for _, opt := range opts {
		opt.ApplyPool(&config)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		config:     config,
		logger:     logger,
		failureLog: rate.NewLimiter(rate.Every(config.FailureLogEvery), config.FailureLogBurst),
		sem:        make(chan struct{}, config.Concurrency),
		ctx:        ctx,
		cancel:     cancel,
		tasks:      make(map[string]*task),
	}
}

// Register registers a task handler function.
// Accepted signatures are func(ctx context.Context, args T) error,
// func(ctx context.Context, args T) (R, error), func(ctx context.Context) error
// and func(args T) error. The handler's ctx carries the run; see pkg/runctx.
// Task names must be alphanumeric (starting with a letter), max 255 chars.
// Registering a name again replaces the previous handler.
func (p *Pool) Register(name string, fn any, opts ...TaskOption) {
	if err := security.ValidateTaskName(name); err != nil {
		panic(fmt.Sprintf("cronloop: invalid task name %q: %v", name, err))
	}

	h, err := handler.NewHandler(fn)
	if err != nil {
		panic(fmt.Sprintf("cronloop: handler for %q: %v", name, err))
	}

	config := TaskConfig{Retry: noRetry}
	for _, opt := range opts {
		opt.ApplyTask(&config)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks[name] = &task{handler: h, config: config}
}

// HasTask checks if a task is registered.
func (p *Pool) HasTask(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.tasks[name]
	return ok
}

// Concurrency returns the maximum number of handlers running at once.
func (p *Pool) Concurrency() int { return cap(p.sem) }

// OnStart registers a hook called before a task's first attempt.
func (p *Pool) OnStart(fn func(context.Context, Execution)) {
	p.mu.Lock()
	p.onStart = append(p.onStart, fn)
	p.mu.Unlock()
}

// OnComplete registers a hook called after a task succeeds.
func (p *Pool) OnComplete(fn func(context.Context, Execution, core.Outcome)) {
	p.mu.Lock()
	p.onComplete = append(p.onComplete, fn)
	p.mu.Unlock()
}

// OnFail registers a hook called after a task's final attempt fails.
func (p *Pool) OnFail(fn func(context.Context, Execution, error)) {
	p.mu.Lock()
	p.onFail = append(p.onFail, fn)
	p.mu.Unlock()
}

// Dispatch encodes args as JSON and runs the named task on a pool goroutine.
// It returns without waiting for the task. done is called exactly once with
// the outcome, unless Dispatch returns an error.
func (p *Pool) Dispatch(name string, args any, done core.CompletionFunc) error {
	p.mu.RLock()
	t, ok := p.tasks[name]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", core.ErrUnknownTask, name)
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("cronloop: failed to marshal args for %q: %w", name, err)
	}
	if err := security.ValidateArgsSize(encoded); err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}

	p.closeMu.RLock()
	if p.closed {
		p.closeMu.RUnlock()
		return core.ErrPoolClosed
	}
	p.wg.Add(1)
	p.closeMu.RUnlock()

	exec := Execution{ID: uuid.New().String(), Task: name, Args: encoded}
	go p.run(t, exec, done)
	return nil
}

func (p *Pool) run(t *task, exec Execution, done core.CompletionFunc) {
	defer p.wg.Done()

	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		now := time.Now()
		p.complete(done, core.Outcome{Err: p.ctx.Err(), Started: now, Finished: now})
		return
	}
	defer func() { <-p.sem }()

	exec.StartedAt = time.Now()
	p.logger.Debug("task started", "task", exec.Task, "run_id", exec.ID)
	p.callStartHooks(exec)

	run := &intctx.Run{ID: exec.ID, Task: exec.Task, StartedAt: exec.StartedAt}
	runCtx := intctx.WithRun(p.ctx, run)

	var value any
	attempts, err := retryWithBackoff(p.ctx, t.config.Retry, func(attempt int) error {
		run.SetAttempt(attempt)
		v, err := p.attempt(runCtx, t, exec.Args)
		if err != nil && attempt < t.config.Retry.MaxAttempts && IsRetryableError(err) {
			p.logger.Debug("task attempt failed, retrying", "task", exec.Task, "run_id", exec.ID, "attempt", attempt, "error", err)
		}
		value = v
		return err
	})

	outcome := core.Outcome{
		Value:    value,
		Err:      err,
		Started:  exec.StartedAt,
		Finished: time.Now(),
		Attempts: attempts,
	}

	if err != nil {
		p.logFailure(exec, outcome)
		p.callFailHooks(exec, err)
	} else {
		p.logger.Debug("task completed", "task", exec.Task, "run_id", exec.ID, "duration", outcome.Duration())
		p.callCompleteHooks(exec, outcome)
	}

	p.complete(done, outcome)
}

// attempt runs the handler once, converting a panic into *core.PanicError.
func (p *Pool) attempt(ctx context.Context, t *task, args []byte) (value any, err error) {
	if t.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r}
		}
	}()

	return t.handler.Execute(ctx, args)
}

func (p *Pool) complete(done core.CompletionFunc, o core.Outcome) {
	if done == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("completion callback panicked", "panic", r)
		}
	}()
	done(o)
}

func (p *Pool) logFailure(exec Execution, o core.Outcome) {
	if !p.failureLog.Allow() {
		p.suppressed.Add(1)
		return
	}
	p.logger.Warn("task failed",
		"task", exec.Task,
		"run_id", exec.ID,
		"attempts", o.Attempts,
		"error", o.Err,
		"suppressed", p.suppressed.Swap(0),
	)
}

func (p *Pool) callStartHooks(exec Execution) {
	p.mu.RLock()
	hooks := make([]func(context.Context, Execution), len(p.onStart))
	copy(hooks, p.onStart)
	p.mu.RUnlock()

	for _, fn := range hooks {
		p.safely("start", func() { fn(p.ctx, exec) })
	}
}

func (p *Pool) callCompleteHooks(exec Execution, o core.Outcome) {
	p.mu.RLock()
	hooks := make([]func(context.Context, Execution, core.Outcome), len(p.onComplete))
	copy(hooks, p.onComplete)
	p.mu.RUnlock()

	for _, fn := range hooks {
		p.safely("complete", func() { fn(p.ctx, exec, o) })
	}
}

func (p *Pool) callFailHooks(exec Execution, err error) {
	p.mu.RLock()
	hooks := make([]func(context.Context, Execution, error), len(p.onFail))
	copy(hooks, p.onFail)
	p.mu.RUnlock()

	for _, fn := range hooks {
		p.safely("fail", func() { fn(p.ctx, exec, err) })
	}
}

func (p *Pool) safely(hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("hook panicked", "hook", hook, "panic", r)
		}
	}()
	fn()
}

// Close stops accepting dispatches and waits for running and queued tasks.
// If ctx is done first, their contexts are cancelled and Close returns
// ctx.Err() without waiting further.
func (p *Pool) Close(ctx context.Context) error {
	p.closeMu.Lock()
	p.closed = true
	p.closeMu.Unlock()

	idle := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.logger.Warn("pool did not drain in time, cancelling tasks", "error", ctx.Err())
		p.cancel()
		return ctx.Err()
	}
}
