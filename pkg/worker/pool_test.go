package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/cronloop/pkg/core"
	"github.com/jdziat/cronloop/pkg/runctx"
)

type reportArgs struct {
	Region string `json:"region"`
}

func newTestPool(t *testing.T, opts ...PoolOption) *Pool {
	t.Helper()
	opts = append([]PoolOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	p := NewPool(opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Close(ctx)
	})
	return p
}

// dispatchAndWait dispatches and blocks until the outcome arrives.
func dispatchAndWait(t *testing.T, p *Pool, task string, args any) core.Outcome {
	t.Helper()
	ch := make(chan core.Outcome, 1)
	require.NoError(t, p.Dispatch(task, args, func(o core.Outcome) { ch <- o }))
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for outcome")
		return core.Outcome{}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Configuration
// ──────────────────────────────────────────────────────────────────────────────

func TestNewPool_Defaults(t *testing.T) {
	p := newTestPool(t)
	assert.Equal(t, DefaultConcurrency, p.Concurrency())
}

func TestConcurrency_Clamped(t *testing.T) {
	assert.Equal(t, 1, newTestPool(t, Concurrency(0)).Concurrency())
	assert.Equal(t, 1000, newTestPool(t, Concurrency(5000)).Concurrency())
	assert.Equal(t, 4, newTestPool(t, Concurrency(4)).Concurrency())
}

func TestFailureLogRate_Option(t *testing.T) {
	var cfg PoolConfig
	FailureLogRate(time.Minute, 0).ApplyPool(&cfg)
	assert.Equal(t, time.Minute, cfg.FailureLogEvery)
	assert.Equal(t, 1, cfg.FailureLogBurst)
}

func TestTimeout_Option(t *testing.T) {
	var cfg TaskConfig
	Timeout(3 * time.Second).ApplyTask(&cfg)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}

// ──────────────────────────────────────────────────────────────────────────────
// Registration
// ──────────────────────────────────────────────────────────────────────────────

func TestRegister_PanicsOnInvalidName(t *testing.T) {
	p := newTestPool(t)
	assert.Panics(t, func() {
		p.Register("1bad", func(context.Context) error { return nil })
	})
	assert.Panics(t, func() {
		p.Register("", func(context.Context) error { return nil })
	})
}

func TestRegister_PanicsOnInvalidHandler(t *testing.T) {
	p := newTestPool(t)
	assert.Panics(t, func() { p.Register("report", "not a function") })
	assert.Panics(t, func() { p.Register("report", func() {}) })
}

func TestRegister_HasTask(t *testing.T) {
	p := newTestPool(t)
	assert.False(t, p.HasTask("report"))
	p.Register("report", func(context.Context) error { return nil })
	assert.True(t, p.HasTask("report"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Dispatch
// ──────────────────────────────────────────────────────────────────────────────

func TestDispatch_UnknownTask(t *testing.T) {
	p := newTestPool(t)
	called := false
	err := p.Dispatch("missing", nil, func(core.Outcome) { called = true })
	assert.ErrorIs(t, err, core.ErrUnknownTask)
	assert.False(t, called)
}

func TestDispatch_ArgsTooLarge(t *testing.T) {
	p := newTestPool(t)
	p.Register("upload", func(context.Context, string) error { return nil })

	err := p.Dispatch("upload", strings.Repeat("x", 1<<20), nil)
	assert.ErrorIs(t, err, core.ErrTaskArgsTooLarge)
}

func TestDispatch_UnencodableArgs(t *testing.T) {
	p := newTestPool(t)
	p.Register("report", func(context.Context) error { return nil })

	err := p.Dispatch("report", make(chan int), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal")
}

func TestDispatch_Success(t *testing.T) {
	p := newTestPool(t)
	p.Register("report", func(_ context.Context, args reportArgs) (string, error) {
		return "report for " + args.Region, nil
	})

	o := dispatchAndWait(t, p, "report", reportArgs{Region: "eu"})
	require.NoError(t, o.Err)
	assert.Equal(t, "report for eu", o.Value)
	assert.Equal(t, 1, o.Attempts)
	assert.False(t, o.Started.IsZero())
	assert.False(t, o.Finished.Before(o.Started))
}

func TestDispatch_ArgsFromMap(t *testing.T) {
	p := newTestPool(t)
	var got reportArgs
	p.Register("report", func(_ context.Context, args reportArgs) error {
		got = args
		return nil
	})

	o := dispatchAndWait(t, p, "report", map[string]any{"region": "us"})
	require.NoError(t, o.Err)
	assert.Equal(t, "us", got.Region)
}

func TestDispatch_HandlerError(t *testing.T) {
	p := newTestPool(t)
	sentinel := errors.New("upstream unavailable")
	p.Register("report", func(context.Context) error { return sentinel })

	o := dispatchAndWait(t, p, "report", nil)
	assert.True(t, o.Failed())
	assert.ErrorIs(t, o.Err, sentinel)
	assert.Equal(t, 1, o.Attempts)
}

func TestDispatch_HandlerPanic(t *testing.T) {
	p := newTestPool(t)
	p.Register("report", func(context.Context) error { panic("nil map") })

	o := dispatchAndWait(t, p, "report", nil)
	var panicErr *core.PanicError
	require.ErrorAs(t, o.Err, &panicErr)
	assert.Equal(t, "nil map", panicErr.Value)

	// pool keeps working
	p.Register("ok", func(context.Context) error { return nil })
	assert.NoError(t, dispatchAndWait(t, p, "ok", nil).Err)
}

func TestDispatch_CompletionPanicIsRecovered(t *testing.T) {
	p := newTestPool(t, Concurrency(1))
	p.Register("report", func(context.Context) error { return nil })

	require.NoError(t, p.Dispatch("report", nil, func(core.Outcome) { panic("callback bug") }))
	assert.NoError(t, dispatchAndWait(t, p, "report", nil).Err)
}

func TestDispatch_NilCompletion(t *testing.T) {
	p := newTestPool(t)
	var ran atomic.Bool
	p.Register("report", func(context.Context) error {
		ran.Store(true)
		return nil
	})

	require.NoError(t, p.Dispatch("report", nil, nil))
	require.Eventually(t, ran.Load, time.Second, time.Millisecond)
}

func TestDispatch_ReturnsBeforeHandlerRuns(t *testing.T) {
	p := newTestPool(t)
	release := make(chan struct{})
	p.Register("slow", func(context.Context) error {
		<-release
		return nil
	})

	done := make(chan core.Outcome, 1)
	start := time.Now()
	require.NoError(t, p.Dispatch("slow", nil, func(o core.Outcome) { done <- o }))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	<-done
}

func TestDispatch_ConcurrencyBound(t *testing.T) {
	p := newTestPool(t, Concurrency(2))

	var running, peak atomic.Int32
	release := make(chan struct{})
	p.Register("work", func(context.Context) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		require.NoError(t, p.Dispatch("work", nil, func(core.Outcome) { wg.Done() }))
	}

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), running.Load())

	close(release)
	wg.Wait()
	assert.Equal(t, int32(2), peak.Load())
}

func TestDispatch_Timeout(t *testing.T) {
	p := newTestPool(t)
	p.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, Timeout(20*time.Millisecond))

	o := dispatchAndWait(t, p, "slow", nil)
	assert.ErrorIs(t, o.Err, context.DeadlineExceeded)
}

func TestDispatch_Retry(t *testing.T) {
	p := newTestPool(t)
	var calls atomic.Int32
	p.Register("flaky", func(context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, Retry(RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffMultiplier: 2}))

	o := dispatchAndWait(t, p, "flaky", nil)
	require.NoError(t, o.Err)
	assert.Equal(t, 3, o.Attempts)
}

func TestDispatch_NoRetry(t *testing.T) {
	p := newTestPool(t)
	var calls atomic.Int32
	p.Register("strict", func(context.Context) error {
		calls.Add(1)
		return core.NoRetry(errors.New("bad input"))
	}, RetryAttempts(5))

	o := dispatchAndWait(t, p, "strict", nil)
	assert.Error(t, o.Err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, o.Attempts)
}

func TestDispatch_WithoutRetryRunsOnce(t *testing.T) {
	p := newTestPool(t)
	var calls atomic.Int32
	p.Register("once", func(context.Context) error {
		calls.Add(1)
		return errors.New("fail")
	})

	dispatchAndWait(t, p, "once", nil)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatch_HandlerSeesRunInfo(t *testing.T) {
	p := newTestPool(t)
	var (
		mu       sync.Mutex
		attempts []int
		ids      []string
	)
	p.Register("flaky", func(ctx context.Context) error {
		info, ok := runctx.FromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "flaky", info.Task)
		mu.Lock()
		attempts = append(attempts, info.Attempt)
		ids = append(ids, info.ID)
		n := len(attempts)
		mu.Unlock()
		if n < 2 {
			return errors.New("transient")
		}
		return nil
	}, Retry(RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1}))

	o := dispatchAndWait(t, p, "flaky", nil)
	require.NoError(t, o.Err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, attempts)
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, ids[0], ids[1], "attempts share one run ID")
}

// ──────────────────────────────────────────────────────────────────────────────
// Hooks and logging
// ──────────────────────────────────────────────────────────────────────────────

func TestHooks(t *testing.T) {
	p := newTestPool(t)
	p.Register("good", func(context.Context) (int, error) { return 42, nil })
	p.Register("bad", func(context.Context) error { return errors.New("boom") })

	var mu sync.Mutex
	var started []Execution
	var completed []core.Outcome
	var failed []error
	p.OnStart(func(_ context.Context, e Execution) {
		mu.Lock()
		started = append(started, e)
		mu.Unlock()
	})
	p.OnComplete(func(_ context.Context, _ Execution, o core.Outcome) {
		mu.Lock()
		completed = append(completed, o)
		mu.Unlock()
	})
	p.OnFail(func(_ context.Context, _ Execution, err error) {
		mu.Lock()
		failed = append(failed, err)
		mu.Unlock()
	})

	dispatchAndWait(t, p, "good", map[string]int{"n": 1})
	dispatchAndWait(t, p, "bad", nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, started, 2)
	assert.Equal(t, "good", started[0].Task)
	assert.JSONEq(t, `{"n":1}`, string(started[0].Args))
	assert.NotEmpty(t, started[0].ID)
	assert.NotEqual(t, started[0].ID, started[1].ID)
	require.Len(t, completed, 1)
	assert.Equal(t, 42, completed[0].Value)
	require.Len(t, failed, 1)
	assert.EqualError(t, failed[0], "boom")
}

func TestHooks_PanicIsRecovered(t *testing.T) {
	p := newTestPool(t)
	p.Register("report", func(context.Context) error { return nil })
	p.OnStart(func(context.Context, Execution) { panic("hook bug") })

	assert.NoError(t, dispatchAndWait(t, p, "report", nil).Err)
}

func TestFailureLogRate_SuppressesWarnings(t *testing.T) {
	var buf bytes.Buffer
	p := newTestPool(t,
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		FailureLogRate(time.Hour, 1),
	)
	p.Register("bad", func(context.Context) error { return errors.New("boom") })

	for i := 0; i < 3; i++ {
		dispatchAndWait(t, p, "bad", nil)
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "task failed"))
	assert.Equal(t, int64(2), p.suppressed.Load())
}

// ──────────────────────────────────────────────────────────────────────────────
// Close
// ──────────────────────────────────────────────────────────────────────────────

func TestClose_RejectsNewDispatches(t *testing.T) {
	p := newTestPool(t)
	p.Register("report", func(context.Context) error { return nil })

	require.NoError(t, p.Close(context.Background()))
	assert.ErrorIs(t, p.Dispatch("report", nil, nil), core.ErrPoolClosed)
}

func TestClose_WaitsForInFlight(t *testing.T) {
	p := newTestPool(t)
	var finished atomic.Bool
	p.Register("slow", func(context.Context) error {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	require.NoError(t, p.Dispatch("slow", nil, nil))
	require.NoError(t, p.Close(context.Background()))
	assert.True(t, finished.Load())
}

func TestClose_CancelsOnDeadline(t *testing.T) {
	p := newTestPool(t)
	p.Register("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	outcome := make(chan core.Outcome, 1)
	require.NoError(t, p.Dispatch("stuck", nil, func(o core.Outcome) { outcome <- o }))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(ctx), context.DeadlineExceeded)

	select {
	case o := <-outcome:
		assert.ErrorIs(t, o.Err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled task did not report an outcome")
	}
}

func TestPool_ImplementsDispatcher(t *testing.T) {
	var d core.Dispatcher = newTestPool(t)
	assert.NotNil(t, d)
}
