package worker

import (
	"log/slog"
	"time"

	"github.com/jdziat/cronloop/pkg/security"
)

// DefaultConcurrency is the number of handlers a Pool runs at once unless
// Concurrency is given.
const DefaultConcurrency = 10

// PoolOption configures a Pool.
type PoolOption interface {
	ApplyPool(*PoolConfig)
}

type poolOptionFunc func(*PoolConfig)

func (f poolOptionFunc) ApplyPool(c *PoolConfig) { f(c) }

// PoolConfig holds pool configuration.
type PoolConfig struct {
	Concurrency     int
	Logger          *slog.Logger
	FailureLogEvery time.Duration
	FailureLogBurst int
}

func defaultPoolConfig() PoolConfig {
	return PoolConfig{
		Concurrency:     DefaultConcurrency,
		FailureLogEvery: 100 * time.Millisecond,
		FailureLogBurst: 10,
	}
}

// Concurrency sets how many handlers may run at once.
// Values are clamped to [1, MaxConcurrency].
func Concurrency(n int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.Concurrency = security.ClampConcurrency(n)
	})
}

// WithLogger sets the pool's logger.
func WithLogger(l *slog.Logger) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.Logger = l
	})
}

// FailureLogRate limits task failure warnings to one per every, with bursts
// of up to burst. Suppressed warnings are counted and reported with the next
// one that is logged.
func FailureLogRate(every time.Duration, burst int) PoolOption {
	return poolOptionFunc(func(c *PoolConfig) {
		c.FailureLogEvery = every
		if burst < 1 {
			burst = 1
		}
		c.FailureLogBurst = burst
	})
}

// TaskOption configures a registered task.
type TaskOption interface {
	ApplyTask(*TaskConfig)
}

type taskOptionFunc func(*TaskConfig)

func (f taskOptionFunc) ApplyTask(c *TaskConfig) { f(c) }

// TaskConfig holds per-task configuration.
type TaskConfig struct {
	Timeout time.Duration
	Retry   RetryConfig
}

// Timeout bounds each attempt of the task. Zero means no limit.
func Timeout(d time.Duration) TaskOption {
	return taskOptionFunc(func(c *TaskConfig) {
		c.Timeout = d
	})
}

// Retry retries failed attempts with backoff. MaxAttempts is clamped to
// [1, MaxRetries]. Tasks without this option run once.
func Retry(cfg RetryConfig) TaskOption {
	return taskOptionFunc(func(c *TaskConfig) {
		cfg.MaxAttempts = security.ClampRetries(cfg.MaxAttempts)
		if cfg.MaxAttempts < 1 {
			cfg.MaxAttempts = 1
		}
		c.Retry = cfg
	})
}

// RetryAttempts is Retry with DefaultRetryConfig and n attempts.
func RetryAttempts(n int) TaskOption {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = n
	return Retry(cfg)
}
