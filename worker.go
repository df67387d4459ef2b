package cronloop

import (
	"log/slog"
	"time"

	"github.com/jdziat/cronloop/pkg/worker"
)

type (
	// Pool runs registered task handlers on a bounded set of goroutines.
	Pool = worker.Pool

	// PoolOption configures a Pool.
	PoolOption = worker.PoolOption

	// TaskOption configures a registered task.
	TaskOption = worker.TaskOption

	// RetryConfig holds configuration for retry with backoff.
	RetryConfig = worker.RetryConfig

	// Execution describes one dispatched run of a registered task.
	Execution = worker.Execution
)

// DefaultConcurrency is the pool size used when Concurrency is not given.
const DefaultConcurrency = worker.DefaultConcurrency

// NewPool creates a worker pool.
func NewPool(opts ...PoolOption) *Pool {
	return worker.NewPool(opts...)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return worker.DefaultRetryConfig()
}

// Pool option functions

// Concurrency sets how many handlers may run at once.
func Concurrency(n int) PoolOption {
	return worker.Concurrency(n)
}

// PoolLogger sets the pool's logger.
func PoolLogger(l *slog.Logger) PoolOption {
	return worker.WithLogger(l)
}

// FailureLogRate limits task failure warnings.
func FailureLogRate(every time.Duration, burst int) PoolOption {
	return worker.FailureLogRate(every, burst)
}

// Task option functions

// Timeout bounds each attempt of the task.
func Timeout(d time.Duration) TaskOption {
	return worker.Timeout(d)
}

// Retry retries failed attempts with backoff.
func Retry(cfg RetryConfig) TaskOption {
	return worker.Retry(cfg)
}

// RetryAttempts is Retry with DefaultRetryConfig and n attempts.
func RetryAttempts(n int) TaskOption {
	return worker.RetryAttempts(n)
}
