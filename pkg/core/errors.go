package core

import (
	"errors"
	"fmt"
	"time"
)

// Construction errors
var (
	ErrInvalidScheduleExpression = errors.New("cronloop: invalid schedule expression")
	ErrUnknownTimezone           = errors.New("cronloop: unknown timezone")
	ErrInvalidPolicy             = errors.New("cronloop: invalid concurrency policy")
	ErrNilDispatcher             = errors.New("cronloop: dispatcher is nil")
	ErrInvalidTaskName           = errors.New("cronloop: invalid task name (must be alphanumeric, start with letter)")
	ErrTaskNameTooLong           = errors.New("cronloop: task name too long")
	ErrExpressionTooLong         = errors.New("cronloop: schedule expression too long")
)

// Lifecycle errors
var (
	ErrAlreadyStarted    = errors.New("cronloop: scheduler already started")
	ErrScheduleExhausted = errors.New("cronloop: schedule has no further instants")
	ErrDuplicateTask     = errors.New("cronloop: duplicate task in group")
)

// Dispatch errors
var (
	ErrUnknownTask      = errors.New("cronloop: no handler registered for task")
	ErrPoolClosed       = errors.New("cronloop: worker pool closed")
	ErrTaskArgsTooLarge = errors.New("cronloop: task arguments exceed size limit")
	ErrRunNotFound      = errors.New("cronloop: run not found")
)

// PanicError wraps a value recovered from a panicking task or loop.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// NoRetryError indicates an error that should not be retried.
type NoRetryError struct {
	Err error
}

func (e *NoRetryError) Error() string {
	return fmt.Sprintf("no retry: %v", e.Err)
}

func (e *NoRetryError) Unwrap() error {
	return e.Err
}

// NoRetry wraps an error to indicate it should not be retried.
func NoRetry(err error) error {
	return &NoRetryError{Err: err}
}

// RetryAfterError indicates an error that should be retried after a delay.
type RetryAfterError struct {
	Err   error
	Delay time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("retry after %v: %v", e.Delay, e.Err)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// RetryAfter wraps an error to indicate it should be retried after a delay.
func RetryAfter(d time.Duration, err error) error {
	return &RetryAfterError{Err: err, Delay: d}
}
