package cronloop

import (
	"time"

	"github.com/jdziat/cronloop/pkg/core"
)

type (
	// PanicError wraps a value recovered from a panicking task or loop.
	PanicError = core.PanicError

	// NoRetryError indicates an error that should not be retried.
	NoRetryError = core.NoRetryError

	// RetryAfterError indicates an error that should be retried after a delay.
	RetryAfterError = core.RetryAfterError
)

// Error variables
var (
	ErrInvalidScheduleExpression = core.ErrInvalidScheduleExpression
	ErrUnknownTimezone           = core.ErrUnknownTimezone
	ErrInvalidPolicy             = core.ErrInvalidPolicy
	ErrNilDispatcher             = core.ErrNilDispatcher
	ErrInvalidTaskName           = core.ErrInvalidTaskName
	ErrTaskNameTooLong           = core.ErrTaskNameTooLong
	ErrExpressionTooLong         = core.ErrExpressionTooLong
	ErrAlreadyStarted            = core.ErrAlreadyStarted
	ErrScheduleExhausted         = core.ErrScheduleExhausted
	ErrDuplicateTask             = core.ErrDuplicateTask
	ErrUnknownTask               = core.ErrUnknownTask
	ErrPoolClosed                = core.ErrPoolClosed
	ErrTaskArgsTooLarge          = core.ErrTaskArgsTooLarge
	ErrRunNotFound               = core.ErrRunNotFound
)

// NoRetry wraps an error to indicate it should not be retried.
func NoRetry(err error) error {
	return core.NoRetry(err)
}

// RetryAfter wraps an error to indicate it should be retried after a delay.
func RetryAfter(d time.Duration, err error) error {
	return core.RetryAfter(d, err)
}
