package cronloop

import (
	"time"

	"github.com/jdziat/cronloop/pkg/core"
	"github.com/jdziat/cronloop/pkg/schedule"
	"github.com/jdziat/cronloop/pkg/security"
)

type (
	// Spec is a parsed cron expression bound to a location.
	Spec = schedule.Spec

	// Intervals yields the wait before each successive instant of a Spec.
	Intervals = schedule.Intervals

	// Clock supplies the current time.
	Clock = core.Clock

	// ClockFunc adapts a function to Clock.
	ClockFunc = core.ClockFunc
)

// Security limits
const (
	MaxTaskNameLength     = security.MaxTaskNameLength
	MaxExpressionLength   = security.MaxExpressionLength
	MaxTaskArgsSize       = security.MaxTaskArgsSize
	MaxRetries            = security.MaxRetries
	MaxConcurrency        = security.MaxConcurrency
	MaxErrorMessageLength = security.MaxErrorMessageLength
)

// SystemClock reads the wall clock.
var SystemClock = core.SystemClock

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return core.FixedClock(t)
}

// Parse validates expr and resolves tz. An empty tz means UTC.
func Parse(expr, tz string) (*Spec, error) {
	return schedule.Parse(expr, tz)
}

// NewIntervals parses expr and tz and anchors the sequence at clock.Now().
// A nil clock means SystemClock.
func NewIntervals(expr, tz string, clock Clock) (*Intervals, error) {
	return schedule.NewIntervals(expr, tz, clock)
}

// Expression helpers

// Every returns an expression firing at fixed intervals of at least a second.
func Every(d time.Duration) string {
	return schedule.Every(d)
}

// Daily returns an expression firing at hour:minute each day.
func Daily(hour, minute int) string {
	return schedule.Daily(hour, minute)
}

// Weekly returns an expression firing at hour:minute on day each week.
func Weekly(day time.Weekday, hour, minute int) string {
	return schedule.Weekly(day, hour, minute)
}

// ValidateTaskName validates a task name.
func ValidateTaskName(name string) error {
	return security.ValidateTaskName(name)
}
