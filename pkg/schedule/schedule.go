package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/cronloop/pkg/core"
	"github.com/jdziat/cronloop/pkg/security"
)

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Spec is a parsed cron expression bound to a location. Calendar fields are
// matched in that location, so "0 0 * * *" in America/Chicago fires at
// Chicago midnight regardless of the UTC offset in effect.
type Spec struct {
	expr     string
	timezone string
	loc      *time.Location
	sched    cron.Schedule
}

// Parse validates expr and resolves tz. An empty tz means UTC.
func Parse(expr, tz string) (*Spec, error) {
	if err := security.ValidateExpression(expr); err != nil {
		return nil, err
	}
	expr = strings.TrimSpace(expr)
	tz = strings.TrimSpace(tz)

	if tz != "" && hasTZPrefix(expr) {
		return nil, fmt.Errorf("%w %q: embedded timezone conflicts with %q", core.ErrInvalidScheduleExpression, expr, tz)
	}

	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", core.ErrUnknownTimezone, tz, err)
		}
		loc = l
	}

	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", core.ErrInvalidScheduleExpression, expr, err)
	}
	if sched.Next(time.Now().In(loc)).IsZero() {
		return nil, fmt.Errorf("%w %q: never fires", core.ErrInvalidScheduleExpression, expr)
	}

	return &Spec{expr: expr, timezone: tz, loc: loc, sched: sched}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(expr, tz string) *Spec {
	s, err := Parse(expr, tz)
	if err != nil {
		panic(err)
	}
	return s
}

func hasTZPrefix(expr string) bool {
	return strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=")
}

// Expression returns the source expression.
func (s *Spec) Expression() string { return s.expr }

// Timezone returns the configured timezone name, empty for UTC.
func (s *Spec) Timezone() string { return s.timezone }

// Location returns the location fields are matched in.
func (s *Spec) Location() *time.Location { return s.loc }

// Next returns the first matching instant strictly after from, or the zero
// time if the schedule has none.
func (s *Spec) Next(from time.Time) time.Time {
	return s.sched.Next(from.In(s.loc))
}

func (s *Spec) String() string {
	if s.timezone == "" {
		return s.expr
	}
	return s.expr + " (" + s.timezone + ")"
}

// Every builds an expression that fires at a fixed interval.
// Intervals are rounded down to whole seconds, minimum one second.
func Every(d time.Duration) string {
	if d < time.Second {
		d = time.Second
	}
	return "@every " + d.Truncate(time.Second).String()
}

// Daily builds an expression that fires once a day at hour:minute.
func Daily(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// Weekly builds an expression that fires on day at hour:minute.
func Weekly(day time.Weekday, hour, minute int) string {
	return fmt.Sprintf("%d %d * * %d", minute, hour, int(day))
}
