package schedule

import (
	"iter"
	"time"

	"github.com/jdziat/cronloop/pkg/core"
)

// Intervals yields the wait before each successive instant of a Spec.
//
// The sequence is anchored at the clock's "now" converted into the Spec's
// location at construction. Each call to Next advances an internal cursor
// to the following instant, so the sequence cannot be restarted; build a
// new Intervals to start over. Intervals is not safe for concurrent use.
type Intervals struct {
	spec   *Spec
	clock  core.Clock
	cursor time.Time
	last   time.Time
}

// NewIntervals parses expr and tz and anchors the sequence at clock.Now().
// A nil clock means core.SystemClock.
func NewIntervals(expr, tz string, clock core.Clock) (*Intervals, error) {
	spec, err := Parse(expr, tz)
	if err != nil {
		return nil, err
	}
	return spec.Intervals(clock), nil
}

// Intervals anchors a new sequence at clock.Now().
func (s *Spec) Intervals(clock core.Clock) *Intervals {
	if clock == nil {
		clock = core.SystemClock
	}
	return &Intervals{
		spec:   s,
		clock:  clock,
		cursor: clock.Now().UTC().In(s.loc),
	}
}

// Next advances to the following instant and returns the time remaining
// until it, floored at zero. A lapsed instant yields exactly zero.
// ok is false once the schedule has no further instants.
func (it *Intervals) Next() (wait time.Duration, ok bool) {
	next := it.spec.Next(it.cursor)
	if next.IsZero() {
		return 0, false
	}
	it.cursor = next
	it.last = next

	wait = next.Sub(it.clock.Now())
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// Instant returns the instant behind the most recent Next, or the zero
// time before the first call.
func (it *Intervals) Instant() time.Time { return it.last }

// All returns an iterator over the remaining waits. It shares the cursor
// with Next.
func (it *Intervals) All() iter.Seq[time.Duration] {
	return func(yield func(time.Duration) bool) {
		for {
			wait, ok := it.Next()
			if !ok || !yield(wait) {
				return
			}
		}
	}
}
