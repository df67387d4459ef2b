package core

import "time"

// Event is the interface for all scheduler events.
type Event interface {
	eventMarker()
}

// SchedulerStarted is emitted when a scheduling loop begins.
type SchedulerStarted struct {
	Task       string
	Expression string
	Policy     Policy
	Timestamp  time.Time
}

func (*SchedulerStarted) eventMarker() {}

// SchedulerStopped is emitted when a scheduling loop exits. Err is nil for
// a requested stop.
type SchedulerStopped struct {
	Task      string
	Err       error
	Timestamp time.Time
}

func (*SchedulerStopped) eventMarker() {}

// FireDispatched is emitted after a fire was handed to the dispatcher.
type FireDispatched struct {
	Fire      Fire
	Timestamp time.Time
}

func (*FireDispatched) eventMarker() {}

// FireCompleted is emitted when dispatched work reports its outcome.
type FireCompleted struct {
	Fire      Fire
	Outcome   Outcome
	Timestamp time.Time
}

func (*FireCompleted) eventMarker() {}

// FireSkipped is emitted when a lapsed instant is discarded.
type FireSkipped struct {
	Task      string
	Instant   time.Time
	Timestamp time.Time
}

func (*FireSkipped) eventMarker() {}
