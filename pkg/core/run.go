package core

import (
	"context"
	"time"
)

// Fire is one scheduled instant handed to a Dispatcher.
type Fire struct {
	ID           string
	Task         string
	Seq          int64
	Instant      time.Time
	DispatchedAt time.Time
}

// RunStatus represents the recorded state of a fire.
type RunStatus string

const (
	RunDispatched RunStatus = "dispatched"
	RunSucceeded  RunStatus = "succeeded"
	RunFailed     RunStatus = "failed"
	RunSkipped    RunStatus = "skipped" // Lapsed instant discarded under PolicySkip
)

// Run is the history record of one fire.
type Run struct {
	ID           string     `gorm:"primaryKey;size:36"`
	Task         string     `gorm:"index;size:255;not null"`
	Expression   string     `gorm:"size:255"`
	Timezone     string     `gorm:"size:64"`
	Policy       Policy     `gorm:"size:10"`
	Seq          int64      `gorm:"default:0"`
	ScheduledAt  time.Time  `gorm:"index"`
	DispatchedAt *time.Time
	FinishedAt   *time.Time
	Status       RunStatus  `gorm:"index;size:20;default:'dispatched'"`
	Error        string     `gorm:"type:text"`
	Attempts     int        `gorm:"default:0"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

// HistoryStore records fires for observability. It is not consulted when
// computing schedules; state is rebuilt fresh on every start.
type HistoryStore interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	RecordRun(ctx context.Context, run *Run) error
	CompleteRun(ctx context.Context, runID string, outcome Outcome) error

	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, task string, limit int) ([]*Run, error)
	CountByStatus(ctx context.Context, task string) (map[RunStatus]int64, error)
	PruneRuns(ctx context.Context, task string, keep int) (int64, error)
}
