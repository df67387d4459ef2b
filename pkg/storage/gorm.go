package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jdziat/cronloop/pkg/core"
	"github.com/jdziat/cronloop/pkg/security"
)

// abandonedMessage is stored on runs closed by AbandonStaleRuns.
const abandonedMessage = "abandoned: no outcome reported"

// GormStorage implements core.HistoryStore using GORM.
type GormStorage struct {
	db *gorm.DB
}

var _ core.HistoryStore = (*GormStorage)(nil)

// NewGormStorage creates a new GORM-backed history store.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying connection.
func (s *GormStorage) DB() *gorm.DB { return s.db }

// IsSQLite reports whether the store is backed by SQLite.
func (s *GormStorage) IsSQLite() bool {
	return s.db != nil && s.db.Dialector != nil && s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.Run{})
}

// RecordRun inserts a run.
func (s *GormStorage) RecordRun(ctx context.Context, run *core.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = core.RunDispatched
	}
	run.Error = security.SanitizeErrorMessage(run.Error)
	return s.db.WithContext(ctx).Create(run).Error
}

// CompleteRun stores the outcome of a dispatched run.
// Error messages are sanitized before storage.
func (s *GormStorage) CompleteRun(ctx context.Context, runID string, outcome core.Outcome) error {
	finished := outcome.Finished
	if finished.IsZero() {
		finished = time.Now()
	}

	updates := map[string]any{
		"status":      core.RunSucceeded,
		"finished_at": finished,
		"attempts":    outcome.Attempts,
		"error":       "",
	}
	if outcome.Failed() {
		updates["status"] = core.RunFailed
		updates["error"] = security.SanitizeErrorMessage(outcome.Err.Error())
	}

	result := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("id = ?", runID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return core.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *GormStorage) GetRun(ctx context.Context, runID string) (*core.Run, error) {
	var run core.Run
	err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs of task, newest first. An empty task
// lists every task; limit <= 0 means no limit.
func (s *GormStorage) ListRuns(ctx context.Context, task string, limit int) ([]*core.Run, error) {
	var runs []*core.Run
	q := s.db.WithContext(ctx).Order("scheduled_at DESC, created_at DESC")
	if task != "" {
		q = q.Where("task = ?", task)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&runs).Error
	return runs, err
}

// CountByStatus returns the number of runs of task per status. An empty task
// counts every task.
func (s *GormStorage) CountByStatus(ctx context.Context, task string) (map[core.RunStatus]int64, error) {
	var rows []struct {
		Status core.RunStatus
		Count  int64
	}

	q := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Select("status, COUNT(*) AS count")
	if task != "" {
		q = q.Where("task = ?", task)
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[core.RunStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// PruneRuns deletes all but the newest keep runs of task and returns the
// number deleted.
func (s *GormStorage) PruneRuns(ctx context.Context, task string, keep int) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var keepIDs []string
		if keep > 0 {
			err := tx.Model(&core.Run{}).
				Where("task = ?", task).
				Order("scheduled_at DESC, created_at DESC").
				Limit(keep).
				Pluck("id", &keepIDs).Error
			if err != nil {
				return err
			}
		}

		q := tx.Where("task = ?", task)
		if len(keepIDs) > 0 {
			q = q.Where("id NOT IN ?", keepIDs)
		}
		result := q.Delete(&core.Run{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// AbandonStaleRuns marks runs that were dispatched before now-staleAfter and
// never reported an outcome as failed. This closes runs left open by a
// process that exited mid-flight.
func (s *GormStorage) AbandonStaleRuns(ctx context.Context, staleAfter time.Duration) (int64, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&core.Run{}).
		Where("status = ?", core.RunDispatched).
		Where("dispatched_at < ?", now.Add(-staleAfter)).
		Updates(map[string]any{
			"status":      core.RunFailed,
			"finished_at": now,
			"error":       abandonedMessage,
		})
	return result.RowsAffected, result.Error
}
