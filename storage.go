package cronloop

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/cronloop/pkg/config"
	"github.com/jdziat/cronloop/pkg/core"
	"github.com/jdziat/cronloop/pkg/storage"
)

type (
	// Run is the history record of one fire.
	Run = core.Run

	// RunStatus represents the recorded state of a fire.
	RunStatus = core.RunStatus

	// HistoryStore records fires for observability.
	HistoryStore = core.HistoryStore

	// GormStorage implements HistoryStore using GORM.
	GormStorage = storage.GormStorage

	// StoragePoolOption configures the history database connection pool.
	StoragePoolOption = storage.PoolOption
)

// Run status constants
const (
	RunDispatched = core.RunDispatched
	RunSucceeded  = core.RunSucceeded
	RunFailed     = core.RunFailed
	RunSkipped    = core.RunSkipped
)

// NewGormStorage creates a new GORM-backed history store.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// OpenHistory opens and migrates the history database described by h.
func OpenHistory(ctx context.Context, h *config.History, opts ...StoragePoolOption) (*GormStorage, error) {
	if h == nil {
		return nil, fmt.Errorf("cronloop: no history configured")
	}

	var dialector gorm.Dialector
	switch h.Driver {
	case config.DriverSQLite, "":
		dialector = sqlite.Open(h.DSN)
	case config.DriverPostgres:
		dialector = postgres.Open(h.DSN)
	default:
		return nil, fmt.Errorf("cronloop: unsupported history driver %q", h.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cronloop: open history: %w", err)
	}

	store, err := storage.NewGormStorageWithPool(db, opts...)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("cronloop: migrate history: %w", err)
	}
	return store, nil
}

// PruneHistory trims each scheduled task's history to the file's
// history.keep runs and returns the number of runs deleted. It is a no-op
// when the file has no history section or keep is zero.
func PruneHistory(ctx context.Context, store HistoryStore, f *ConfigFile) (int64, error) {
	if f.History == nil || f.History.Keep == 0 {
		return 0, nil
	}

	var total int64
	for _, e := range f.Schedules {
		n, err := store.PruneRuns(ctx, e.Task, f.History.Keep)
		if err != nil {
			return total, fmt.Errorf("cronloop: prune %q: %w", e.Task, err)
		}
		total += n
	}
	return total, nil
}
