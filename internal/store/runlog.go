package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"macro-stress-pipeline/internal/entity"
)

// RunLogRepository is the append-only run_log persistence layer.
type RunLogRepository interface {
	// SuccessfulRunExists reports whether a run for date already
	// completed with status success, the orchestrator's idempotency
	// guard.
	SuccessfulRunExists(ctx context.Context, date time.Time) (bool, error)

	// Append inserts a new run_log row. Never updates an existing one:
	// the table is write-once per run.
	Append(ctx context.Context, log *entity.RunLog) error
}

type runLogRepository struct {
	db *gorm.DB
}

// NewRunLogRepository builds the run-log repository.
func NewRunLogRepository(db *gorm.DB) RunLogRepository {
	return &runLogRepository{db: db}
}

func (r *runLogRepository) SuccessfulRunExists(ctx context.Context, date time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.RunLog{}).
		Where("run_date = ? AND status = ?", date, entity.RunStatusSuccess).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check successful run: %w", err)
	}
	return count > 0, nil
}

func (r *runLogRepository) Append(ctx context.Context, log *entity.RunLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}
