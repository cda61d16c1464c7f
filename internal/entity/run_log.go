package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Run statuses, per spec: success, partial, error.
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusError   = "error"
)

// RunLog is an append-only record of one orchestrator execution.
type RunLog struct {
	ID         uint              `gorm:"primaryKey"`
	RunDate    time.Time         `gorm:"column:run_date;type:date;not null;index:idx_run_date,sort:desc"`
	Status     string            `gorm:"column:status;not null"`
	Detail     datatypes.JSONMap `gorm:"column:detail"`
	DurationMs int64             `gorm:"column:duration_ms;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (RunLog) TableName() string {
	return "run_log"
}
