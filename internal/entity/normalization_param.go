package entity

import "time"

// MethodP5P95Clamped is the only normalization method currently
// implemented.
const MethodP5P95Clamped = "p5_p95_clamped"

// NormalizationParam holds the per-(country,metric) clamp bounds the
// scoring engine reads on every scoring call.
type NormalizationParam struct {
	ID          uint      `gorm:"primaryKey"`
	CountryID   uint      `gorm:"column:country_id;not null;uniqueIndex:idx_country_metric"`
	MetricName  string    `gorm:"column:metric_name;not null;uniqueIndex:idx_country_metric"`
	MinVal      float64   `gorm:"column:min_val;not null"`
	MaxVal      float64   `gorm:"column:max_val;not null"`
	Method      string    `gorm:"column:method;not null"`
	WindowStart time.Time `gorm:"column:window_start;type:date;not null"`
	WindowEnd   time.Time `gorm:"column:window_end;type:date;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (NormalizationParam) TableName() string {
	return "normalization_params"
}

// Degenerate reports whether the stored bounds collapse to a point or
// are inverted (max_val <= min_val), which the scoring engine treats as an absent parameter rather than
// silently emitting the 0.5 clamp-normalize fallback for stale data.
func (p NormalizationParam) Degenerate() bool {
	return p.MaxVal <= p.MinVal
}
