package entity

import (
	"time"

	"gorm.io/datatypes"
)

// DailyObservation is one row per (country, calendar date). Raw
// provider values and derived metrics live side by side; a later run
// may overwrite the derived columns and flags without losing earlier
// raw values (see internal/store's partial-upsert contract).
type DailyObservation struct {
	ID        uint      `gorm:"primaryKey"`
	CountryID uint      `gorm:"column:country_id;not null;uniqueIndex:idx_country_date"`
	Date      time.Time `gorm:"column:date;type:date;not null;uniqueIndex:idx_country_date"`

	// Raw provider values.
	FXClose        *float64 `gorm:"column:fx_close"`
	InflationYoY   *float64 `gorm:"column:inflation_yoy"`
	SovereignYield *float64 `gorm:"column:sovereign_yield"`
	US10Y          *float64 `gorm:"column:us_10y"`
	ReservesLevel  *float64 `gorm:"column:reserves_level"`
	ParallelGap    *float64 `gorm:"column:parallel_gap"`

	// Derived metrics feeding the scoring engine.
	FXVol             *float64 `gorm:"column:fx_vol"`
	Inflation         *float64 `gorm:"column:inflation"`
	RiskSpread        *float64 `gorm:"column:risk_spread"`
	CryptoRatio       *float64 `gorm:"column:crypto_ratio"`
	ReservesChange    *float64 `gorm:"column:reserves_change"`
	StablecoinPremium *float64 `gorm:"column:stablecoin_premium"`

	StressScore *float64 `gorm:"column:stress_score"`

	DataFlags datatypes.JSONMap `gorm:"column:data_flags"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (DailyObservation) TableName() string {
	return "daily_observations"
}

// HasScore reports whether this row carries a computed stress score.
func (d DailyObservation) HasScore() bool {
	return d.StressScore != nil
}

// RawMetrics projects the row's derived columns into the transient
// tuple the scoring engine consumes, for re-running ComponentScores
// against current normalization params on read.
func (d DailyObservation) RawMetrics() RawMetricRecord {
	return RawMetricRecord{
		FXVol:             d.FXVol,
		Inflation:         d.Inflation,
		RiskSpread:        d.RiskSpread,
		CryptoRatio:       d.CryptoRatio,
		ReservesChange:    d.ReservesChange,
		StablecoinPremium: d.StablecoinPremium,
	}
}
