package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"macro-stress-pipeline/internal/entity"
)

// Column names accepted by the point-query and upsert helpers below.
// Kept as a closed set rather than accepting an arbitrary string so a
// caller cannot smuggle SQL through a column name.
const (
	ColFXClose           = "fx_close"
	ColInflationYoY      = "inflation_yoy"
	ColSovereignYield    = "sovereign_yield"
	ColUS10Y             = "us_10y"
	ColReservesLevel     = "reserves_level"
	ColParallelGap       = "parallel_gap"
	ColFXVol             = "fx_vol"
	ColInflation         = "inflation"
	ColRiskSpread        = "risk_spread"
	ColCryptoRatio       = "crypto_ratio"
	ColReservesChange    = "reserves_change"
	ColStablecoinPremium = "stablecoin_premium"
	ColStressScore       = "stress_score"
)

var validColumns = map[string]bool{
	ColFXClose: true, ColInflationYoY: true, ColSovereignYield: true,
	ColUS10Y: true, ColReservesLevel: true, ColParallelGap: true,
	ColFXVol: true, ColInflation: true, ColRiskSpread: true,
	ColCryptoRatio: true, ColReservesChange: true, ColStablecoinPremium: true,
	ColStressScore: true,
}

// ObservationRepository is the daily_observations persistence layer.
type ObservationRepository interface {
	// Upsert writes obs keyed by (country_id, date). Only the columns
	// named in columns are overwritten on conflict, plus data_flags and
	// updated_at, which are always rewritten; every other column on an
	// existing row is preserved untouched.
	Upsert(ctx context.Context, obs *entity.DailyObservation, columns []string) error

	// LastNonNull returns the most recent row (any date) where column
	// is not null, and that row's value for column.
	LastNonNull(ctx context.Context, countryID uint, column string) (value float64, date time.Time, err error)

	// LastNonNullBefore is LastNonNull restricted to rows with
	// date <= cutoff, used for the two-year inflation-acceleration
	// delta.
	LastNonNullBefore(ctx context.Context, countryID uint, column string, cutoff time.Time) (value float64, date time.Time, err error)

	// LatestScored returns the most recent row with a non-null
	// stress_score for a country.
	LatestScored(ctx context.Context, countryID uint) (*entity.DailyObservation, error)

	// LatestScoredOnOrBefore returns the newest scored row with
	// date <= cutoff, used for the 7-day and 30-day scoreboard deltas.
	LatestScoredOnOrBefore(ctx context.Context, countryID uint, cutoff time.Time) (*entity.DailyObservation, error)

	// History returns up to the last limit scored rows for a country,
	// ordered ascending by date.
	History(ctx context.Context, countryID uint, limit int) ([]entity.DailyObservation, error)

	// BatchUpsert upserts many rows in a single statement, used by the
	// backfill reducers to materialize dense history in batches (500
	// rows is the reference batch size).
	BatchUpsert(ctx context.Context, rows []entity.DailyObservation, columns []string) error

	// ValuesSince returns every non-null value of column for a country
	// with date >= since, ordered ascending by date, along with the
	// earliest and latest date actually observed among them — the
	// normalization builder persists this window verbatim rather than
	// the requested range.
	ValuesSince(ctx context.Context, countryID uint, column string, since time.Time) (values []float64, windowStart, windowEnd time.Time, err error)

	// RecentValues returns up to the last n non-null values of column
	// strictly before asOf, ordered ascending (oldest first) — the
	// orchestrator appends today's fetched close to this slice before
	// running the rolling-stddev formula.
	RecentValues(ctx context.Context, countryID uint, column string, asOf time.Time, n int) ([]float64, error)

	// LastNonNullInRange returns the most recent non-null value of
	// column with from <= date <= to, used for the reserves-change
	// 80-100-day lookback window.
	LastNonNullInRange(ctx context.Context, countryID uint, column string, from, to time.Time) (value float64, date time.Time, err error)
}

type observationRepository struct {
	db *gorm.DB
}

// NewObservationRepository builds the daily-observations repository.
func NewObservationRepository(db *gorm.DB) ObservationRepository {
	return &observationRepository{db: db}
}

func (r *observationRepository) Upsert(ctx context.Context, obs *entity.DailyObservation, columns []string) error {
	updateCols := make([]string, 0, len(columns)+2)
	for _, c := range columns {
		if !validColumns[c] {
			return fmt.Errorf("upsert observation: unknown column %q", c)
		}
		updateCols = append(updateCols, c)
	}
	updateCols = append(updateCols, "data_flags", "updated_at")

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "country_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(updateCols),
	}).Create(obs).Error
	if err != nil {
		return fmt.Errorf("upsert observation: %w", err)
	}
	return nil
}

func (r *observationRepository) BatchUpsert(ctx context.Context, rows []entity.DailyObservation, columns []string) error {
	if len(rows) == 0 {
		return nil
	}
	updateCols := make([]string, 0, len(columns)+2)
	for _, c := range columns {
		if !validColumns[c] {
			return fmt.Errorf("batch upsert observation: unknown column %q", c)
		}
		updateCols = append(updateCols, c)
	}
	updateCols = append(updateCols, "data_flags", "updated_at")

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "country_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(updateCols),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("batch upsert observation: %w", err)
	}
	return nil
}

func (r *observationRepository) LastNonNull(ctx context.Context, countryID uint, column string) (float64, time.Time, error) {
	return r.lastNonNull(ctx, countryID, column, nil)
}

func (r *observationRepository) LastNonNullBefore(ctx context.Context, countryID uint, column string, cutoff time.Time) (float64, time.Time, error) {
	return r.lastNonNull(ctx, countryID, column, &cutoff)
}

func (r *observationRepository) lastNonNull(ctx context.Context, countryID uint, column string, cutoff *time.Time) (float64, time.Time, error) {
	if !validColumns[column] {
		return 0, time.Time{}, fmt.Errorf("last non-null: unknown column %q", column)
	}

	q := r.db.WithContext(ctx).Model(&entity.DailyObservation{}).
		Where("country_id = ?", countryID).
		Where(column+" IS NOT NULL").
		Order("date DESC")
	if cutoff != nil {
		q = q.Where("date <= ?", *cutoff)
	}

	var row entity.DailyObservation
	if err := q.Select("date", column).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, time.Time{}, ErrNotFound
		}
		return 0, time.Time{}, fmt.Errorf("last non-null %s: %w", column, err)
	}

	val := columnValue(row, column)
	if val == nil {
		return 0, time.Time{}, ErrNotFound
	}
	return *val, row.Date, nil
}

func columnValue(row entity.DailyObservation, column string) *float64 {
	switch column {
	case ColFXClose:
		return row.FXClose
	case ColInflationYoY:
		return row.InflationYoY
	case ColSovereignYield:
		return row.SovereignYield
	case ColUS10Y:
		return row.US10Y
	case ColReservesLevel:
		return row.ReservesLevel
	case ColParallelGap:
		return row.ParallelGap
	case ColFXVol:
		return row.FXVol
	case ColInflation:
		return row.Inflation
	case ColRiskSpread:
		return row.RiskSpread
	case ColCryptoRatio:
		return row.CryptoRatio
	case ColReservesChange:
		return row.ReservesChange
	case ColStablecoinPremium:
		return row.StablecoinPremium
	case ColStressScore:
		return row.StressScore
	default:
		return nil
	}
}

func (r *observationRepository) ValuesSince(ctx context.Context, countryID uint, column string, since time.Time) ([]float64, time.Time, time.Time, error) {
	if !validColumns[column] {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("values since: unknown column %q", column)
	}

	var rows []entity.DailyObservation
	err := r.db.WithContext(ctx).Model(&entity.DailyObservation{}).
		Where("country_id = ?", countryID).
		Where("date >= ?", since).
		Where(column+" IS NOT NULL").
		Order("date ASC").
		Select("date", column).
		Find(&rows).Error
	if err != nil {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("values since %s: %w", column, err)
	}
	if len(rows) == 0 {
		return nil, time.Time{}, time.Time{}, nil
	}

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if v := columnValue(row, column); v != nil {
			values = append(values, *v)
		}
	}
	return values, rows[0].Date, rows[len(rows)-1].Date, nil
}

func (r *observationRepository) RecentValues(ctx context.Context, countryID uint, column string, asOf time.Time, n int) ([]float64, error) {
	if !validColumns[column] {
		return nil, fmt.Errorf("recent values: unknown column %q", column)
	}

	var rows []entity.DailyObservation
	err := r.db.WithContext(ctx).Model(&entity.DailyObservation{}).
		Where("country_id = ?", countryID).
		Where("date < ?", asOf).
		Where(column+" IS NOT NULL").
		Order("date DESC").
		Limit(n).
		Select("date", column).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent values %s: %w", column, err)
	}

	values := make([]float64, len(rows))
	for i, row := range rows {
		v := columnValue(row, column)
		values[len(rows)-1-i] = *v
	}
	return values, nil
}

func (r *observationRepository) LastNonNullInRange(ctx context.Context, countryID uint, column string, from, to time.Time) (float64, time.Time, error) {
	if !validColumns[column] {
		return 0, time.Time{}, fmt.Errorf("last non-null in range: unknown column %q", column)
	}

	var row entity.DailyObservation
	err := r.db.WithContext(ctx).Model(&entity.DailyObservation{}).
		Where("country_id = ?", countryID).
		Where("date >= ? AND date <= ?", from, to).
		Where(column+" IS NOT NULL").
		Order("date DESC").
		Select("date", column).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, time.Time{}, ErrNotFound
		}
		return 0, time.Time{}, fmt.Errorf("last non-null in range %s: %w", column, err)
	}

	val := columnValue(row, column)
	if val == nil {
		return 0, time.Time{}, ErrNotFound
	}
	return *val, row.Date, nil
}

func (r *observationRepository) LatestScored(ctx context.Context, countryID uint) (*entity.DailyObservation, error) {
	var row entity.DailyObservation
	err := r.db.WithContext(ctx).
		Where("country_id = ? AND stress_score IS NOT NULL", countryID).
		Order("date DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest scored: %w", err)
	}
	return &row, nil
}

func (r *observationRepository) LatestScoredOnOrBefore(ctx context.Context, countryID uint, cutoff time.Time) (*entity.DailyObservation, error) {
	var row entity.DailyObservation
	err := r.db.WithContext(ctx).
		Where("country_id = ? AND stress_score IS NOT NULL AND date <= ?", countryID, cutoff).
		Order("date DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest scored on or before %s: %w", cutoff, err)
	}
	return &row, nil
}

func (r *observationRepository) History(ctx context.Context, countryID uint, limit int) ([]entity.DailyObservation, error) {
	var rows []entity.DailyObservation
	err := r.db.WithContext(ctx).
		Where("country_id = ? AND stress_score IS NOT NULL", countryID).
		Order("date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
