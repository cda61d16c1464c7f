package backfill

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
)

// accelerationLag is the two-year delta window spec.md's Open
// Questions resolution unifies both the backfill reducer and the
// daily orchestrator on.
const accelerationLag = 2

// InflationReducer expands the annual-only CPI series into dense
// daily rows, computing a two-year-delta acceleration alongside the
// forward-filled YoY level.
type InflationReducer struct {
	inflation sources.InflationAdapter
	countries store.CountryRepository
	obs       store.ObservationRepository
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewInflationReducer builds the inflation backfill reducer.
func NewInflationReducer(inflation sources.InflationAdapter, countries store.CountryRepository, obs store.ObservationRepository, limiter *rate.Limiter, log *logger.Logger) *InflationReducer {
	return &InflationReducer{inflation: inflation, countries: countries, obs: obs, limiter: limiter, log: log}
}

// Run backfills every country's inflation history.
func (r *InflationReducer) Run(ctx context.Context) error {
	all, err := r.countries.All(ctx)
	if err != nil {
		return fmt.Errorf("inflation reducer: load countries: %w", err)
	}

	for _, country := range all {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("inflation reducer: rate limit wait: %w", err)
		}
		if err := r.runCountry(ctx, country); err != nil {
			r.log.ErrorContext(ctx, "inflation reducer: country failed",
				logger.StringField("country", country.ISO2), logger.ErrorField(err))
		}
	}
	return nil
}

func (r *InflationReducer) runCountry(ctx context.Context, country entity.Country) error {
	series := r.inflation.Series(ctx, country)
	if len(series) == 0 {
		return nil
	}

	var rows []entity.DailyObservation
	for i, point := range series {
		yoy := point.YoY

		var accel *float64
		if i >= accelerationLag {
			a := yoy - series[i-accelerationLag].YoY
			accel = &a
		}

		for _, day := range daysInYear(point.Date.Year()) {
			yoyCopy := yoy
			rows = append(rows, entity.DailyObservation{
				CountryID:    country.ID,
				Date:         day,
				InflationYoY: &yoyCopy,
				Inflation:    accel,
			})
		}
	}

	for _, batch := range chunk(rows, batchSize) {
		if err := r.obs.BatchUpsert(ctx, batch, []string{store.ColInflationYoY, store.ColInflation}); err != nil {
			return err
		}
	}
	return nil
}

// daysInYear returns every calendar day of year as a UTC date.
func daysInYear(year int) []time.Time {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := make([]time.Time, 0, 366)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
