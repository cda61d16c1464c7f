package backfill

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
)

// reservesChangeMonths approximates the 90-day reserves-change window
// at monthly granularity, computed before daily expansion.
const reservesChangeMonths = 3

// ReservesReducer expands each country's monthly total-reserves series
// into dense daily rows, with reserves_change computed at monthly
// granularity before the daily forward-fill.
type ReservesReducer struct {
	reserves  sources.ReservesAdapter
	countries store.CountryRepository
	obs       store.ObservationRepository
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewReservesReducer builds the reserves backfill reducer.
func NewReservesReducer(reserves sources.ReservesAdapter, countries store.CountryRepository, obs store.ObservationRepository, limiter *rate.Limiter, log *logger.Logger) *ReservesReducer {
	return &ReservesReducer{reserves: reserves, countries: countries, obs: obs, limiter: limiter, log: log}
}

// Run backfills every country's reserves history.
func (r *ReservesReducer) Run(ctx context.Context) error {
	all, err := r.countries.All(ctx)
	if err != nil {
		return fmt.Errorf("reserves reducer: load countries: %w", err)
	}

	for _, country := range all {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("reserves reducer: rate limit wait: %w", err)
		}
		if err := r.runCountry(ctx, country); err != nil {
			r.log.ErrorContext(ctx, "reserves reducer: country failed",
				logger.StringField("country", country.ISO2), logger.ErrorField(err))
		}
	}
	return nil
}

func (r *ReservesReducer) runCountry(ctx context.Context, country entity.Country) error {
	series := r.reserves.Series(ctx, country)
	if len(series) == 0 {
		return nil
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	changes := make([]*float64, len(series))
	for i := reservesChangeMonths; i < len(series); i++ {
		ref := series[i-reservesChangeMonths].Amount
		if ref == 0 {
			continue
		}
		change := (series[i].Amount - ref) / math.Abs(ref) * 100
		changes[i] = &change
	}

	rows := forwardFillReserves(country.ID, series, changes)

	for _, batch := range chunk(rows, batchSize) {
		if err := r.obs.BatchUpsert(ctx, batch, []string{store.ColReservesLevel, store.ColReservesChange}); err != nil {
			return err
		}
	}
	return nil
}

func forwardFillReserves(countryID uint, series []sources.ReservesObservation, changes []*float64) []entity.DailyObservation {
	if len(series) == 0 {
		return nil
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	var rows []entity.DailyObservation

	next := 0
	currentLevel := series[0].Amount
	var currentChange *float64
	for day := series[0].Date; !day.After(end); day = day.AddDate(0, 0, 1) {
		for next < len(series) && !series[next].Date.After(day) {
			currentLevel = series[next].Amount
			currentChange = changes[next]
			next++
		}

		level := currentLevel
		rows = append(rows, entity.DailyObservation{
			CountryID:      countryID,
			Date:           day,
			ReservesLevel:  &level,
			ReservesChange: currentChange,
		})
	}
	return rows
}
