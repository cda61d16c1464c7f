package backfill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
)

// SovereignReducer expands each country's monthly sovereign-yield
// series into dense daily rows and computes the daily risk spread
// against the shared risk-free series.
type SovereignReducer struct {
	sovereign func(entity.Country) sources.SovereignAdapter
	riskFree  sources.RiskFreeAdapter
	countries store.CountryRepository
	obs       store.ObservationRepository
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewSovereignReducer builds the sovereign-yield backfill reducer.
// sovereign dispatches a country to its primary or SDMX-fallback
// adapter, mirroring the orchestrator's own dispatch rule
// (entity.Country.HasPrimaryYieldSource).
func NewSovereignReducer(sovereign func(entity.Country) sources.SovereignAdapter, riskFree sources.RiskFreeAdapter, countries store.CountryRepository, obs store.ObservationRepository, limiter *rate.Limiter, log *logger.Logger) *SovereignReducer {
	return &SovereignReducer{sovereign: sovereign, riskFree: riskFree, countries: countries, obs: obs, limiter: limiter, log: log}
}

// Run backfills every country's sovereign-yield and risk-spread
// history.
func (r *SovereignReducer) Run(ctx context.Context) error {
	all, err := r.countries.All(ctx)
	if err != nil {
		return fmt.Errorf("sovereign reducer: load countries: %w", err)
	}

	riskFreeByDay := indexYieldsByDay(r.riskFree.History(ctx))

	for _, country := range all {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("sovereign reducer: rate limit wait: %w", err)
		}
		if err := r.runCountry(ctx, country, riskFreeByDay); err != nil {
			r.log.ErrorContext(ctx, "sovereign reducer: country failed",
				logger.StringField("country", country.ISO2), logger.ErrorField(err))
		}
	}
	return nil
}

func (r *SovereignReducer) runCountry(ctx context.Context, country entity.Country, riskFreeByDay map[string]float64) error {
	adapter := r.sovereign(country)
	series := adapter.Series(ctx, country)
	if len(series) == 0 {
		return nil
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	rows := forwardFillYield(country.ID, series, riskFreeByDay)

	for _, batch := range chunk(rows, batchSize) {
		if err := r.obs.BatchUpsert(ctx, batch, []string{store.ColSovereignYield, store.ColRiskSpread}); err != nil {
			return err
		}
	}
	return nil
}

func indexYieldsByDay(series []sources.YieldObservation) map[string]float64 {
	out := make(map[string]float64, len(series))
	for _, point := range series {
		out[dayKey(point.Date)] = point.Yield
	}
	return out
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// forwardFillYield expands a monthly yield series into daily rows
// from its first date through today, carrying each month's value
// forward until the next data point.
func forwardFillYield(countryID uint, series []sources.YieldObservation, riskFreeByDay map[string]float64) []entity.DailyObservation {
	if len(series) == 0 {
		return nil
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	var rows []entity.DailyObservation

	next := 0
	current := series[0].Yield
	for day := series[0].Date; !day.After(end); day = day.AddDate(0, 0, 1) {
		for next < len(series) && !series[next].Date.After(day) {
			current = series[next].Yield
			next++
		}

		yieldVal := current
		row := entity.DailyObservation{
			CountryID:      countryID,
			Date:           day,
			SovereignYield: &yieldVal,
		}
		if rf, ok := riskFreeByDay[dayKey(day)]; ok {
			spread := yieldVal - rf
			row.RiskSpread = &spread
		}
		rows = append(rows, row)
	}
	return rows
}
