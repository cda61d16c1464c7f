package backfill

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/scoring"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
)

const fxVolWindow = 30

// FXReducer materializes dense per-day FX close and rolling-volatility
// history for every country.
type FXReducer struct {
	fx        sources.FXAdapter
	countries store.CountryRepository
	obs       store.ObservationRepository
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewFXReducer builds the FX backfill reducer. limiter enforces the
// polite inter-call delay between countries.
func NewFXReducer(fx sources.FXAdapter, countries store.CountryRepository, obs store.ObservationRepository, limiter *rate.Limiter, log *logger.Logger) *FXReducer {
	return &FXReducer{fx: fx, countries: countries, obs: obs, limiter: limiter, log: log}
}

// Run backfills every country's FX history.
func (r *FXReducer) Run(ctx context.Context) error {
	all, err := r.countries.All(ctx)
	if err != nil {
		return fmt.Errorf("fx reducer: load countries: %w", err)
	}

	for _, country := range all {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("fx reducer: rate limit wait: %w", err)
		}
		if err := r.runCountry(ctx, country); err != nil {
			r.log.ErrorContext(ctx, "fx reducer: country failed",
				logger.StringField("country", country.ISO2), logger.ErrorField(err))
		}
	}
	return nil
}

func (r *FXReducer) runCountry(ctx context.Context, country entity.Country) error {
	history := r.fx.History(ctx, country)
	if len(history) == 0 {
		return nil
	}

	closes := make([]*float64, len(history))
	for i, point := range history {
		v := point.Close
		closes[i] = &v
	}
	vols := scoring.RollingStdDev(closes, fxVolWindow)

	rows := make([]entity.DailyObservation, len(history))
	for i, point := range history {
		rows[i] = entity.DailyObservation{
			CountryID: country.ID,
			Date:      point.Date,
			FXClose:   &history[i].Close,
			FXVol:     vols[i],
		}
	}

	for _, batch := range chunk(rows, batchSize) {
		if err := r.obs.BatchUpsert(ctx, batch, []string{store.ColFXClose, store.ColFXVol}); err != nil {
			return err
		}
	}

	// Attempting this for every country is safe: DailyClose only
	// populates ParallelGap for the one country the FX adapter is
	// configured with a parallel-market URL for, so this is a no-op for
	// every other country.
	r.attachLatestGap(ctx, country, history[len(history)-1].Date)
	return nil
}

// attachLatestGap fetches today's parallel-market gap and attaches it
// to the latest row only, since historical parallel-market data is
// unavailable.
func (r *FXReducer) attachLatestGap(ctx context.Context, country entity.Country, latestDate time.Time) {
	latest := r.fx.DailyClose(ctx, country)
	if latest == nil || latest.ParallelGap == nil {
		return
	}
	row := entity.DailyObservation{
		CountryID:   country.ID,
		Date:        latestDate,
		ParallelGap: latest.ParallelGap,
	}
	if err := r.obs.Upsert(ctx, &row, []string{store.ColParallelGap}); err != nil {
		r.log.ErrorContext(ctx, "fx reducer: attach parallel gap failed",
			logger.StringField("country", country.ISO2), logger.ErrorField(err))
	}
}
