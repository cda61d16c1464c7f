package backfill

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
)

// CryptoReducer replicates the single global crypto-ratio series
// across every country's daily observations.
type CryptoReducer struct {
	crypto    sources.CryptoAdapter
	countries store.CountryRepository
	obs       store.ObservationRepository
	limiter   *rate.Limiter
	log       *logger.Logger
}

// NewCryptoReducer builds the crypto backfill reducer.
func NewCryptoReducer(crypto sources.CryptoAdapter, countries store.CountryRepository, obs store.ObservationRepository, limiter *rate.Limiter, log *logger.Logger) *CryptoReducer {
	return &CryptoReducer{crypto: crypto, countries: countries, obs: obs, limiter: limiter, log: log}
}

// Run fetches the global 365-day ratio series once, then upserts one
// row per (country, date) pair for every country in the registry.
func (r *CryptoReducer) Run(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("crypto reducer: rate limit wait: %w", err)
	}

	series := r.crypto.GlobalHistory(ctx)
	if len(series) == 0 {
		return nil
	}

	all, err := r.countries.All(ctx)
	if err != nil {
		return fmt.Errorf("crypto reducer: load countries: %w", err)
	}

	for _, country := range all {
		rows := make([]entity.DailyObservation, len(series))
		for i, point := range series {
			ratio := point.Ratio
			rows[i] = entity.DailyObservation{
				CountryID:   country.ID,
				Date:        point.Date,
				CryptoRatio: &ratio,
			}
		}
		for _, batch := range chunk(rows, batchSize) {
			if err := r.obs.BatchUpsert(ctx, batch, []string{store.ColCryptoRatio}); err != nil {
				r.log.ErrorContext(ctx, "crypto reducer: batch upsert failed",
					logger.StringField("country", country.ISO2), logger.ErrorField(err))
				break
			}
		}
	}
	return nil
}
