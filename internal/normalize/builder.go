// Package normalize builds and persists the p5/p95 clamp bounds the
// scoring engine reads on every scoring call.
package normalize

import (
	"context"
	"fmt"
	"time"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/scoring"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
)

// minSamples is the floor below which a metric is skipped for a run;
// a subsequent run can fill it once enough history accumulates.
const minSamples = 10

// cryptoWindowDays bounds the crypto metric's window to the crypto
// provider's own history limit; every other metric uses the full
// available history from historicalAnchor.
const cryptoWindowDays = 365

// historicalAnchor is the fixed start date for every metric's
// full-history window except crypto's. It predates any provider this
// pipeline integrates with, so in practice it never truncates real
// history — it exists so the window has one documented origin instead
// of "since the epoch".
var historicalAnchor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// columnByMetric maps a scoring-engine metric name to the raw or
// derived daily_observations column the builder reads history from.
var columnByMetric = map[string]string{
	entity.MetricFXVol:             store.ColFXVol,
	entity.MetricInflation:         store.ColInflation,
	entity.MetricRiskSpread:        store.ColRiskSpread,
	entity.MetricCryptoRatio:       store.ColCryptoRatio,
	entity.MetricReservesChange:    store.ColReservesChange,
	entity.MetricStablecoinPremium: store.ColStablecoinPremium,
}

// Builder computes and upserts normalization_params rows.
type Builder struct {
	countries store.CountryRepository
	obs       store.ObservationRepository
	params    store.NormParamRepository
	log       *logger.Logger
}

// NewBuilder builds the normalization builder.
func NewBuilder(countries store.CountryRepository, obs store.ObservationRepository, params store.NormParamRepository, log *logger.Logger) *Builder {
	return &Builder{countries: countries, obs: obs, params: params, log: log}
}

// Run recomputes normalization bounds for every (country, metric)
// pair. A metric with fewer than minSamples non-null historical
// values is left untouched for this run.
func (b *Builder) Run(ctx context.Context) error {
	countries, err := b.countries.All(ctx)
	if err != nil {
		return fmt.Errorf("normalize: load countries: %w", err)
	}

	for _, country := range countries {
		for _, metric := range entity.AllMetrics {
			if err := b.runOne(ctx, country, metric); err != nil {
				b.log.ErrorContext(ctx, "normalize: metric failed",
					logger.StringField("country", country.ISO2),
					logger.StringField("metric", metric),
					logger.ErrorField(err))
			}
		}
	}
	return nil
}

func (b *Builder) runOne(ctx context.Context, country entity.Country, metric string) error {
	column := columnByMetric[metric]
	since := historicalAnchor
	if metric == entity.MetricCryptoRatio {
		since = time.Now().UTC().AddDate(0, 0, -cryptoWindowDays)
	}

	values, windowStart, windowEnd, err := b.obs.ValuesSince(ctx, country.ID, column, since)
	if err != nil {
		return fmt.Errorf("load history for %s: %w", metric, err)
	}
	if len(values) < minSamples {
		return nil
	}

	sorted := scoring.SortedCopy(values)
	p5 := scoring.Percentile(sorted, 5)
	p95 := scoring.Percentile(sorted, 95)
	if p95 <= p5 {
		b.log.WarnContext(ctx, "normalize: degenerate p5/p95, skipping",
			logger.StringField("country", country.ISO2), logger.StringField("metric", metric))
		return nil
	}

	param := &entity.NormalizationParam{
		CountryID:   country.ID,
		MetricName:  metric,
		MinVal:      p5,
		MaxVal:      p95,
		Method:      entity.MethodP5P95Clamped,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
	if err := b.params.Upsert(ctx, param); err != nil {
		return fmt.Errorf("upsert normalization param for %s: %w", metric, err)
	}
	return nil
}
