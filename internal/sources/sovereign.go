package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/pkg/breaker"
	"macro-stress-pipeline/pkg/config"
	"macro-stress-pipeline/pkg/httpclient"
	"macro-stress-pipeline/pkg/logger"
)

// SovereignAdapter fetches a country's long-tenor sovereign yield. The
// primary and SDMX fallback providers share this interface so the
// orchestrator can dispatch on entity.Country.HasPrimaryYieldSource
// without knowing which concrete provider answers.
type SovereignAdapter interface {
	Yield(ctx context.Context, country entity.Country) *YieldObservation

	// Series fetches the full monthly yield history, oldest first, for
	// the backfill reducer's forward-fill expansion.
	Series(ctx context.Context, country entity.Country) []YieldObservation
}

type primaryYieldResponse struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
}

type primarySeriesResponse struct {
	Series []primaryYieldResponse `json:"series"`
}

type primarySovereignAdapter struct {
	cfg     config.Sources
	log     *logger.Logger
	client  *httpclient.Limited
	breaker *breaker.Breaker
}

// NewPrimarySovereignAdapter builds the sovereign-yield adapter for
// countries whose series exists in the primary macroeconomic source.
func NewPrimarySovereignAdapter(cfg config.Sources, log *logger.Logger) SovereignAdapter {
	return &primarySovereignAdapter{
		cfg:     cfg,
		log:     log,
		client:  newClient(cfg),
		breaker: breaker.New("sovereign-primary"),
	}
}

func (a *primarySovereignAdapter) Yield(ctx context.Context, country entity.Country) *YieldObservation {
	if !country.HasPrimaryYieldSource() {
		return nil
	}

	url := fmt.Sprintf("%s/series/%s/latest?apikey=%s", a.cfg.PrimaryMacroBaseURL, country.PrimarySourceSeriesID, a.cfg.PrimaryMacroAPIKey)

	var resp primaryYieldResponse
	if err := getJSON(ctx, "sovereign-primary", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	date, err := time.Parse("2006-01-02", resp.Date)
	if err != nil {
		a.log.ErrorContext(ctx, "sovereign-primary: malformed date", logger.ErrorField(err))
		return nil
	}

	return &YieldObservation{Date: date, Yield: resp.Value.InexactFloat64()}
}

func (a *primarySovereignAdapter) Series(ctx context.Context, country entity.Country) []YieldObservation {
	if !country.HasPrimaryYieldSource() {
		return nil
	}

	url := fmt.Sprintf("%s/series/%s/monthly?apikey=%s", a.cfg.PrimaryMacroBaseURL, country.PrimarySourceSeriesID, a.cfg.PrimaryMacroAPIKey)

	var resp primarySeriesResponse
	if err := getJSON(ctx, "sovereign-primary-history", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	out := make([]YieldObservation, 0, len(resp.Series))
	for _, point := range resp.Series {
		date, err := time.Parse("2006-01-02", point.Date)
		if err != nil {
			continue
		}
		out = append(out, YieldObservation{Date: date, Yield: point.Value.InexactFloat64()})
	}
	return out
}

// sdmxObservation mirrors the compact SDMX-JSON shape: a flat series
// of (period, value) pairs for a single dataflow/dimension key.
type sdmxObservation struct {
	Period string          `json:"period"`
	Value  decimal.Decimal `json:"value"`
}

type sdmxSeriesResponse struct {
	Observations []sdmxObservation `json:"observations"`
}

type fallbackSovereignAdapter struct {
	cfg     config.Sources
	log     *logger.Logger
	client  *httpclient.Limited
	breaker *breaker.Breaker
}

// NewFallbackSovereignAdapter builds the SDMX-style adapter used for
// countries the primary source does not cover. It is common and
// documented for this to return null when the fallback series itself
// is unavailable for a given country.
func NewFallbackSovereignAdapter(cfg config.Sources, log *logger.Logger) SovereignAdapter {
	return &fallbackSovereignAdapter{
		cfg:     cfg,
		log:     log,
		client:  newClient(cfg),
		breaker: breaker.New("sovereign-fallback"),
	}
}

func (a *fallbackSovereignAdapter) Yield(ctx context.Context, country entity.Country) *YieldObservation {
	url := fmt.Sprintf("%s/data/IRLTLT01/%s.M?format=jsondata", a.cfg.SDMXFallbackURL, country.ISO3)

	var resp sdmxSeriesResponse
	if err := getJSON(ctx, "sovereign-fallback", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}
	if len(resp.Observations) == 0 {
		return nil
	}

	latest := resp.Observations[len(resp.Observations)-1]
	date, err := time.Parse("2006-01", latest.Period)
	if err != nil {
		a.log.ErrorContext(ctx, "sovereign-fallback: malformed period", logger.ErrorField(err))
		return nil
	}

	return &YieldObservation{Date: date, Yield: latest.Value.InexactFloat64()}
}

func (a *fallbackSovereignAdapter) Series(ctx context.Context, country entity.Country) []YieldObservation {
	url := fmt.Sprintf("%s/data/IRLTLT01/%s.M?format=jsondata", a.cfg.SDMXFallbackURL, country.ISO3)

	var resp sdmxSeriesResponse
	if err := getJSON(ctx, "sovereign-fallback-history", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	out := make([]YieldObservation, 0, len(resp.Observations))
	for _, obs := range resp.Observations {
		date, err := time.Parse("2006-01", obs.Period)
		if err != nil {
			continue
		}
		out = append(out, YieldObservation{Date: date, Yield: obs.Value.InexactFloat64()})
	}
	return out
}
