package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"macro-stress-pipeline/pkg/breaker"
	"macro-stress-pipeline/pkg/config"
	"macro-stress-pipeline/pkg/httpclient"
	"macro-stress-pipeline/pkg/logger"
)

// RiskFreeAdapter fetches the global reference long-tenor yield (the
// one subtracted from every country's sovereign yield to produce its
// risk spread).
type RiskFreeAdapter interface {
	Latest(ctx context.Context) *YieldObservation

	// History fetches the full daily risk-free series, oldest first,
	// for the sovereign backfill reducer's per-day risk-spread
	// computation.
	History(ctx context.Context) []YieldObservation
}

type riskFreePoint struct {
	Date  string          `json:"date"`
	Yield decimal.Decimal `json:"yield"`
}

type riskFreeSeriesResponse struct {
	Series []riskFreePoint `json:"series"`
}

type riskFreeAdapter struct {
	cfg     config.Sources
	log     *logger.Logger
	client  *httpclient.Limited
	breaker *breaker.Breaker
}

// NewRiskFreeAdapter builds the risk-free yield adapter.
func NewRiskFreeAdapter(cfg config.Sources, log *logger.Logger) RiskFreeAdapter {
	return &riskFreeAdapter{
		cfg:     cfg,
		log:     log,
		client:  newClient(cfg),
		breaker: breaker.New("risk-free"),
	}
}

// Latest returns the most recent non-missing daily observation. The
// provider's series is business-days only, so weekend gaps are simply
// absent rather than needing to be skipped explicitly.
func (a *riskFreeAdapter) Latest(ctx context.Context) *YieldObservation {
	url := a.cfg.RiskFreeBaseURL + "/series/us10y/recent"

	var resp riskFreeSeriesResponse
	if err := getJSON(ctx, "risk-free", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}
	if len(resp.Series) == 0 {
		return nil
	}

	latest := resp.Series[len(resp.Series)-1]
	date, err := time.Parse("2006-01-02", latest.Date)
	if err != nil {
		a.log.ErrorContext(ctx, "risk-free: malformed date", logger.ErrorField(err))
		return nil
	}

	return &YieldObservation{Date: date, Yield: latest.Yield.InexactFloat64()}
}

func (a *riskFreeAdapter) History(ctx context.Context) []YieldObservation {
	url := a.cfg.RiskFreeBaseURL + "/series/us10y/full"

	var resp riskFreeSeriesResponse
	if err := getJSON(ctx, "risk-free-history", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	out := make([]YieldObservation, 0, len(resp.Series))
	for _, point := range resp.Series {
		date, err := time.Parse("2006-01-02", point.Date)
		if err != nil {
			continue
		}
		out = append(out, YieldObservation{Date: date, Yield: point.Yield.InexactFloat64()})
	}
	return out
}
