package sources

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/scoring"
	"macro-stress-pipeline/pkg/breaker"
	"macro-stress-pipeline/pkg/config"
	"macro-stress-pipeline/pkg/httpclient"
	"macro-stress-pipeline/pkg/logger"
)

// StablecoinAdapter fetches the median cross-exchange stablecoin
// premium against an official rate, for the single country the
// premium applies to.
type StablecoinAdapter interface {
	Premium(ctx context.Context, country entity.Country, official float64) *StablecoinObservation
}

type exchangeQuote struct {
	Exchange string          `json:"exchange"`
	TotalAsk decimal.Decimal `json:"total_ask"`
}

type stablecoinQuotesResponse struct {
	Quotes []exchangeQuote `json:"quotes"`
}

const minStablecoinExchanges = 2

type stablecoinAdapter struct {
	cfg     config.Sources
	log     *logger.Logger
	client  *httpclient.Limited
	breaker *breaker.Breaker
}

// NewStablecoinAdapter builds the stablecoin-premium adapter.
func NewStablecoinAdapter(cfg config.Sources, log *logger.Logger) StablecoinAdapter {
	return &stablecoinAdapter{
		cfg:     cfg,
		log:     log,
		client:  newClient(cfg),
		breaker: breaker.New("stablecoin"),
	}
}

// Premium requires at least two exchange quotes and a non-zero
// official rate to compute (median-official)/official*100.
func (a *stablecoinAdapter) Premium(ctx context.Context, country entity.Country, official float64) *StablecoinObservation {
	if country.ISO2 != a.cfg.StablecoinISO2 || official == 0 {
		return nil
	}

	url := fmt.Sprintf("%s/quotes?country=%s", a.cfg.StablecoinBaseURL, country.ISO2)

	var resp stablecoinQuotesResponse
	if err := getJSON(ctx, "stablecoin", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}
	if len(resp.Quotes) < minStablecoinExchanges {
		a.log.WarnContext(ctx, "stablecoin: fewer than two exchange quotes",
			logger.IntField("count", len(resp.Quotes)))
		return nil
	}

	asks := make([]float64, len(resp.Quotes))
	for i, q := range resp.Quotes {
		asks[i] = q.TotalAsk.InexactFloat64()
	}

	medianAsk := scoring.Median(asks)
	premium := (medianAsk - official) / official * 100

	return &StablecoinObservation{Premium: premium}
}
