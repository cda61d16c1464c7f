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

// ReservesAdapter fetches a country's latest non-null monthly
// total-reserves figure, in USD.
type ReservesAdapter interface {
	LatestReserves(ctx context.Context, country entity.Country) *ReservesObservation

	// Series fetches the full monthly series, oldest first, for the
	// backfill reducer's forward-fill expansion.
	Series(ctx context.Context, country entity.Country) []ReservesObservation
}

type reservesPoint struct {
	Month string           `json:"month"`
	USD   *decimal.Decimal `json:"usd"`
}

type reservesSeriesResponse struct {
	Series []reservesPoint `json:"series"`
}

type reservesAdapter struct {
	cfg     config.Sources
	log     *logger.Logger
	client  *httpclient.Limited
	breaker *breaker.Breaker
}

// NewReservesAdapter builds the reserves adapter.
func NewReservesAdapter(cfg config.Sources, log *logger.Logger) ReservesAdapter {
	return &reservesAdapter{
		cfg:     cfg,
		log:     log,
		client:  newClient(cfg),
		breaker: breaker.New("reserves"),
	}
}

func (a *reservesAdapter) LatestReserves(ctx context.Context, country entity.Country) *ReservesObservation {
	series := a.Series(ctx, country)
	if len(series) == 0 {
		a.log.WarnContext(ctx, "reserves: no non-null monthly reading in series", logger.StringField("country", country.ISO2))
		return nil
	}
	latest := series[len(series)-1]
	return &latest
}

func (a *reservesAdapter) Series(ctx context.Context, country entity.Country) []ReservesObservation {
	url := fmt.Sprintf("%s/reserves/monthly?country=%s&apikey=%s", a.cfg.ReservesBaseURL, country.ISO3, a.cfg.ReservesAPIKey)

	var resp reservesSeriesResponse
	if err := getJSON(ctx, "reserves", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	out := make([]ReservesObservation, 0, len(resp.Series))
	for _, point := range resp.Series {
		if point.USD == nil {
			continue
		}
		date, err := time.Parse("2006-01", point.Month)
		if err != nil {
			continue
		}
		out = append(out, ReservesObservation{Date: date, Amount: point.USD.InexactFloat64()})
	}
	return out
}
