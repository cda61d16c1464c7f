package sources

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/pkg/breaker"
	"macro-stress-pipeline/pkg/config"
	"macro-stress-pipeline/pkg/httpclient"
	"macro-stress-pipeline/pkg/logger"
)

// InflationAdapter fetches the latest non-null annual YoY CPI print
// for a country from an annual-only provider.
type InflationAdapter interface {
	LatestYoY(ctx context.Context, country entity.Country) *InflationObservation

	// Series fetches every available annual YoY print, oldest first,
	// for the backfill reducer's forward-fill expansion.
	Series(ctx context.Context, country entity.Country) []InflationObservation
}

type inflationSeriesPoint struct {
	Year  string           `json:"year"`
	Value *decimal.Decimal `json:"value"`
}

type inflationSeriesResponse struct {
	Series []inflationSeriesPoint `json:"series"`
}

type inflationAdapter struct {
	cfg     config.Sources
	log     *logger.Logger
	client  *httpclient.Limited
	breaker *breaker.Breaker
}

// NewInflationAdapter builds the annual CPI adapter.
func NewInflationAdapter(cfg config.Sources, log *logger.Logger) InflationAdapter {
	return &inflationAdapter{
		cfg:     cfg,
		log:     log,
		client:  newClient(cfg),
		breaker: breaker.New("inflation"),
	}
}

func (a *inflationAdapter) LatestYoY(ctx context.Context, country entity.Country) *InflationObservation {
	series := a.Series(ctx, country)
	if len(series) == 0 {
		a.log.WarnContext(ctx, "inflation: no non-null annual print in series", logger.StringField("country", country.ISO2))
		return nil
	}
	latest := series[len(series)-1]
	return &latest
}

func (a *inflationAdapter) Series(ctx context.Context, country entity.Country) []InflationObservation {
	url := fmt.Sprintf("%s/cpi/annual?country=%s&apikey=%s", a.cfg.InflationBaseURL, country.ISO3, a.cfg.InflationAPIKey)

	var resp inflationSeriesResponse
	if err := getJSON(ctx, "inflation", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	sort.Slice(resp.Series, func(i, j int) bool { return resp.Series[i].Year < resp.Series[j].Year })

	out := make([]InflationObservation, 0, len(resp.Series))
	for _, point := range resp.Series {
		if point.Value == nil {
			continue
		}
		year, err := strconv.Atoi(point.Year)
		if err != nil {
			continue
		}
		out = append(out, InflationObservation{Date: yearEndUTC(year), YoY: point.Value.InexactFloat64()})
	}
	return out
}
