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

// FXAdapter fetches a country's most recent official FX close, and,
// for the one parallel-market country, the parallel-market gap
// alongside it.
type FXAdapter interface {
	DailyClose(ctx context.Context, country entity.Country) *FXObservation

	// History fetches the long daily close series backfill needs to
	// compute a full-history rolling volatility. Returns nil on any
	// failure, same null-equivalent contract as DailyClose.
	History(ctx context.Context, country entity.Country) []FXObservation
}

type fxDailyResponse struct {
	Date  string          `json:"date"`
	Close decimal.Decimal `json:"close"`
}

type fxSeriesResponse struct {
	Series []fxDailyResponse `json:"series"`
}

type parallelMarketResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

type fxAdapter struct {
	cfg             config.Sources
	log             *logger.Logger
	client          *httpclient.Limited
	breaker         *breaker.Breaker
	parallelClient  *httpclient.Limited
	parallelBreaker *breaker.Breaker
	historyClient   *httpclient.Limited
	historyBreaker  *breaker.Breaker
}

// NewFXAdapter builds the FX daily-close adapter.
func NewFXAdapter(cfg config.Sources, log *logger.Logger) FXAdapter {
	return &fxAdapter{
		cfg:             cfg,
		log:             log,
		client:          newClient(cfg),
		breaker:         breaker.New("fx"),
		parallelClient:  newClient(cfg),
		parallelBreaker: breaker.New("fx-parallel"),
		historyClient:   httpclient.New(httpclient.BackfillTimeout, cfg.MaxRequestsPerMin),
		historyBreaker:  breaker.New("fx-history"),
	}
}

func (a *fxAdapter) DailyClose(ctx context.Context, country entity.Country) *FXObservation {
	url := fmt.Sprintf("%s/daily?base=%s&quote=USD&apikey=%s", a.cfg.FXBaseURL, country.Currency, a.cfg.FXAPIKey)

	var resp fxDailyResponse
	if err := getJSON(ctx, "fx", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	date, err := time.Parse("2006-01-02", resp.Date)
	if err != nil {
		a.log.ErrorContext(ctx, "fx: malformed date in response",
			logger.StringField("country", country.ISO2), logger.ErrorField(err))
		return nil
	}

	obs := &FXObservation{
		Date:  date,
		Close: resp.Close.InexactFloat64(),
	}

	if country.ISO2 == a.cfg.ParallelMarketISO2 {
		obs.ParallelGap = a.parallelGap(ctx, obs.Close)
	}

	return obs
}

func (a *fxAdapter) History(ctx context.Context, country entity.Country) []FXObservation {
	url := fmt.Sprintf("%s/history?base=%s&quote=USD&apikey=%s", a.cfg.FXBaseURL, country.Currency, a.cfg.FXAPIKey)

	var resp fxSeriesResponse
	if err := getJSON(ctx, "fx-history", a.historyClient, a.historyBreaker, a.log, url, &resp); err != nil {
		return nil
	}

	out := make([]FXObservation, 0, len(resp.Series))
	for _, point := range resp.Series {
		date, err := time.Parse("2006-01-02", point.Date)
		if err != nil {
			continue
		}
		out = append(out, FXObservation{Date: date, Close: point.Close.InexactFloat64()})
	}
	return out
}

// parallelGap fetches the parallel-market rate and computes
// (parallel-official)/official*100. It never fails the caller: a
// missing or malformed parallel quote simply leaves the gap null.
func (a *fxAdapter) parallelGap(ctx context.Context, official float64) *float64 {
	if a.cfg.ParallelMarketURL == "" || official == 0 {
		return nil
	}

	var resp parallelMarketResponse
	if err := getJSON(ctx, "fx-parallel", a.parallelClient, a.parallelBreaker, a.log, a.cfg.ParallelMarketURL, &resp); err != nil {
		return nil
	}

	parallel := resp.Rate.InexactFloat64()
	gap := (parallel - official) / official * 100
	return &gap
}
