package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"macro-stress-pipeline/internal/scoring"
	"macro-stress-pipeline/pkg/breaker"
	"macro-stress-pipeline/pkg/config"
	"macro-stress-pipeline/pkg/httpclient"
	"macro-stress-pipeline/pkg/logger"
)

// CryptoAdapter fetches the global stablecoin/BTC market-cap ratio,
// shared across every country.
type CryptoAdapter interface {
	GlobalRatio(ctx context.Context) *CryptoObservation

	// GlobalHistory fetches the provider's 365-day daily ratio series,
	// oldest first, for the backfill reducer.
	GlobalHistory(ctx context.Context) []CryptoObservation
}

type marketCapEntry struct {
	Symbol    string          `json:"symbol"`
	MarketCap decimal.Decimal `json:"market_cap"`
}

type marketCapResponse struct {
	Data []marketCapEntry `json:"data"`
}

type marketCapHistoryPoint struct {
	Date string           `json:"date"`
	USDT decimal.Decimal  `json:"usdt_market_cap"`
	USDC *decimal.Decimal `json:"usdc_market_cap"`
	BTC  decimal.Decimal  `json:"btc_market_cap"`
}

type marketCapHistoryResponse struct {
	Series []marketCapHistoryPoint `json:"series"`
}

type cryptoAdapter struct {
	cfg     config.Sources
	log     *logger.Logger
	client  *httpclient.Limited
	breaker *breaker.Breaker
}

// NewCryptoAdapter builds the crypto ratio adapter.
func NewCryptoAdapter(cfg config.Sources, log *logger.Logger) CryptoAdapter {
	return &cryptoAdapter{
		cfg:     cfg,
		log:     log,
		client:  newClient(cfg),
		breaker: breaker.New("crypto"),
	}
}

// GlobalRatio requires USDT and BTC market caps to be present; USDC is
// optional and treated as zero when absent.
func (a *cryptoAdapter) GlobalRatio(ctx context.Context) *CryptoObservation {
	url := fmt.Sprintf("%s/market-caps?symbols=USDT,USDC,BTC", a.cfg.CryptoBaseURL)

	var resp marketCapResponse
	if err := getJSON(ctx, "crypto", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	var usdt, usdc, btc decimal.Decimal
	var haveUSDT, haveBTC bool
	for _, e := range resp.Data {
		switch e.Symbol {
		case "USDT":
			usdt, haveUSDT = e.MarketCap, true
		case "USDC":
			usdc = e.MarketCap
		case "BTC":
			btc, haveBTC = e.MarketCap, true
		}
	}

	if !haveUSDT || !haveBTC || btc.IsZero() {
		a.log.WarnContext(ctx, "crypto: required market caps missing",
			logger.BoolField("have_usdt", haveUSDT), logger.BoolField("have_btc", haveBTC))
		return nil
	}

	ratio := usdt.Add(usdc).Div(btc).InexactFloat64()

	// Date is left zero; the orchestrator stamps every row with the
	// single shared "today" it computed at run start rather than each
	// adapter minting its own clock read.
	return &CryptoObservation{
		Ratio: scoring.Round4(ratio),
	}
}

func (a *cryptoAdapter) GlobalHistory(ctx context.Context) []CryptoObservation {
	url := fmt.Sprintf("%s/market-caps/history?symbols=USDT,USDC,BTC&days=365", a.cfg.CryptoBaseURL)

	var resp marketCapHistoryResponse
	if err := getJSON(ctx, "crypto-history", a.client, a.breaker, a.log, url, &resp); err != nil {
		return nil
	}

	out := make([]CryptoObservation, 0, len(resp.Series))
	for _, point := range resp.Series {
		date, err := time.Parse("2006-01-02", point.Date)
		if err != nil || point.BTC.IsZero() {
			continue
		}
		usdc := decimal.Zero
		if point.USDC != nil {
			usdc = *point.USDC
		}
		ratio := point.USDT.Add(usdc).Div(point.BTC).InexactFloat64()
		out = append(out, CryptoObservation{Date: date, Ratio: scoring.Round4(ratio)})
	}
	return out
}
