// Package sources holds the seven provider adapters described in
// spec.md §4.3. Every adapter owns exactly one provider call, enforces
// an explicit timeout, and never propagates an error out of the
// package: a failed or malformed response logs its detail and returns
// a nil observation, the package's null-equivalent, so a flaky
// provider degrades the orchestrator's scoring inputs instead of
// aborting the run.
package sources

import "time"

// FXObservation is a single day's FX close, plus the parallel-market
// gap for the one country that has a documented parallel exchange
// rate.
type FXObservation struct {
	Date        time.Time
	Close       float64
	ParallelGap *float64
}

// CryptoObservation is the global stablecoin/BTC market-cap ratio for
// a single date, shared across every country.
type CryptoObservation struct {
	Date  time.Time
	Ratio float64
}

// InflationObservation is the latest available annual YoY CPI print.
type InflationObservation struct {
	Date time.Time
	YoY  float64
}

// YieldObservation is a sovereign or risk-free yield reading.
type YieldObservation struct {
	Date  time.Time
	Yield float64
}

// ReservesObservation is the latest monthly total-reserves reading, in
// USD.
type ReservesObservation struct {
	Date   time.Time
	Amount float64
}

// StablecoinObservation is the median cross-exchange stablecoin
// premium for one country.
type StablecoinObservation struct {
	Date    time.Time
	Premium float64
}
