// Package orchestrator implements the daily scoring run: idempotency
// guard, shared fetches, the per-country fetch/score/upsert loop, and
// the run-log write that closes out every invocation.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/scoring"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
)

// fxVolWindow matches the backfill reducer's rolling window so a
// day-one fx_vol and a backfilled fx_vol are computed identically.
const fxVolWindow = 30

// accelerationLag is the two-year delta the Open Questions resolution
// unifies backfill and the daily orchestrator on, replacing the
// original single-point prev_stored_yoy read.
const accelerationLag = 2

// reservesLookbackMin/Max bound the 80-100 calendar day window used to
// pick the reserves-change reference row; the most recent row in the
// window wins.
const (
	reservesLookbackMin = 80
	reservesLookbackMax = 100
)

// SovereignDispatch routes a country to its primary or SDMX-fallback
// sovereign-yield adapter, mirroring entity.Country.HasPrimaryYieldSource.
type SovereignDispatch func(entity.Country) sources.SovereignAdapter

// Orchestrator runs the daily scoring pipeline end to end.
type Orchestrator struct {
	countries  store.CountryRepository
	normParams store.NormParamRepository
	obs        store.ObservationRepository
	runLog     store.RunLogRepository

	fx         sources.FXAdapter
	crypto     sources.CryptoAdapter
	inflation  sources.InflationAdapter
	sovereign  SovereignDispatch
	reserves   sources.ReservesAdapter
	riskFree   sources.RiskFreeAdapter
	stablecoin sources.StablecoinAdapter

	log *logger.Logger

	// now is time.Now by default; tests substitute a fixed clock so the
	// monthly gate and run date are deterministic.
	now func() time.Time
}

// New builds the daily orchestrator.
func New(
	countries store.CountryRepository,
	normParams store.NormParamRepository,
	obs store.ObservationRepository,
	runLog store.RunLogRepository,
	fx sources.FXAdapter,
	crypto sources.CryptoAdapter,
	inflation sources.InflationAdapter,
	sovereign SovereignDispatch,
	reserves sources.ReservesAdapter,
	riskFree sources.RiskFreeAdapter,
	stablecoin sources.StablecoinAdapter,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		countries: countries, normParams: normParams, obs: obs, runLog: runLog,
		fx: fx, crypto: crypto, inflation: inflation, sovereign: sovereign,
		reserves: reserves, riskFree: riskFree, stablecoin: stablecoin, log: log,
		now: time.Now,
	}
}

// Result is the outcome of one orchestrator run.
type Result struct {
	Skipped          bool
	Status           string
	CountriesUpdated int
	CountriesFailed  int
	Errors           []string
	Duration         time.Duration
}

// Run executes one daily pass. It returns an error when the
// idempotency lookup fails, for the two fatal prelude conditions
// (countries or normalization params unreadable), and when the closing
// run-log write fails; every other failure degrades into the run's
// recorded status.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	start := o.now()
	runDate := start.UTC().Truncate(24 * time.Hour)

	alreadyRan, err := o.runLog.SuccessfulRunExists(ctx, runDate)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: idempotency check: %w", err)
	}
	if alreadyRan {
		return &Result{Skipped: true, Status: entity.RunStatusSuccess}, nil
	}

	countries, err := o.countries.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreludeCountries, err)
	}
	paramsByCountry, err := o.normParams.AllIndexed(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreludeNormParams, err)
	}

	var cryptoObs *sources.CryptoObservation
	var riskFreeObs *sources.YieldObservation
	var sharedWG sync.WaitGroup
	sharedWG.Add(2)
	go func() {
		defer sharedWG.Done()
		cryptoObs = o.crypto.GlobalRatio(ctx)
	}()
	go func() {
		defer sharedWG.Done()
		riskFreeObs = o.riskFree.Latest(ctx)
	}()
	sharedWG.Wait()

	isMonthly := runDate.Day() == 1

	var errs []string
	countriesUpdated, countriesFailed := 0, 0

	for _, country := range countries {
		params := paramsByCountry[country.ID]
		updated, countryErrs := o.runCountry(ctx, country, runDate, isMonthly, cryptoObs, riskFreeObs, params)
		if updated {
			countriesUpdated++
		} else {
			countriesFailed++
		}
		for _, e := range countryErrs {
			errs = append(errs, fmt.Sprintf("%s: %s", country.ISO2, e))
		}
	}

	status := entity.RunStatusSuccess
	switch {
	case len(errs) == 0:
		status = entity.RunStatusSuccess
	case countriesUpdated > 0:
		status = entity.RunStatusPartial
	default:
		status = entity.RunStatusError
	}

	duration := time.Since(start)
	logRow := &entity.RunLog{
		RunDate: runDate,
		Status:  status,
		Detail: datatypes.JSONMap{
			"countries_updated": countriesUpdated,
			"countries_failed":  countriesFailed,
			"errors":            errs,
		},
		DurationMs: duration.Milliseconds(),
	}
	if err := o.runLog.Append(ctx, logRow); err != nil {
		return nil, fmt.Errorf("orchestrator: append run log: %w", err)
	}

	return &Result{
		Status:           status,
		CountriesUpdated: countriesUpdated,
		CountriesFailed:  countriesFailed,
		Errors:           errs,
		Duration:         duration,
	}, nil
}

// runCountry fetches, scores, and upserts one country's row for
// runDate. It returns whether the row was written and any soft
// errors collected along the way (adapter outages count as errors for
// run-log purposes even though they never abort scoring).
func (o *Orchestrator) runCountry(
	ctx context.Context,
	country entity.Country,
	runDate time.Time,
	isMonthly bool,
	cryptoObs *sources.CryptoObservation,
	riskFreeObs *sources.YieldObservation,
	params map[string]entity.NormalizationParam,
) (bool, []string) {
	var errs []string
	flags := map[string]interface{}{}
	var columns []string

	fxObs := o.fx.DailyClose(ctx, country)
	rowDate := runDate
	var fxClose, fxVol, parallelGap *float64

	if fxObs != nil {
		c := fxObs.Close
		fxClose = &c
		rowDate = fxObs.Date
		parallelGap = fxObs.ParallelGap
		columns = append(columns, store.ColFXClose, store.ColFXVol)
		if parallelGap != nil {
			columns = append(columns, store.ColParallelGap)
		}

		recent, err := o.obs.RecentValues(ctx, country.ID, store.ColFXClose, rowDate, fxVolWindow)
		if err != nil {
			errs = append(errs, fmt.Sprintf("fx_vol: %v", err))
		} else {
			closes := make([]*float64, 0, len(recent)+1)
			for _, v := range recent {
				vv := v
				closes = append(closes, &vv)
			}
			closes = append(closes, &c)
			vols := scoring.RollingStdDev(closes, fxVolWindow)
			fxVol = vols[len(vols)-1]
		}
	} else {
		errs = append(errs, "fx: source outage")
	}

	var lastInflation, lastRiskSpread, lastReservesChange, lastStablecoin float64
	var okInflation, okRiskSpread, okReservesChange, okStablecoin bool
	var pointWG sync.WaitGroup
	pointWG.Add(4)
	go func() {
		defer pointWG.Done()
		v, _, err := o.obs.LastNonNull(ctx, country.ID, store.ColInflation)
		lastInflation, okInflation = v, err == nil
	}()
	go func() {
		defer pointWG.Done()
		v, _, err := o.obs.LastNonNull(ctx, country.ID, store.ColRiskSpread)
		lastRiskSpread, okRiskSpread = v, err == nil
	}()
	go func() {
		defer pointWG.Done()
		v, _, err := o.obs.LastNonNull(ctx, country.ID, store.ColReservesChange)
		lastReservesChange, okReservesChange = v, err == nil
	}()
	go func() {
		defer pointWG.Done()
		v, _, err := o.obs.LastNonNull(ctx, country.ID, store.ColStablecoinPremium)
		lastStablecoin, okStablecoin = v, err == nil
	}()
	pointWG.Wait()

	var raw entity.RawMetricRecord
	raw.FXVol = fxVol

	if cryptoObs != nil {
		r := cryptoObs.Ratio
		raw.CryptoRatio = &r
		columns = append(columns, store.ColCryptoRatio)
	} else {
		errs = append(errs, "crypto: source outage")
	}

	var newInflation *sources.InflationObservation
	var newSovereign *sources.YieldObservation
	var newReserves *sources.ReservesObservation

	if isMonthly {
		newInflation = o.inflation.LatestYoY(ctx, country)
		if newInflation != nil {
			columns = append(columns, store.ColInflationYoY)
			cutoff := newInflation.Date.AddDate(-accelerationLag, 0, 0)
			prevYoY, _, err := o.obs.LastNonNullBefore(ctx, country.ID, store.ColInflationYoY, cutoff)
			if err == nil {
				accel := newInflation.YoY - prevYoY
				raw.Inflation = &accel
			} else {
				errs = append(errs, "inflation: no reading two years prior for acceleration")
			}
		} else {
			errs = append(errs, "inflation: source outage")
		}

		adapter := o.sovereign(country)
		newSovereign = adapter.Yield(ctx, country)
		if newSovereign != nil {
			columns = append(columns, store.ColSovereignYield)
			if riskFreeObs != nil {
				spread := newSovereign.Yield - riskFreeObs.Yield
				raw.RiskSpread = &spread
			} else {
				errs = append(errs, "risk_spread: risk-free yield unavailable")
			}
		} else {
			errs = append(errs, "sovereign: source outage")
		}

		newReserves = o.reserves.LatestReserves(ctx, country)
		if newReserves != nil {
			columns = append(columns, store.ColReservesLevel)
			from := newReserves.Date.AddDate(0, 0, -reservesLookbackMax)
			to := newReserves.Date.AddDate(0, 0, -reservesLookbackMin)
			ref, _, err := o.obs.LastNonNullInRange(ctx, country.ID, store.ColReservesLevel, from, to)
			if err == nil {
				raw.ReservesChange = scoring.PercentChange(newReserves.Amount, &ref)
			}
			if raw.ReservesChange == nil {
				errs = append(errs, "reserves_change: no reference value 80-100 days prior")
			}
		} else {
			errs = append(errs, "reserves: source outage")
		}
	}

	// Carry forward whatever the monthly refetch (or its absence)
	// didn't already populate, so every daily row keeps a usable value
	// for the metrics that only change monthly.
	if raw.Inflation == nil && okInflation {
		v := lastInflation
		raw.Inflation = &v
	}
	if raw.RiskSpread == nil && okRiskSpread {
		v := lastRiskSpread
		raw.RiskSpread = &v
	}
	if raw.ReservesChange == nil && okReservesChange {
		v := lastReservesChange
		raw.ReservesChange = &v
	}
	if raw.Inflation != nil {
		columns = append(columns, store.ColInflation)
	}
	if raw.RiskSpread != nil {
		columns = append(columns, store.ColRiskSpread)
	}
	if raw.ReservesChange != nil {
		columns = append(columns, store.ColReservesChange)
	}

	if fxObs != nil {
		if stablecoinObs := o.stablecoin.Premium(ctx, country, fxObs.Close); stablecoinObs != nil {
			p := stablecoinObs.Premium
			raw.StablecoinPremium = &p
		} else if okStablecoin {
			v := lastStablecoin
			raw.StablecoinPremium = &v
			flags["stablecoin_forward_filled"] = true
		}
	} else if okStablecoin {
		v := lastStablecoin
		raw.StablecoinPremium = &v
		flags["stablecoin_forward_filled"] = true
	}
	if raw.StablecoinPremium != nil {
		columns = append(columns, store.ColStablecoinPremium)
	}

	var stressScore *float64
	if result, ok := scoring.Score(raw, params); ok {
		s := result.Score
		stressScore = &s
		columns = append(columns, store.ColStressScore)
		for k, v := range result.Flags() {
			flags[k] = v
		}
	} else {
		errs = append(errs, "scoring: no metrics available")
	}

	if len(columns) == 0 {
		return false, errs
	}

	row := &entity.DailyObservation{
		CountryID:         country.ID,
		Date:              rowDate,
		FXClose:           fxClose,
		FXVol:             fxVol,
		ParallelGap:       parallelGap,
		Inflation:         raw.Inflation,
		RiskSpread:        raw.RiskSpread,
		CryptoRatio:       raw.CryptoRatio,
		ReservesChange:    raw.ReservesChange,
		StablecoinPremium: raw.StablecoinPremium,
		StressScore:       stressScore,
		DataFlags:         datatypes.JSONMap(flags),
	}
	if newInflation != nil {
		y := newInflation.YoY
		row.InflationYoY = &y
	}
	if newSovereign != nil {
		y := newSovereign.Yield
		row.SovereignYield = &y
	}
	if newReserves != nil {
		a := newReserves.Amount
		row.ReservesLevel = &a
	}

	if err := o.obs.Upsert(ctx, row, columns); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrStoreWrite, err).Error())
		return false, errs
	}
	return true, errs
}
