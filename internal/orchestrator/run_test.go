package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/sources"
	"macro-stress-pipeline/internal/store"
	"macro-stress-pipeline/pkg/logger"
)

type mockCountries struct{ mock.Mock }

func (m *mockCountries) All(ctx context.Context) ([]entity.Country, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Country), args.Error(1)
}
func (m *mockCountries) FindByISO2(ctx context.Context, iso2 string) (*entity.Country, error) {
	args := m.Called(ctx, iso2)
	return args.Get(0).(*entity.Country), args.Error(1)
}

type mockNormParams struct{ mock.Mock }

func (m *mockNormParams) AllIndexed(ctx context.Context) (map[uint]map[string]entity.NormalizationParam, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[uint]map[string]entity.NormalizationParam), args.Error(1)
}
func (m *mockNormParams) Upsert(ctx context.Context, param *entity.NormalizationParam) error {
	args := m.Called(ctx, param)
	return args.Error(0)
}

type mockRunLog struct{ mock.Mock }

func (m *mockRunLog) SuccessfulRunExists(ctx context.Context, date time.Time) (bool, error) {
	args := m.Called(ctx, date)
	return args.Bool(0), args.Error(1)
}
func (m *mockRunLog) Append(ctx context.Context, log *entity.RunLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

type mockObs struct{ mock.Mock }

func (m *mockObs) Upsert(ctx context.Context, obs *entity.DailyObservation, columns []string) error {
	args := m.Called(ctx, obs, columns)
	return args.Error(0)
}
func (m *mockObs) LastNonNull(ctx context.Context, countryID uint, column string) (float64, time.Time, error) {
	args := m.Called(ctx, countryID, column)
	return args.Get(0).(float64), args.Get(1).(time.Time), args.Error(2)
}
func (m *mockObs) LastNonNullBefore(ctx context.Context, countryID uint, column string, cutoff time.Time) (float64, time.Time, error) {
	args := m.Called(ctx, countryID, column, cutoff)
	return args.Get(0).(float64), args.Get(1).(time.Time), args.Error(2)
}
func (m *mockObs) LastNonNullInRange(ctx context.Context, countryID uint, column string, from, to time.Time) (float64, time.Time, error) {
	args := m.Called(ctx, countryID, column, from, to)
	return args.Get(0).(float64), args.Get(1).(time.Time), args.Error(2)
}
func (m *mockObs) LatestScored(ctx context.Context, countryID uint) (*entity.DailyObservation, error) {
	args := m.Called(ctx, countryID)
	return args.Get(0).(*entity.DailyObservation), args.Error(1)
}
func (m *mockObs) LatestScoredOnOrBefore(ctx context.Context, countryID uint, cutoff time.Time) (*entity.DailyObservation, error) {
	args := m.Called(ctx, countryID, cutoff)
	return args.Get(0).(*entity.DailyObservation), args.Error(1)
}
func (m *mockObs) History(ctx context.Context, countryID uint, limit int) ([]entity.DailyObservation, error) {
	args := m.Called(ctx, countryID, limit)
	return args.Get(0).([]entity.DailyObservation), args.Error(1)
}
func (m *mockObs) BatchUpsert(ctx context.Context, rows []entity.DailyObservation, columns []string) error {
	args := m.Called(ctx, rows, columns)
	return args.Error(0)
}
func (m *mockObs) ValuesSince(ctx context.Context, countryID uint, column string, since time.Time) ([]float64, time.Time, time.Time, error) {
	args := m.Called(ctx, countryID, column, since)
	return args.Get(0).([]float64), args.Get(1).(time.Time), args.Get(2).(time.Time), args.Error(3)
}
func (m *mockObs) RecentValues(ctx context.Context, countryID uint, column string, asOf time.Time, n int) ([]float64, error) {
	args := m.Called(ctx, countryID, column, asOf, n)
	return args.Get(0).([]float64), args.Error(1)
}

type mockFX struct{ mock.Mock }

func (m *mockFX) DailyClose(ctx context.Context, country entity.Country) *sources.FXObservation {
	args := m.Called(ctx, country)
	obs, _ := args.Get(0).(*sources.FXObservation)
	return obs
}
func (m *mockFX) History(ctx context.Context, country entity.Country) []sources.FXObservation {
	args := m.Called(ctx, country)
	return args.Get(0).([]sources.FXObservation)
}

type mockCrypto struct{ mock.Mock }

func (m *mockCrypto) GlobalRatio(ctx context.Context) *sources.CryptoObservation {
	args := m.Called(ctx)
	obs, _ := args.Get(0).(*sources.CryptoObservation)
	return obs
}
func (m *mockCrypto) GlobalHistory(ctx context.Context) []sources.CryptoObservation {
	args := m.Called(ctx)
	return args.Get(0).([]sources.CryptoObservation)
}

type mockInflation struct{ mock.Mock }

func (m *mockInflation) LatestYoY(ctx context.Context, country entity.Country) *sources.InflationObservation {
	args := m.Called(ctx, country)
	obs, _ := args.Get(0).(*sources.InflationObservation)
	return obs
}
func (m *mockInflation) Series(ctx context.Context, country entity.Country) []sources.InflationObservation {
	args := m.Called(ctx, country)
	return args.Get(0).([]sources.InflationObservation)
}

type mockSovereign struct{ mock.Mock }

func (m *mockSovereign) Yield(ctx context.Context, country entity.Country) *sources.YieldObservation {
	args := m.Called(ctx, country)
	obs, _ := args.Get(0).(*sources.YieldObservation)
	return obs
}
func (m *mockSovereign) Series(ctx context.Context, country entity.Country) []sources.YieldObservation {
	args := m.Called(ctx, country)
	return args.Get(0).([]sources.YieldObservation)
}

type mockReserves struct{ mock.Mock }

func (m *mockReserves) LatestReserves(ctx context.Context, country entity.Country) *sources.ReservesObservation {
	args := m.Called(ctx, country)
	obs, _ := args.Get(0).(*sources.ReservesObservation)
	return obs
}
func (m *mockReserves) Series(ctx context.Context, country entity.Country) []sources.ReservesObservation {
	args := m.Called(ctx, country)
	return args.Get(0).([]sources.ReservesObservation)
}

type mockRiskFree struct{ mock.Mock }

func (m *mockRiskFree) Latest(ctx context.Context) *sources.YieldObservation {
	args := m.Called(ctx)
	obs, _ := args.Get(0).(*sources.YieldObservation)
	return obs
}
func (m *mockRiskFree) History(ctx context.Context) []sources.YieldObservation {
	args := m.Called(ctx)
	return args.Get(0).([]sources.YieldObservation)
}

type mockStablecoin struct{ mock.Mock }

func (m *mockStablecoin) Premium(ctx context.Context, country entity.Country, official float64) *sources.StablecoinObservation {
	args := m.Called(ctx, country, official)
	obs, _ := args.Get(0).(*sources.StablecoinObservation)
	return obs
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

func brazil() entity.Country {
	return entity.Country{ID: 1, Name: "Brazil", ISO2: "BR", ISO3: "BRA", Currency: "BRL"}
}

// fixedClock pins the orchestrator's clock to t. The tests below pass a
// non-first-of-month UTC date so isMonthly is deterministically false,
// matching scenario 4/5's "non-monthly day" setup.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestOrchestrator_Idempotent_SecondRunSkips(t *testing.T) {
	ctx := context.Background()
	runDate := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	countries := new(mockCountries)
	normParams := new(mockNormParams)
	runLog := new(mockRunLog)
	obs := new(mockObs)
	fx := new(mockFX)
	crypto := new(mockCrypto)
	inflation := new(mockInflation)
	reserves := new(mockReserves)
	riskFree := new(mockRiskFree)
	stablecoin := new(mockStablecoin)

	runLog.On("SuccessfulRunExists", ctx, runDate.Truncate(24*time.Hour)).Return(true, nil)

	o := New(countries, normParams, obs, runLog, fx, crypto, inflation,
		func(entity.Country) sources.SovereignAdapter { return nil },
		reserves, riskFree, stablecoin, testLogger(t))
	o.now = fixedClock(runDate)

	result, err := o.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, entity.RunStatusSuccess, result.Status)

	countries.AssertNotCalled(t, "All", mock.Anything)
	runLog.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

// TestOrchestrator_FXOutage_PartialStatus is scenario 4: a non-monthly
// run where one country's FX fetch fails. fx_vol is left missing,
// monthly-cadence metrics carry forward from the store, crypto is
// present, and the row is still written with a partial run status.
func TestOrchestrator_FXOutage_PartialStatus(t *testing.T) {
	ctx := context.Background()
	runDate := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	dayStart := runDate.Truncate(24 * time.Hour)
	country := brazil()

	countries := new(mockCountries)
	normParams := new(mockNormParams)
	runLog := new(mockRunLog)
	obs := new(mockObs)
	fx := new(mockFX)
	crypto := new(mockCrypto)
	inflation := new(mockInflation)
	reserves := new(mockReserves)
	riskFree := new(mockRiskFree)
	stablecoin := new(mockStablecoin)

	runLog.On("SuccessfulRunExists", ctx, dayStart).Return(false, nil)
	countries.On("All", ctx).Return([]entity.Country{country}, nil)

	params := map[string]entity.NormalizationParam{
		entity.MetricInflation:      {MinVal: 0, MaxVal: 5},
		entity.MetricRiskSpread:     {MinVal: 0, MaxVal: 6},
		entity.MetricCryptoRatio:    {MinVal: 0.1, MaxVal: 0.5},
		entity.MetricReservesChange: {MinVal: -10, MaxVal: 10},
	}
	normParams.On("AllIndexed", ctx).Return(map[uint]map[string]entity.NormalizationParam{1: params}, nil)

	crypto.On("GlobalRatio", ctx).Return(&sources.CryptoObservation{Date: dayStart, Ratio: 0.25})
	riskFree.On("Latest", ctx).Return(&sources.YieldObservation{Date: dayStart, Yield: 4.0})

	fx.On("DailyClose", ctx, country).Return(nil)

	obs.On("LastNonNull", ctx, country.ID, store.ColInflation).Return(1.5, dayStart.AddDate(0, -1, 0), nil)
	obs.On("LastNonNull", ctx, country.ID, store.ColRiskSpread).Return(3.0, dayStart.AddDate(0, -1, 0), nil)
	obs.On("LastNonNull", ctx, country.ID, store.ColReservesChange).Return(-5.0, dayStart.AddDate(0, -1, 0), nil)
	obs.On("LastNonNull", ctx, country.ID, store.ColStablecoinPremium).Return(0.0, time.Time{}, store.ErrNotFound)

	obs.On("Upsert", ctx, mock.MatchedBy(func(row *entity.DailyObservation) bool {
		return row.CountryID == country.ID && row.FXClose == nil && row.FXVol == nil && row.StressScore != nil
	}), mock.Anything).Return(nil)

	runLog.On("Append", ctx, mock.MatchedBy(func(log *entity.RunLog) bool {
		return log.Status == entity.RunStatusPartial
	})).Return(nil)

	o := New(countries, normParams, obs, runLog, fx, crypto, inflation,
		func(entity.Country) sources.SovereignAdapter { return nil },
		reserves, riskFree, stablecoin, testLogger(t))
	o.now = fixedClock(runDate)

	result, err := o.Run(ctx)
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, entity.RunStatusPartial, result.Status)
	assert.Equal(t, 1, result.CountriesUpdated)
	assert.NotEmpty(t, result.Errors)

	obs.AssertExpectations(t)
	runLog.AssertExpectations(t)
}
