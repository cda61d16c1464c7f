package readapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"macro-stress-pipeline/internal/entity"
	"macro-stress-pipeline/internal/store"
)

type mockCountries struct{ mock.Mock }

func (m *mockCountries) All(ctx context.Context) ([]entity.Country, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Country), args.Error(1)
}
func (m *mockCountries) FindByISO2(ctx context.Context, iso2 string) (*entity.Country, error) {
	args := m.Called(ctx, iso2)
	country, _ := args.Get(0).(*entity.Country)
	return country, args.Error(1)
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
	row, _ := args.Get(0).(*entity.DailyObservation)
	return row, args.Error(1)
}
func (m *mockObs) LatestScoredOnOrBefore(ctx context.Context, countryID uint, cutoff time.Time) (*entity.DailyObservation, error) {
	args := m.Called(ctx, countryID, cutoff)
	row, _ := args.Get(0).(*entity.DailyObservation)
	return row, args.Error(1)
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

func ptr(v float64) *float64 { return &v }

func country(id uint, iso2, name string) entity.Country {
	return entity.Country{ID: id, Name: name, ISO2: iso2, ISO3: iso2 + "X", Currency: "XXX"}
}

func scoredRow(countryID uint, date time.Time, score float64) entity.DailyObservation {
	return entity.DailyObservation{
		CountryID:   countryID,
		Date:        date,
		Inflation:   ptr(2.0),
		RiskSpread:  ptr(3.0),
		CryptoRatio: ptr(0.2),
		StressScore: ptr(score),
		DataFlags:   map[string]interface{}{},
	}
}

func emptyParams() map[uint]map[string]entity.NormalizationParam {
	return map[uint]map[string]entity.NormalizationParam{}
}

// TestComposer_Scoreboard_RanksAndBreaksTiesByCountryID covers two
// countries scoring equal: the lower country ID must rank first, and
// rank must be 1-indexed and contiguous.
func TestComposer_Scoreboard_RanksAndBreaksTiesByCountryID(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	brazil := country(2, "BR", "Brazil")
	argentina := country(1, "AR", "Argentina")

	countries := new(mockCountries)
	normParams := new(mockNormParams)
	obs := new(mockObs)

	countries.On("All", ctx).Return([]entity.Country{brazil, argentina}, nil)
	normParams.On("AllIndexed", ctx).Return(emptyParams(), nil)

	brazilRow := scoredRow(brazil.ID, today, 50.0)
	argentinaRow := scoredRow(argentina.ID, today, 50.0)
	obs.On("LatestScored", ctx, brazil.ID).Return(&brazilRow, nil)
	obs.On("LatestScored", ctx, argentina.ID).Return(&argentinaRow, nil)
	obs.On("LatestScoredOnOrBefore", ctx, mock.Anything, mock.Anything).Return(nil, store.ErrNotFound)

	c := NewComposer(countries, obs, normParams)
	entries, err := c.Scoreboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "AR", entries[0].CountryCode)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Nil(t, entries[0].Delta7d)
	assert.Nil(t, entries[0].Delta30d)

	assert.Equal(t, "BR", entries[1].CountryCode)
	assert.Equal(t, 2, entries[1].Rank)
}

// TestComposer_Scoreboard_SkipsCountriesWithNoScoredRow covers a
// country that has never been scored: it must be silently omitted,
// not surfaced as an error.
func TestComposer_Scoreboard_SkipsCountriesWithNoScoredRow(t *testing.T) {
	ctx := context.Background()
	brazil := country(1, "BR", "Brazil")

	countries := new(mockCountries)
	normParams := new(mockNormParams)
	obs := new(mockObs)

	countries.On("All", ctx).Return([]entity.Country{brazil}, nil)
	normParams.On("AllIndexed", ctx).Return(emptyParams(), nil)
	obs.On("LatestScored", ctx, brazil.ID).Return(nil, store.ErrNotFound)

	c := NewComposer(countries, obs, normParams)
	entries, err := c.Scoreboard(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestComposer_Scoreboard_Delta7dPopulatedWhenPriorRowExists covers
// the delta computation itself, not just the not-found path.
func TestComposer_Scoreboard_Delta7dPopulatedWhenPriorRowExists(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	brazil := country(1, "BR", "Brazil")

	countries := new(mockCountries)
	normParams := new(mockNormParams)
	obs := new(mockObs)

	countries.On("All", ctx).Return([]entity.Country{brazil}, nil)
	normParams.On("AllIndexed", ctx).Return(emptyParams(), nil)

	latest := scoredRow(brazil.ID, today, 60.0)
	obs.On("LatestScored", ctx, brazil.ID).Return(&latest, nil)

	sevenDaysBack := scoredRow(brazil.ID, today.AddDate(0, 0, -7), 55.0)
	obs.On("LatestScoredOnOrBefore", ctx, brazil.ID, today.AddDate(0, 0, -delta7Days)).Return(&sevenDaysBack, nil)
	obs.On("LatestScoredOnOrBefore", ctx, brazil.ID, today.AddDate(0, 0, -delta30Days)).Return(nil, store.ErrNotFound)

	c := NewComposer(countries, obs, normParams)
	entries, err := c.Scoreboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NotNil(t, entries[0].Delta7d)
	assert.InDelta(t, 5.0, *entries[0].Delta7d, 1e-9)
	assert.Nil(t, entries[0].Delta30d)
}

// TestComposer_Scoreboard_AppliesDataFlags covers partial/missing/
// low_confidence flags round-tripping through a JSONB-shaped
// []interface{} slice, the form a real datatypes.JSONMap unmarshal
// produces.
func TestComposer_Scoreboard_AppliesDataFlags(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	brazil := country(1, "BR", "Brazil")

	countries := new(mockCountries)
	normParams := new(mockNormParams)
	obs := new(mockObs)

	countries.On("All", ctx).Return([]entity.Country{brazil}, nil)
	normParams.On("AllIndexed", ctx).Return(emptyParams(), nil)

	latest := scoredRow(brazil.ID, today, 60.0)
	latest.DataFlags = map[string]interface{}{
		"partial":        true,
		"low_confidence": true,
		"missing":        []interface{}{"fx_vol"},
	}
	obs.On("LatestScored", ctx, brazil.ID).Return(&latest, nil)
	obs.On("LatestScoredOnOrBefore", ctx, mock.Anything, mock.Anything).Return(nil, store.ErrNotFound)

	c := NewComposer(countries, obs, normParams)
	entries, err := c.Scoreboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.True(t, entries[0].Partial)
	assert.True(t, entries[0].LowConfidence)
	assert.Equal(t, []string{"fx_vol"}, entries[0].Missing)
}

// TestComposer_History_UnknownCode covers a country code that doesn't
// resolve: found must be false with no error.
func TestComposer_History_UnknownCode(t *testing.T) {
	ctx := context.Background()

	countries := new(mockCountries)
	normParams := new(mockNormParams)
	obs := new(mockObs)

	countries.On("FindByISO2", ctx, "ZZ").Return(nil, store.ErrNotFound)

	c := NewComposer(countries, obs, normParams)
	points, found, err := c.History(ctx, "zz")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, points)
}

// TestComposer_History_ReturnsChronologicalOrder covers scenario 6: the
// store hands back historyLimit scored rows (the limit itself is
// applied by the store query), and the composer returns all of them,
// oldest first, with components recomputed from current params.
func TestComposer_History_ReturnsChronologicalOrder(t *testing.T) {
	ctx := context.Background()
	brazil := country(1, "BR", "Brazil")
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	countries := new(mockCountries)
	normParams := new(mockNormParams)
	obs := new(mockObs)

	countries.On("FindByISO2", ctx, "BR").Return(&brazil, nil)
	params := map[uint]map[string]entity.NormalizationParam{
		brazil.ID: {entity.MetricInflation: {MinVal: 0, MaxVal: 10}},
	}
	normParams.On("AllIndexed", ctx).Return(params, nil)

	rows := make([]entity.DailyObservation, historyLimit)
	for i := range rows {
		rows[i] = scoredRow(brazil.ID, base.AddDate(0, 0, i), float64(i))
	}
	obs.On("History", ctx, brazil.ID, historyLimit).Return(rows, nil)

	c := NewComposer(countries, obs, normParams)
	points, found, err := c.History(ctx, "br")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, points, historyLimit)

	assert.True(t, points[0].Date.Before(points[len(points)-1].Date))
	assert.Equal(t, base, points[0].Date)
	require.NotNil(t, points[0].Components["inflation"])
}
