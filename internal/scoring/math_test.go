package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampNormalize(t *testing.T) {
	assert.Equal(t, 0.5, ClampNormalize(0.02, 0.02, 0.02), "degenerate history falls back to the neutral midpoint")
	assert.Equal(t, 0.0, ClampNormalize(-1, 0, 10), "below lo clamps to 0")
	assert.Equal(t, 1.0, ClampNormalize(11, 0, 10), "above hi clamps to 1")
	assert.InDelta(t, 0.5, ClampNormalize(5, 0, 10), 1e-9)
}

func TestClampNormalizeMonotoneAndIdempotent(t *testing.T) {
	lo, hi := 0.0, 10.0
	prev := ClampNormalize(-5, lo, hi)
	for _, v := range []float64{-5, -1, 0, 3, 5, 7, 10, 15} {
		cur := ClampNormalize(v, lo, hi)
		assert.GreaterOrEqual(t, cur, prev, "clamp-normalize must be monotone non-decreasing in v")
		prev = cur
	}

	// Applying it twice with (lo,hi) fixed at (0,1) after the first pass
	// is a no-op: the output is already in [0,1].
	once := ClampNormalize(0.73, lo, hi)
	twice := ClampNormalize(once, 0, 1)
	assert.InDelta(t, once, twice, 1e-9)
}

func TestPercentile(t *testing.T) {
	sorted := SortedCopy([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	assert.InDelta(t, 1.45, Percentile(sorted, 5), 1e-9)
	assert.InDelta(t, 9.55, Percentile(sorted, 95), 1e-9)
	assert.InDelta(t, 5.5, Percentile(sorted, 50), 1e-9)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3, 2, 4}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
}

func TestPercentChange(t *testing.T) {
	ref := 50.0
	out := PercentChange(60, &ref)
	require.NotNil(t, out)
	assert.InDelta(t, 20.0, *out, 1e-9)

	zero := 0.0
	assert.Nil(t, PercentChange(10, &zero), "zero reference is null")
	assert.Nil(t, PercentChange(10, nil), "missing reference is null")
}

func closes(vals ...float64) []*float64 {
	out := make([]*float64, len(vals))
	for i, v := range vals {
		v := v
		out[i] = &v
	}
	return out
}

func TestRollingStdDevRequiresFullWindow(t *testing.T) {
	series := closes(100, 101, 102, 103, 104)
	out := RollingStdDev(series, 30)
	for i, v := range out {
		assert.Nil(t, v, "position %d should be null: fewer than window prior observations", i)
	}
}

func TestRollingStdDevGating(t *testing.T) {
	// 31 slots with every other close missing, so fewer than 80% of the
	// trailing log-returns are non-null.
	series := make([]*float64, 31)
	for i := range series {
		if i%2 == 0 {
			v := 100.0 + float64(i)
			series[i] = &v
		}
	}
	out := RollingStdDev(series, 30)
	assert.Nil(t, out[30], "sparse window with <80%% non-null returns must be null")
}

func TestRollingStdDevComputesOnDenseWindow(t *testing.T) {
	series := make([]*float64, 31)
	for i := range series {
		v := 100.0 * (1.0 + 0.001*float64(i%3-1))
		series[i] = &v
	}
	out := RollingStdDev(series, 30)
	assert.NotNil(t, out[30])
	assert.GreaterOrEqual(t, *out[30], 0.0)
}

func TestRollingMeanGating(t *testing.T) {
	series := make([]*float64, 5)
	for i := range series {
		v := 1.0
		series[i] = &v
	}
	out := RollingMean(series, 5)
	require.NotNil(t, out[4])
	assert.InDelta(t, 1.0, *out[4], 1e-9)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 49.1, Round1(49.05882352941176))
	assert.Equal(t, 81.1, Round1(81.11111111111111))
}
