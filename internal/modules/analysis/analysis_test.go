package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantfolio/internal/modules/statistics"
)

func testStats(t *testing.T) *statistics.Statistics {
	t.Helper()
	stats, err := statistics.NewFromMoments(
		[]string{"A", "B", "C"},
		[]float64{10, 20, 5},
		[][]float64{
			{0.04, 0, 0},
			{0, 0.09, 0},
			{0, 0, 0.01},
		},
		[]float64{30, 60, 20},
	)
	require.NoError(t, err)
	return stats
}

func TestExpectedReturn(t *testing.T) {
	stats := testStats(t)

	got := ExpectedReturn(stats, []int{0, 1}, []float64{0.6923, 0.3077})
	assert.InDelta(t, 0.6923*10+0.3077*20, got, 1e-9)
}

func TestRisk(t *testing.T) {
	stats := testStats(t)

	got := Risk(stats, []int{0, 1}, []float64{0.6923, 0.3077})
	assert.InDelta(t, 0.1664, got, 1e-4)
}

func TestSharpeLike(t *testing.T) {
	ratio, ok := SharpeLike(13.0766, 0.1664)
	assert.True(t, ok)
	assert.InDelta(t, 13.0766/16.64, ratio, 1e-9)

	ratio, ok = SharpeLike(10, 0)
	assert.False(t, ok)
	assert.Zero(t, ratio)
}

func TestRandomPortfolios(t *testing.T) {
	stats := testStats(t)

	points := RandomPortfolios(stats, 50, 42)
	require.Len(t, points, 50)

	for _, p := range points {
		sum := 0.0
		for _, w := range p.Weights {
			require.GreaterOrEqual(t, w, 0.0)
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		assert.GreaterOrEqual(t, p.Risk, 0.0)
	}

	// Same seed reproduces the same cloud
	again := RandomPortfolios(stats, 50, 42)
	assert.Equal(t, points, again)

	// Different seed does not
	other := RandomPortfolios(stats, 50, 7)
	assert.NotEqual(t, points[0].Weights, other[0].Weights)
}
