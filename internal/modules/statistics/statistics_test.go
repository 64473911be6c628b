package statistics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantfolio/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

// series builds a daily close series from a start price and per-day simple
// returns.
func series(start float64, dailyReturns []float64) []domain.PricePoint {
	points := []domain.PricePoint{{Date: day(0), Close: start}}
	price := start
	for i, r := range dailyReturns {
		price *= 1 + r
		points = append(points, domain.PricePoint{Date: day(i + 1), Close: price})
	}
	return points
}

func flatReturns(n int, r float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestNewFromHistory(t *testing.T) {
	history := map[string][]domain.PricePoint{
		"AAA": series(100, flatReturns(30, 0.001)),
		"BBB": series(50, flatReturns(30, 0.002)),
	}

	stats, err := NewFromHistory(history)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, stats.Assets)
	assert.Equal(t, 30, stats.Observations)

	// Constant daily return of 0.1% annualizes to 25.2%
	assert.InDelta(t, 0.001*252*100, stats.ExpectedReturns[0], 1e-9)
	assert.InDelta(t, 0.002*252*100, stats.ExpectedReturns[1], 1e-9)

	// Constant returns have zero sample variance
	assert.InDelta(t, 0, stats.Covariance.At(0, 0), 1e-12)
	assert.InDelta(t, 0, stats.Covariance.At(1, 1), 1e-12)

	// Prices are the last close of each raw series
	assert.InDelta(t, 100*math.Pow(1.001, 30), stats.Prices[0], 1e-9)
	assert.InDelta(t, 50*math.Pow(1.002, 30), stats.Prices[1], 1e-9)
}

func TestNewFromHistoryDateIntersection(t *testing.T) {
	// BBB is missing one interior date; that date must be dropped for both
	full := series(100, flatReturns(30, 0.001))
	sparse := append([]domain.PricePoint(nil), full...)
	sparse = append(sparse[:10], sparse[11:]...)

	stats, err := NewFromHistory(map[string][]domain.PricePoint{
		"AAA": full,
		"BBB": sparse,
	})
	require.NoError(t, err)
	assert.Equal(t, 29, stats.Observations)
}

func TestNewFromHistoryTooFewAssets(t *testing.T) {
	_, err := NewFromHistory(map[string][]domain.PricePoint{
		"AAA": series(100, flatReturns(30, 0.001)),
	})

	var insufficient *domain.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Assets)
}

func TestNewFromHistoryDropsEmptySeries(t *testing.T) {
	stats, err := NewFromHistory(map[string][]domain.PricePoint{
		"AAA": series(100, flatReturns(30, 0.001)),
		"BBB": series(50, flatReturns(30, 0.002)),
		"CCC": {{Date: day(0), Close: 10}}, // single bar, no return
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, stats.Assets)
}

func TestNewFromHistoryTooFewObservations(t *testing.T) {
	_, err := NewFromHistory(map[string][]domain.PricePoint{
		"AAA": series(100, flatReturns(5, 0.001)),
		"BBB": series(50, flatReturns(5, 0.002)),
	})

	var insufficient *domain.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Observations)
}

func TestNewFromMoments(t *testing.T) {
	stats, err := NewFromMoments(
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

	assert.Equal(t, 3, stats.N())
	assert.Equal(t, 0, stats.Observations)
	assert.InDelta(t, 0.09, stats.Covariance.At(1, 1), 1e-15)
}

func TestNewFromMomentsValidation(t *testing.T) {
	tests := []struct {
		name    string
		assets  []string
		returns []float64
		cov     [][]float64
		prices  []float64
		field   string
	}{
		{
			name:   "empty universe",
			field:  "assets",
			prices: []float64{},
		},
		{
			name:    "returns length mismatch",
			assets:  []string{"A", "B"},
			returns: []float64{1},
			cov:     [][]float64{{1, 0}, {0, 1}},
			prices:  []float64{1, 1},
			field:   "expected_returns",
		},
		{
			name:    "asymmetric covariance",
			assets:  []string{"A", "B"},
			returns: []float64{1, 2},
			cov:     [][]float64{{1, 0.5}, {0.2, 1}},
			prices:  []float64{1, 1},
			field:   "covariance",
		},
		{
			name:    "negative variance",
			assets:  []string{"A", "B"},
			returns: []float64{1, 2},
			cov:     [][]float64{{-1, 0}, {0, 1}},
			prices:  []float64{1, 1},
			field:   "covariance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromMoments(tt.assets, tt.returns, tt.cov, tt.prices)
			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestPortfolioMoments(t *testing.T) {
	stats, err := NewFromMoments(
		[]string{"A", "B"},
		[]float64{10, 20},
		[][]float64{
			{0.04, 0.01},
			{0.01, 0.09},
		},
		[]float64{1, 1},
	)
	require.NoError(t, err)

	w := []float64{0.5, 0.5}
	assert.InDelta(t, 15, stats.PortfolioReturn(w), 1e-12)

	// 0.25*0.04 + 0.25*0.09 + 2*0.25*0.01 = 0.0375
	assert.InDelta(t, 0.19364916731, stats.PortfolioRisk(w), 1e-9)
}
