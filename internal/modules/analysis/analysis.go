// Package analysis computes portfolio-level metrics on top of asset
// statistics.
package analysis

import (
	"math/rand"

	"github.com/aristath/quantfolio/internal/modules/statistics"
)

// ExpectedReturn is the weighted annualized return (percent) of a selection.
// Indices pick assets from the statistics universe; weights align with
// indices.
func ExpectedReturn(stats *statistics.Statistics, indices []int, weights []float64) float64 {
	total := 0.0
	for i, idx := range indices {
		total += weights[i] * stats.ExpectedReturns[idx]
	}
	return total
}

// Risk is the annualized volatility sqrt(wᵀΣw) of a selection, as a decimal
// fraction.
func Risk(stats *statistics.Statistics, indices []int, weights []float64) float64 {
	full := make([]float64, stats.N())
	for i, idx := range indices {
		full[idx] = weights[i]
	}
	return stats.PortfolioRisk(full)
}

// SharpeLike is return divided by risk with both sides on the same percent
// scale, no risk-free rate. The boolean is false when risk is zero and the
// ratio is undefined; the value is then 0.
func SharpeLike(returnPct, risk float64) (float64, bool) {
	if risk == 0 {
		return 0, false
	}
	return returnPct / (risk * 100), true
}

// Point is one randomly weighted portfolio over the full universe.
type Point struct {
	Weights []float64 `json:"weights"`
	Return  float64   `json:"return"`
	Risk    float64   `json:"risk"`
}

// RandomPortfolios samples n uniformly weighted long-only portfolios over
// the whole universe, for plotting a return/risk cloud around a solution.
// Seeded, so the cloud is reproducible.
func RandomPortfolios(stats *statistics.Statistics, n int, seed int64) []Point {
	rng := rand.New(rand.NewSource(seed))
	points := make([]Point, 0, n)

	for k := 0; k < n; k++ {
		weights := make([]float64, stats.N())
		sum := 0.0
		for i := range weights {
			weights[i] = rng.Float64()
			sum += weights[i]
		}
		for i := range weights {
			weights[i] /= sum
		}

		points = append(points, Point{
			Weights: weights,
			Return:  stats.PortfolioReturn(weights),
			Risk:    stats.PortfolioRisk(weights),
		})
	}
	return points
}
