// Package interpreter turns a solver bit vector back into a portfolio:
// selected assets, minimum-variance weights within the selection, and cash
// allocations for a budget.
package interpreter

import (
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/quantfolio/internal/domain"
	"github.com/aristath/quantfolio/internal/modules/statistics"
)

// maxCondition is the condition-number threshold beyond which the selected
// covariance block is treated as numerically singular.
const maxCondition = 1e12

// Portfolio is the interpreted selection. Weights are in selection order and
// sum to 1; allocations are budget * weight rounded to cents.
type Portfolio struct {
	SelectedIndices []int
	SelectedAssets  []string
	Weights         []float64
	Allocations     []decimal.Decimal
}

// Interpret maps the asset bits of a solution to a weighted portfolio.
// Slack bits past the universe size are ignored. An empty selection returns
// domain.InfeasibleError; an ill-conditioned covariance block returns
// domain.SingularCovarianceError.
func Interpret(bits []int, stats *statistics.Statistics, budget float64) (*Portfolio, error) {
	var indices []int
	var assets []string
	for i := 0; i < stats.N() && i < len(bits); i++ {
		if bits[i] != 0 {
			indices = append(indices, i)
			assets = append(assets, stats.Assets[i])
		}
	}
	if len(indices) == 0 {
		return nil, &domain.InfeasibleError{Reason: "solver selected no assets"}
	}

	weights, err := minVarianceWeights(indices, assets, stats.Covariance)
	if err != nil {
		return nil, err
	}

	budgetDec := decimal.NewFromFloat(budget)
	allocations := make([]decimal.Decimal, len(weights))
	for i, w := range weights {
		allocations[i] = budgetDec.Mul(decimal.NewFromFloat(w)).Round(2)
	}

	return &Portfolio{
		SelectedIndices: indices,
		SelectedAssets:  assets,
		Weights:         weights,
		Allocations:     allocations,
	}, nil
}

// minVarianceWeights solves w = Σ⁻¹1 / (1ᵀΣ⁻¹1) on the selected covariance
// block. A single-asset selection trivially gets full weight.
func minVarianceWeights(indices []int, assets []string, cov *mat.SymDense) ([]float64, error) {
	k := len(indices)
	if k == 1 {
		return []float64{1}, nil
	}

	sub := mat.NewSymDense(k, nil)
	for a, i := range indices {
		for b := a; b < k; b++ {
			sub.SetSym(a, b, cov.At(i, indices[b]))
		}
	}

	cond := mat.Cond(sub, 1)
	if math.IsInf(cond, 1) || math.IsNaN(cond) || cond > maxCondition {
		return nil, &domain.SingularCovarianceError{Assets: assets, Condition: cond}
	}

	var inv mat.Dense
	if err := inv.Inverse(sub); err != nil {
		return nil, &domain.SingularCovarianceError{Assets: assets, Condition: cond}
	}

	ones := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		ones.SetVec(i, 1)
	}
	var raw mat.VecDense
	raw.MulVec(&inv, ones)

	sum := 0.0
	for i := 0; i < k; i++ {
		sum += raw.AtVec(i)
	}
	if sum == 0 {
		return nil, &domain.SingularCovarianceError{Assets: assets, Condition: cond}
	}

	weights := make([]float64, k)
	for i := 0; i < k; i++ {
		weights[i] = raw.AtVec(i) / sum
	}
	return weights, nil
}
