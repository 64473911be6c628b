// Package qubo translates portfolio selection into a quadratic unconstrained
// binary optimization problem.
//
// The objective minimizes -return + riskAversion * risk over binary asset
// picks. The cardinality bounds are folded into the objective as a squared
// penalty with binary slack variables, so any solver only ever sees a plain
// symmetric Q matrix plus a constant offset.
package qubo

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/quantfolio/internal/domain"
	"github.com/aristath/quantfolio/internal/modules/statistics"
)

// Config controls how a selection problem is turned into a QUBO.
type Config struct {
	// RiskAversion trades expected return against portfolio variance.
	// Zero means pure return maximization.
	RiskAversion float64

	// MinAssets and MaxAssets bound the number of selected assets.
	MinAssets int
	MaxAssets int

	// Penalty is the constraint penalty weight. Zero selects an automatic
	// weight large enough that no infeasible selection can beat a
	// feasible one.
	Penalty float64
}

// Formulator builds QUBO problems from asset statistics.
type Formulator struct {
	cfg Config
}

// NewFormulator returns a formulator for the given configuration.
func NewFormulator(cfg Config) *Formulator {
	return &Formulator{cfg: cfg}
}

// Problem is a fully materialized QUBO instance. Bits [0, N) select assets,
// bits [N, N+SlackBits) are slack variables for the cardinality constraint.
type Problem struct {
	Q      *mat.SymDense
	Offset float64

	N         int
	SlackBits int

	MinAssets int
	MaxAssets int
	Penalty   float64

	slackCoeffs []int
}

// TotalBits is the full solution-vector length, assets plus slack.
func (p *Problem) TotalBits() int {
	return p.N + p.SlackBits
}

// SlackCoefficients returns the integer weight of each slack bit in the
// cardinality encoding.
func (p *Problem) SlackCoefficients() []int {
	return append([]int(nil), p.slackCoeffs...)
}

// Build materializes the QUBO for the given statistics.
func (f *Formulator) Build(stats *statistics.Statistics) (*Problem, error) {
	n := stats.N()
	cfg := f.cfg

	switch {
	case cfg.RiskAversion < 0:
		return nil, &domain.ConfigurationError{Field: "risk_aversion", Reason: "must be non-negative"}
	case cfg.MinAssets < 1:
		return nil, &domain.ConfigurationError{Field: "min_assets", Reason: "must be at least 1"}
	case cfg.MaxAssets < cfg.MinAssets:
		return nil, &domain.ConfigurationError{Field: "max_assets", Reason: "must be at least min_assets"}
	case cfg.MaxAssets > n:
		return nil, &domain.ConfigurationError{Field: "max_assets", Reason: "exceeds universe size"}
	case cfg.Penalty < 0:
		return nil, &domain.ConfigurationError{Field: "penalty", Reason: "must be non-negative"}
	}

	penalty := cfg.Penalty
	if penalty == 0 {
		penalty = autoPenalty(stats, cfg.RiskAversion)
	}

	slackCoeffs := slackCoefficients(cfg.MaxAssets - cfg.MinAssets)
	total := n + len(slackCoeffs)

	q := mat.NewSymDense(total, nil)

	// Objective: -return + riskAversion * covariance
	for i := 0; i < n; i++ {
		q.SetSym(i, i, -stats.ExpectedReturns[i]+cfg.RiskAversion*stats.Covariance.At(i, i))
		for j := i + 1; j < n; j++ {
			q.SetSym(i, j, cfg.RiskAversion*stats.Covariance.At(i, j))
		}
	}

	// Cardinality penalty: P * (sum(x) + sum(a_l * s_l) - maxAssets)^2.
	// Slack spans [0, max-min], so the square is zero exactly when the
	// selection count lies within [min, max].
	coeff := make([]float64, total)
	for i := 0; i < n; i++ {
		coeff[i] = 1
	}
	for l, a := range slackCoeffs {
		coeff[n+l] = float64(a)
	}

	target := float64(cfg.MaxAssets)
	for v := 0; v < total; v++ {
		// z^2 = z for binary variables
		diag := q.At(v, v) + penalty*(coeff[v]*coeff[v]-2*target*coeff[v])
		q.SetSym(v, v, diag)
		for w := v + 1; w < total; w++ {
			q.SetSym(v, w, q.At(v, w)+penalty*coeff[v]*coeff[w])
		}
	}

	return &Problem{
		Q:           q,
		Offset:      penalty * target * target,
		N:           n,
		SlackBits:   len(slackCoeffs),
		MinAssets:   cfg.MinAssets,
		MaxAssets:   cfg.MaxAssets,
		Penalty:     penalty,
		slackCoeffs: slackCoeffs,
	}, nil
}

// autoPenalty returns a weight strictly larger than the largest possible
// objective swing, so violating the cardinality constraint by even one asset
// always costs more than any objective gain.
func autoPenalty(stats *statistics.Statistics, riskAversion float64) float64 {
	var maxReturn float64
	for _, r := range stats.ExpectedReturns {
		maxReturn = math.Max(maxReturn, math.Abs(r))
	}

	var covSum float64
	n := stats.N()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			covSum += math.Abs(stats.Covariance.At(i, j))
		}
	}

	return maxReturn + riskAversion*covSum + 1
}

// slackCoefficients encodes the integer range [0, bound] with the fewest
// binary variables: powers of two plus a final coefficient capping the sum
// at exactly bound.
func slackCoefficients(bound int) []int {
	if bound <= 0 {
		return nil
	}
	var coeffs []int
	remaining := bound
	power := 1
	for power <= remaining-power+1 {
		coeffs = append(coeffs, power)
		remaining -= power
		power *= 2
	}
	if remaining > 0 {
		coeffs = append(coeffs, remaining)
	}
	return coeffs
}

// Evaluate computes bitsᵀ Q bits + offset for a full solution vector.
func (p *Problem) Evaluate(bits []int) float64 {
	total := p.Offset
	for i, bi := range bits {
		if bi == 0 {
			continue
		}
		total += p.Q.At(i, i)
		for j := i + 1; j < len(bits); j++ {
			if bits[j] != 0 {
				total += 2 * p.Q.At(i, j)
			}
		}
	}
	return total
}

// Cardinality counts the selected assets, ignoring slack bits.
func (p *Problem) Cardinality(bits []int) int {
	count := 0
	for i := 0; i < p.N; i++ {
		if bits[i] != 0 {
			count++
		}
	}
	return count
}

// Feasible reports whether the selection count lies within the configured
// cardinality bounds.
func (p *Problem) Feasible(bits []int) bool {
	card := p.Cardinality(bits)
	return card >= p.MinAssets && card <= p.MaxAssets
}
