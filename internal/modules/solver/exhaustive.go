package solver

import (
	"math"

	"github.com/aristath/quantfolio/internal/domain"
	"github.com/aristath/quantfolio/internal/modules/qubo"
)

// maxExhaustiveBits caps full enumeration at a few tens of millions of
// evaluations. Larger problems must use the heuristic solver.
const maxExhaustiveBits = 25

// Exhaustive enumerates every bit vector and keeps the lowest energy one.
// Deterministic: vectors are visited in increasing integer order and only a
// strictly lower energy replaces the incumbent, so ties resolve to the
// smallest integer encoding.
type Exhaustive struct{}

// NewExhaustive returns the brute-force solver.
func NewExhaustive() *Exhaustive {
	return &Exhaustive{}
}

// Name implements Solver.
func (e *Exhaustive) Name() string {
	return string(domain.StrategyExhaustive)
}

// Solve implements Solver.
func (e *Exhaustive) Solve(p *qubo.Problem) (Result, error) {
	bits := p.TotalBits()
	if bits > maxExhaustiveBits {
		return Result{}, &domain.ConfigurationError{
			Field:  "solver_strategy",
			Reason: "problem too large for exhaustive search, use the heuristic strategy",
		}
	}

	best := Result{Objective: math.Inf(1)}
	vec := make([]int, bits)
	for k := 0; k < 1<<bits; k++ {
		for i := range vec {
			vec[i] = (k >> i) & 1
		}
		if v := p.Evaluate(vec); v < best.Objective {
			best.Objective = v
			best.Bits = append(best.Bits[:0], vec...)
		}
	}
	return best, nil
}
