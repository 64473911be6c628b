// Package solver finds low-energy bit vectors for QUBO problems.
package solver

import (
	"github.com/aristath/quantfolio/internal/domain"
	"github.com/aristath/quantfolio/internal/modules/qubo"
)

// Result is the best solution a solver found: the full bit vector (assets
// plus slack) and its energy including the constant offset.
type Result struct {
	Bits      []int
	Objective float64
}

// Solver searches the binary solution space of a QUBO problem.
type Solver interface {
	Solve(p *qubo.Problem) (Result, error)
	Name() string
}

// New returns the solver for a strategy. Layers, iterations and seed only
// apply to the heuristic strategy.
func New(strategy domain.SolverStrategy, layers, iterations int, seed int64) (Solver, error) {
	switch strategy {
	case domain.StrategyExhaustive:
		return NewExhaustive(), nil
	case domain.StrategyHeuristic:
		return NewSampler(layers, iterations, seed)
	default:
		return nil, &domain.ConfigurationError{
			Field:  "solver_strategy",
			Reason: "unknown strategy " + string(strategy),
		}
	}
}
