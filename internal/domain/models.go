// Package domain contains shared types and errors for the optimization
// pipeline. The domain layer is pure: no infrastructure dependencies.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single (date, close) observation in a price series.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// SolverStrategy selects the binary solver implementation.
type SolverStrategy string

const (
	// StrategyExhaustive enumerates every assignment. Global minimizer,
	// feasible only for small universes.
	StrategyExhaustive SolverStrategy = "exhaustive"
	// StrategyHeuristic samples candidate bitstrings within a fixed budget.
	StrategyHeuristic SolverStrategy = "heuristic"
)

// RunParams are the per-run optimization parameters.
type RunParams struct {
	Budget       float64        `json:"budget"`
	RiskAversion float64        `json:"risk_aversion"`
	MinAssets    int            `json:"min_assets"`
	MaxAssets    int            `json:"max_assets"`
	Strategy     SolverStrategy `json:"solver_strategy"`
	Layers       int            `json:"layers"`
	Iterations   int            `json:"iterations"`
	Seed         int64          `json:"seed"`
}

// Solution is the output record of one optimization run.
type Solution struct {
	RunID           string            `json:"run_id" msgpack:"run_id"`
	CreatedAt       time.Time         `json:"created_at" msgpack:"created_at"`
	DataSource      string            `json:"data_source" msgpack:"data_source"`
	Solver          string            `json:"solver" msgpack:"solver"`
	SelectedIndices []int             `json:"selected_indices" msgpack:"selected_indices"`
	SelectedAssets  []string          `json:"selected_assets" msgpack:"selected_assets"`
	Weights         []float64         `json:"weights" msgpack:"weights"`
	Allocations     []decimal.Decimal `json:"allocations" msgpack:"allocations"`
	ObjectiveValue  float64           `json:"objective_value" msgpack:"objective_value"`
	ExpectedReturn  float64           `json:"expected_return_pct" msgpack:"expected_return_pct"`
	Risk            float64           `json:"risk" msgpack:"risk"`
	SharpeLike      float64           `json:"sharpe_like" msgpack:"sharpe_like"`
	SharpeValid     bool              `json:"sharpe_valid" msgpack:"sharpe_valid"`
	Params          RunParams         `json:"params" msgpack:"params"`
}
