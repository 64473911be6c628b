package domain

import (
	"fmt"
	"strings"
)

// InsufficientDataError indicates that the available market data is too thin
// to estimate stable portfolio statistics.
type InsufficientDataError struct {
	Assets       int
	Observations int
	Reason       string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s (assets=%d, observations=%d)",
		e.Reason, e.Assets, e.Observations)
}

// ConfigurationError indicates an invalid parameter or parameter combination.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// PenaltyInsufficientError indicates that the solver's winning bitstring
// violates the cardinality bounds. This means the penalty constant did not
// dominate the objective, not that the selection is a legitimate answer.
type PenaltyInsufficientError struct {
	Cardinality int
	MinAssets   int
	MaxAssets   int
	Penalty     float64
	Solver      string
}

func (e *PenaltyInsufficientError) Error() string {
	return fmt.Sprintf(
		"penalty insufficient: solver %s selected %d assets, bounds [%d, %d] (penalty=%.4f)",
		e.Solver, e.Cardinality, e.MinAssets, e.MaxAssets, e.Penalty)
}

// InfeasibleError indicates that a solution cannot be interpreted into a
// portfolio (e.g. the bitstring selects no assets).
type InfeasibleError struct {
	Reason string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("infeasible solution: %s", e.Reason)
}

// SingularCovarianceError indicates that the covariance submatrix over the
// selected assets is not invertible, so minimum-variance weights do not
// exist for that selection.
type SingularCovarianceError struct {
	Assets    []string
	Condition float64
}

func (e *SingularCovarianceError) Error() string {
	return fmt.Sprintf("singular covariance submatrix for [%s] (condition=%.4g)",
		strings.Join(e.Assets, ", "), e.Condition)
}
