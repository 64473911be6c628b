// Package optimization runs the full selection pipeline: market statistics,
// QUBO formulation, binary solving, and interpretation into a portfolio.
package optimization

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/quantfolio/internal/domain"
	"github.com/aristath/quantfolio/internal/modules/analysis"
	"github.com/aristath/quantfolio/internal/modules/interpreter"
	"github.com/aristath/quantfolio/internal/modules/marketdata"
	"github.com/aristath/quantfolio/internal/modules/qubo"
	"github.com/aristath/quantfolio/internal/modules/solver"
	"github.com/aristath/quantfolio/internal/modules/statistics"
)

// DataSourceSimulated marks runs that used the built-in dataset instead of
// live market data.
const DataSourceSimulated = "simulated"

// MarketData provides close-price history for a set of tickers.
type MarketData interface {
	GetMarketData(tickers []string, source, period string) (map[string][]domain.PricePoint, error)
}

// Service orchestrates optimization runs.
type Service struct {
	marketData MarketData
	repo       *RunRepository
	tickers    []string
	source     string
	period     string
	log        zerolog.Logger
}

// NewService creates an optimization service. The market data service may be
// nil, in which case every run uses the simulated dataset. The repository
// may be nil to skip persistence.
func NewService(
	marketData MarketData,
	repo *RunRepository,
	tickers []string,
	source string,
	period string,
	log zerolog.Logger,
) *Service {
	return &Service{
		marketData: marketData,
		repo:       repo,
		tickers:    tickers,
		source:     source,
		period:     period,
		log:        log.With().Str("module", "optimization").Logger(),
	}
}

// Runs exposes the persistence layer for run retrieval endpoints. Nil when
// the service was built without a repository.
func (s *Service) Runs() *RunRepository {
	return s.repo
}

// Run executes one full optimization and persists the result.
func (s *Service) Run(params domain.RunParams) (*domain.Solution, error) {
	if params.Budget <= 0 {
		return nil, &domain.ConfigurationError{Field: "budget", Reason: "must be positive"}
	}
	if params.RiskAversion < 0 || params.RiskAversion > 1 {
		return nil, &domain.ConfigurationError{Field: "risk_aversion", Reason: "must be between 0 and 1"}
	}

	stats, dataSource, err := s.loadStatistics()
	if err != nil {
		return nil, err
	}

	problem, err := qubo.NewFormulator(qubo.Config{
		RiskAversion: params.RiskAversion,
		MinAssets:    params.MinAssets,
		MaxAssets:    params.MaxAssets,
	}).Build(stats)
	if err != nil {
		return nil, err
	}

	slv, err := solver.New(params.Strategy, params.Layers, params.Iterations, params.Seed)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := slv.Solve(problem)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("solver", slv.Name()).
		Int("bits", problem.TotalBits()).
		Dur("elapsed", time.Since(start)).
		Float64("objective", result.Objective).
		Msg("Solver finished")

	if !problem.Feasible(result.Bits) {
		return nil, &domain.PenaltyInsufficientError{
			Cardinality: problem.Cardinality(result.Bits),
			MinAssets:   problem.MinAssets,
			MaxAssets:   problem.MaxAssets,
			Penalty:     problem.Penalty,
			Solver:      slv.Name(),
		}
	}

	portfolio, err := interpreter.Interpret(result.Bits, stats, params.Budget)
	if err != nil {
		return nil, err
	}

	expectedReturn := analysis.ExpectedReturn(stats, portfolio.SelectedIndices, portfolio.Weights)
	risk := analysis.Risk(stats, portfolio.SelectedIndices, portfolio.Weights)
	sharpe, sharpeOK := analysis.SharpeLike(expectedReturn, risk)

	solution := &domain.Solution{
		RunID:           uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		DataSource:      dataSource,
		Solver:          slv.Name(),
		SelectedIndices: portfolio.SelectedIndices,
		SelectedAssets:  portfolio.SelectedAssets,
		Weights:         portfolio.Weights,
		Allocations:     portfolio.Allocations,
		ObjectiveValue:  result.Objective,
		ExpectedReturn:  expectedReturn,
		Risk:            risk,
		SharpeLike:      sharpe,
		SharpeValid:     sharpeOK,
		Params:          params,
	}

	if s.repo != nil {
		if err := s.repo.Save(solution); err != nil {
			// A failed write should not discard a finished run
			s.log.Error().Err(err).Str("run_id", solution.RunID).Msg("Failed to persist run")
		}
	}

	s.log.Info().
		Str("run_id", solution.RunID).
		Str("data_source", dataSource).
		Strs("selected", solution.SelectedAssets).
		Float64("expected_return_pct", expectedReturn).
		Float64("risk", risk).
		Msg("Optimization run complete")

	return solution, nil
}

// Frontier samples random portfolios over the current universe for
// return/risk visualization.
func (s *Service) Frontier(samples int, seed int64) ([]analysis.Point, error) {
	if samples <= 0 {
		return nil, &domain.ConfigurationError{Field: "samples", Reason: "must be positive"}
	}

	stats, _, err := s.loadStatistics()
	if err != nil {
		return nil, err
	}
	return analysis.RandomPortfolios(stats, samples, seed), nil
}

// loadStatistics builds asset statistics from live market data, falling back
// to the simulated dataset when no provider can serve the universe.
func (s *Service) loadStatistics() (*statistics.Statistics, string, error) {
	if s.marketData != nil {
		history, err := s.marketData.GetMarketData(s.tickers, s.source, s.period)
		if err == nil {
			stats, statsErr := statistics.NewFromHistory(history)
			if statsErr == nil {
				return stats, s.source, nil
			}
			s.log.Warn().Err(statsErr).Msg("Fetched history unusable, falling back to simulated data")
		} else {
			s.log.Warn().Err(err).Msg("Market data unavailable, falling back to simulated data")
		}
	}

	sim := marketdata.Simulated()
	stats, err := statistics.NewFromMoments(sim.Assets, sim.ExpectedReturns, sim.Covariance, sim.Prices)
	if err != nil {
		return nil, "", err
	}
	return stats, DataSourceSimulated, nil
}
