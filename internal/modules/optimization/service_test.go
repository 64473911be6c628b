package optimization

import (
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantfolio/internal/domain"
)

// failingMarketData always errors, forcing the simulated fallback.
type failingMarketData struct{}

func (f *failingMarketData) GetMarketData(tickers []string, source, period string) (map[string][]domain.PricePoint, error) {
	return nil, errors.New("all providers down")
}

// historyMarketData serves a canned history map.
type historyMarketData struct {
	history map[string][]domain.PricePoint
}

func (h *historyMarketData) GetMarketData(tickers []string, source, period string) (map[string][]domain.PricePoint, error) {
	return h.history, nil
}

func defaultParams() domain.RunParams {
	return domain.RunParams{
		Budget:       10000,
		RiskAversion: 0.5,
		MinAssets:    2,
		MaxAssets:    4,
		Strategy:     domain.StrategyExhaustive,
	}
}

func newTestService(t *testing.T, md MarketData) *Service {
	t.Helper()
	return NewService(md, nil, []string{"PETR4", "VALE3"}, "auto", "1y", zerolog.Nop())
}

func TestRunOnSimulatedData(t *testing.T) {
	service := newTestService(t, nil)

	solution, err := service.Run(defaultParams())
	require.NoError(t, err)

	assert.NotEmpty(t, solution.RunID)
	assert.Equal(t, DataSourceSimulated, solution.DataSource)
	assert.Equal(t, "exhaustive", solution.Solver)

	card := len(solution.SelectedAssets)
	assert.GreaterOrEqual(t, card, 2)
	assert.LessOrEqual(t, card, 4)
	require.Len(t, solution.Weights, card)
	require.Len(t, solution.Allocations, card)

	sum := 0.0
	for _, w := range solution.Weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	total := decimal.Zero
	for _, a := range solution.Allocations {
		total = total.Add(a)
	}
	// Cent rounding keeps the total within a cent per asset
	diff := total.Sub(decimal.NewFromInt(10000)).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.NewFromFloat(0.04)), "allocation total off by %s", diff)

	assert.True(t, solution.SharpeValid)
	assert.Greater(t, solution.Risk, 0.0)
}

func TestRunFallsBackWhenProvidersFail(t *testing.T) {
	service := newTestService(t, &failingMarketData{})

	solution, err := service.Run(defaultParams())
	require.NoError(t, err)
	assert.Equal(t, DataSourceSimulated, solution.DataSource)
}

func TestRunUsesFetchedHistory(t *testing.T) {
	// Two assets with 30 days of drifting, imperfectly correlated returns
	day := func(n int) time.Time {
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	}
	series := func(start, drift, wobble, phase float64) []domain.PricePoint {
		points := []domain.PricePoint{{Date: day(0), Close: start}}
		price := start
		for i := 0; i < 30; i++ {
			r := drift + wobble*math.Sin(float64(i)*phase)
			price *= 1 + r
			points = append(points, domain.PricePoint{Date: day(i + 1), Close: price})
		}
		return points
	}

	service := newTestService(t, &historyMarketData{history: map[string][]domain.PricePoint{
		"PETR4": series(28, 0.002, 0.01, 0.7),
		"VALE3": series(65, 0.001, 0.008, 1.3),
	}})

	params := defaultParams()
	params.MaxAssets = 2

	solution, err := service.Run(params)
	require.NoError(t, err)
	assert.Equal(t, "auto", solution.DataSource)
	assert.ElementsMatch(t, []string{"PETR4", "VALE3"}, solution.SelectedAssets)
}

func TestRunRejectsBadParams(t *testing.T) {
	service := newTestService(t, nil)

	tests := []struct {
		name   string
		mutate func(*domain.RunParams)
		field  string
	}{
		{"zero budget", func(p *domain.RunParams) { p.Budget = 0 }, "budget"},
		{"negative risk aversion", func(p *domain.RunParams) { p.RiskAversion = -1 }, "risk_aversion"},
		{"risk aversion above 1", func(p *domain.RunParams) { p.RiskAversion = 5 }, "risk_aversion"},
		{"min assets zero", func(p *domain.RunParams) { p.MinAssets = 0 }, "min_assets"},
		{"max above universe", func(p *domain.RunParams) { p.MaxAssets = 99 }, "max_assets"},
		{"unknown strategy", func(p *domain.RunParams) { p.Strategy = "quantum" }, "solver_strategy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := defaultParams()
			tt.mutate(&params)

			_, err := service.Run(params)
			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestRunHeuristicMatchesExhaustive(t *testing.T) {
	service := newTestService(t, nil)

	exact, err := service.Run(defaultParams())
	require.NoError(t, err)

	params := defaultParams()
	params.Strategy = domain.StrategyHeuristic
	params.Layers = 3
	params.Iterations = 100
	params.Seed = 42

	approx, err := service.Run(params)
	require.NoError(t, err)

	assert.Equal(t, exact.SelectedAssets, approx.SelectedAssets)
	assert.InDelta(t, exact.ObjectiveValue, approx.ObjectiveValue, 1e-9)
}

func TestRunPersists(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			solver TEXT NOT NULL,
			data BLOB NOT NULL
		)
	`)
	require.NoError(t, err)

	repo := NewRunRepository(db, zerolog.Nop())
	service := NewService(nil, repo, nil, "auto", "1y", zerolog.Nop())

	solution, err := service.Run(defaultParams())
	require.NoError(t, err)

	stored, err := repo.Get(solution.RunID)
	require.NoError(t, err)
	assert.Equal(t, solution.SelectedAssets, stored.SelectedAssets)
}

func TestFrontier(t *testing.T) {
	service := newTestService(t, nil)

	points, err := service.Frontier(100, 42)
	require.NoError(t, err)
	require.Len(t, points, 100)

	again, err := service.Frontier(100, 42)
	require.NoError(t, err)
	assert.Equal(t, points, again)

	_, err = service.Frontier(0, 1)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
