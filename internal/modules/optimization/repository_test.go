package optimization

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantfolio/internal/domain"
)

func setupRunRepo(t *testing.T) *RunRepository {
	t.Helper()

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

	return NewRunRepository(db, zerolog.Nop())
}

func sampleSolution(runID string, createdAt time.Time) *domain.Solution {
	return &domain.Solution{
		RunID:           runID,
		CreatedAt:       createdAt,
		DataSource:      "simulated",
		Solver:          "exhaustive",
		SelectedIndices: []int{0, 2},
		SelectedAssets:  []string{"PETR4", "ITUB4"},
		Weights:         []float64{0.4, 0.6},
		Allocations: []decimal.Decimal{
			decimal.NewFromFloat(4000),
			decimal.NewFromFloat(6000),
		},
		ObjectiveValue: -12.5,
		ExpectedReturn: 13.4,
		Risk:           0.17,
		SharpeLike:     0.788,
		SharpeValid:    true,
		Params: domain.RunParams{
			Budget:    10000,
			MinAssets: 2,
			MaxAssets: 2,
			Strategy:  domain.StrategyExhaustive,
		},
	}
}

func TestRunRepositorySaveAndGet(t *testing.T) {
	repo := setupRunRepo(t)

	now := time.Now().UTC().Truncate(time.Second)
	original := sampleSolution("run-1", now)
	require.NoError(t, repo.Save(original))

	loaded, err := repo.Get("run-1")
	require.NoError(t, err)

	assert.Equal(t, original.RunID, loaded.RunID)
	assert.Equal(t, original.SelectedAssets, loaded.SelectedAssets)
	assert.Equal(t, original.Weights, loaded.Weights)
	assert.Equal(t, original.Params, loaded.Params)
	assert.True(t, original.Allocations[0].Equal(loaded.Allocations[0]))
	assert.True(t, loaded.SharpeValid)
}

func TestRunRepositoryGetMissing(t *testing.T) {
	repo := setupRunRepo(t)

	_, err := repo.Get("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRepositoryList(t *testing.T) {
	repo := setupRunRepo(t)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Save(sampleSolution("run-old", base.Add(-2*time.Hour))))
	require.NoError(t, repo.Save(sampleSolution("run-new", base)))
	require.NoError(t, repo.Save(sampleSolution("run-mid", base.Add(-time.Hour))))

	summaries, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "run-new", summaries[0].RunID)
	assert.Equal(t, "run-mid", summaries[1].RunID)
	assert.Equal(t, "run-old", summaries[2].RunID)

	limited, err := repo.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunRepositoryDelete(t *testing.T) {
	repo := setupRunRepo(t)

	require.NoError(t, repo.Save(sampleSolution("run-1", time.Now().UTC())))
	require.NoError(t, repo.Delete("run-1"))

	_, err := repo.Get("run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.ErrorIs(t, repo.Delete("run-1"), ErrRunNotFound)
}

func TestRunRepositoryDeleteOlderThan(t *testing.T) {
	repo := setupRunRepo(t)

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Save(sampleSolution("run-old", base.Add(-48*time.Hour))))
	require.NoError(t, repo.Save(sampleSolution("run-new", base)))

	deleted, err := repo.DeleteOlderThan(base.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	summaries, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "run-new", summaries[0].RunID)
}
