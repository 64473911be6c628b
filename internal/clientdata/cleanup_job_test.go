package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJob_Name(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	job := NewCleanupJob(NewRepository(db), zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
}

func TestCleanupJob_RemovesExpiredEntries(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store("yahoo_history", "PETR4", cachedSeries{}, -time.Minute))
	require.NoError(t, repo.Store("yahoo_history", "VALE3", cachedSeries{}, time.Hour))

	job := NewCleanupJob(repo, zerolog.Nop())
	require.NoError(t, job.Run())

	expired, err := repo.Get("yahoo_history", "PETR4")
	require.NoError(t, err)
	assert.Nil(t, expired)

	fresh, err := repo.Get("yahoo_history", "VALE3")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}
