package clientdata

import (
	"fmt"

	"github.com/rs/zerolog"
)

// CleanupJob prunes expired rows from the provider cache tables. Scheduled
// nightly so stale market data never outlives its TTL by more than a day.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates the nightly cache cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run deletes every expired row across all provider tables.
func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteAllExpired()
	if err != nil {
		return fmt.Errorf("cache cleanup: %w", err)
	}

	var total int64
	for table, count := range deleted {
		if count > 0 {
			j.log.Debug().
				Str("table", table).
				Int64("deleted", count).
				Msg("Pruned expired cache rows")
		}
		total += count
	}
	if total > 0 {
		j.log.Info().Int64("deleted", total).Msg("Cache cleanup finished")
	}

	return nil
}

// Name identifies the job in scheduler logs.
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
