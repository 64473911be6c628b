package optimization

import (
	"time"

	"github.com/rs/zerolog"
)

// RetentionJob prunes optimization runs older than the retention window.
// It should be scheduled to run daily.
type RetentionJob struct {
	repo      *RunRepository
	retention time.Duration
	log       zerolog.Logger
}

// NewRetentionJob creates a run retention job.
func NewRetentionJob(repo *RunRepository, retention time.Duration, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		repo:      repo,
		retention: retention,
		log:       log.With().Str("job", "run_retention").Logger(),
	}
}

// Run deletes runs created before the retention cutoff.
func (j *RetentionJob) Run() error {
	cutoff := time.Now().UTC().Add(-j.retention)

	deleted, err := j.repo.DeleteOlderThan(cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to prune old runs")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Pruned old optimization runs")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RetentionJob) Name() string {
	return "run_retention"
}
