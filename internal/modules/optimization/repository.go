package optimization

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/quantfolio/internal/domain"
)

// ErrRunNotFound is returned when a run id does not exist in the store.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is the listing view of a stored run, without the full solution
// payload.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Solver    string    `json:"solver"`
}

// RunRepository persists optimization runs in the results database. The full
// solution is stored as a msgpack blob; id, timestamp and solver are
// broken out into columns for listing and retention queries.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a run repository.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repository", "runs").Logger(),
	}
}

// Save stores a solution, replacing any previous run with the same id.
func (r *RunRepository) Save(solution *domain.Solution) error {
	blob, err := msgpack.Marshal(solution)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", solution.RunID, err)
	}

	_, err = r.db.Exec(
		`INSERT OR REPLACE INTO runs (id, created_at, solver, data) VALUES (?, ?, ?, ?)`,
		solution.RunID, solution.CreatedAt.Unix(), solution.Solver, blob,
	)
	if err != nil {
		return fmt.Errorf("failed to store run %s: %w", solution.RunID, err)
	}
	return nil
}

// Get retrieves a stored solution by run id.
func (r *RunRepository) Get(runID string) (*domain.Solution, error) {
	var blob []byte
	err := r.db.QueryRow(`SELECT data FROM runs WHERE id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	var solution domain.Solution
	if err := msgpack.Unmarshal(blob, &solution); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}
	return &solution, nil
}

// List returns run summaries, newest first, up to limit (0 means no limit).
func (r *RunRepository) List(limit int) ([]RunSummary, error) {
	query := `SELECT id, created_at, solver FROM runs ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	summaries := []RunSummary{}
	for rows.Next() {
		var s RunSummary
		var createdAt int64
		if err := rows.Scan(&s.RunID, &createdAt, &s.Solver); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		s.CreatedAt = time.Unix(createdAt, 0).UTC()
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a run. Returns ErrRunNotFound if the id does not exist.
func (r *RunRepository) Delete(runID string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", runID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// DeleteOlderThan removes runs created before the cutoff and returns how
// many were deleted.
func (r *RunRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}
	return result.RowsAffected()
}
