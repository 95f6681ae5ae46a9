package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/themizzi/uiverify/internal/database"
	"github.com/themizzi/uiverify/internal/models"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

// RunRepository handles database operations for verification runs
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository() *RunRepository {
	return &RunRepository{
		db: database.DB,
	}
}

// NewRunRepositoryWithDB creates a new run repository with a specific database connection
func NewRunRepositoryWithDB(db *sql.DB) *RunRepository {
	return &RunRepository{
		db: db,
	}
}

// CreateRun inserts a run as it starts
func (r *RunRepository) CreateRun(run *models.Run) error {
	query := `
		INSERT INTO runs (id, scenario_name, target, engine, status, failed_step, artifacts, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.ScenarioName,
		run.Target,
		run.Engine,
		run.Status,
		run.FailedStep,
		pq.Array(nonNil(run.Artifacts)),
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// FinishRun stores the final status, failure and artifacts of a run
func (r *RunRepository) FinishRun(run *models.Run) error {
	query := `
		UPDATE runs
		SET status = $1, failed_step = $2, error = NULLIF($3, ''), artifacts = $4, finished_at = $5
		WHERE id = $6
	`

	var finishedAt interface{}
	if !run.FinishedAt.IsZero() {
		finishedAt = run.FinishedAt
	}

	result, err := r.db.Exec(query,
		run.Status,
		run.FailedStep,
		run.Error,
		pq.Array(nonNil(run.Artifacts)),
		finishedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrRunNotFound
	}

	return nil
}

// GetRunByID retrieves a run by its id
func (r *RunRepository) GetRunByID(id string) (*models.Run, error) {
	query := `
		SELECT id, scenario_name, target, engine, status, failed_step,
		       COALESCE(error, ''), artifacts, started_at, finished_at
		FROM runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRecentRuns returns up to limit runs, newest first
func (r *RunRepository) ListRecentRuns(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, scenario_name, target, engine, status, failed_step,
		       COALESCE(error, ''), artifacts, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	run := &models.Run{}
	var artifacts pq.StringArray
	var finishedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.ScenarioName,
		&run.Target,
		&run.Engine,
		&run.Status,
		&run.FailedStep,
		&run.Error,
		&artifacts,
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Artifacts = []string(artifacts)
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return run, nil
}

// nonNil keeps the NOT NULL artifacts column satisfied for runs without screenshots
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
