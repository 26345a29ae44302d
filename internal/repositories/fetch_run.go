package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/shared"
)

// DefaultListLimit bounds [FetchRunRepository.List] when no positive limit is given.
const DefaultListLimit = 20

// FetchRunRepository persists [models.FetchRun] summaries and their per-source stats.
type FetchRunRepository struct {
	db *sql.DB
}

// NewFetchRunRepository creates a new FetchRunRepository with the given database connection
func NewFetchRunRepository(db *sql.DB) *FetchRunRepository {
	return &FetchRunRepository{db: db}
}

// Create inserts a run with a generated ID and sequence. The run row and its source rows are
// written in one transaction.
func (r *FetchRunRepository) Create(ctx context.Context, run *models.FetchRun) error {
	sequence, err := NextSequence(ctx, r.db, "fetch_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.Sequence = sequence

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var finishedAt any
	if !run.FinishedAt.IsZero() {
		finishedAt = run.FinishedAt
	}

	query := `
		INSERT INTO fetch_runs (
			id, sequence, started_at, finished_at, merged, duplicates, rejected,
			output, status, error_message, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		id,
		sequence,
		run.StartedAt,
		finishedAt,
		run.Merged,
		run.Duplicates,
		run.Rejected,
		run.Output,
		string(run.Status),
		nullString(run.Error),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fetch run: %w", err)
	}

	for _, stat := range run.Sources {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO fetch_run_sources (run_id, source, count, error_message) VALUES (?, ?, ?, ?)`,
			id, string(stat.Source), stat.Count, nullString(stat.Error),
		)
		if err != nil {
			return fmt.Errorf("failed to insert source stat for %s: %w", stat.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fetch run: %w", err)
	}
	return nil
}

// Record stores a finished run. It lets the repository serve as the aggregator's run recorder.
func (r *FetchRunRepository) Record(ctx context.Context, run *models.FetchRun) error {
	return r.Create(ctx, run)
}

// Get retrieves a run by ID, returning [shared.ErrRunNotFound] when it does not exist.
func (r *FetchRunRepository) Get(ctx context.Context, id string) (*models.FetchRun, error) {
	query := `
		SELECT id, sequence, started_at, finished_at, merged, duplicates, rejected,
		       output, status, error_message, created_at, updated_at
		FROM fetch_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fetch run: %w", err)
	}

	if err := r.loadSources(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs, newest first.
func (r *FetchRunRepository) List(ctx context.Context, limit int) ([]*models.FetchRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, sequence, started_at, finished_at, merged, duplicates, rejected,
		       output, status, error_message, created_at, updated_at
		FROM fetch_runs
		ORDER BY sequence DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fetch runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.FetchRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fetch run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fetch runs: %w", err)
	}
	rows.Close()

	for _, run := range runs {
		if err := r.loadSources(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *FetchRunRepository) loadSources(ctx context.Context, run *models.FetchRun) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, count, error_message FROM fetch_run_sources WHERE run_id = ? ORDER BY source`,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to load source stats: %w", err)
	}
	defer rows.Close()

	run.Sources = nil
	for rows.Next() {
		var (
			stat   models.SourceStat
			source string
			errMsg sql.NullString
		)
		if err := rows.Scan(&source, &stat.Count, &errMsg); err != nil {
			return fmt.Errorf("failed to scan source stat: %w", err)
		}
		stat.Source = models.Source(source)
		stat.Error = errMsg.String
		run.Sources = append(run.Sources, stat)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.FetchRun, error) {
	var (
		id         string
		sequence   int
		startedAt  time.Time
		finishedAt sql.NullTime
		status     string
		errMsg     sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
	)

	run := &models.FetchRun{}
	err := s.Scan(
		&id,
		&sequence,
		&startedAt,
		&finishedAt,
		&run.Merged,
		&run.Duplicates,
		&run.Rejected,
		&run.Output,
		&status,
		&errMsg,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.SetID(id)
	run.SetTimestamps(createdAt, updatedAt)
	run.Sequence = sequence
	run.StartedAt = startedAt
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	run.Status = models.RunStatus(status)
	run.Error = errMsg.String
	return run, nil
}
