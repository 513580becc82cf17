// Package jobstore provides the durable SQLite-backed record of every
// narration job.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/narration-service/internal/core"

	// Registers the cgo-free "sqlite" driver.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	original_name TEXT NOT NULL,
	source_ref    TEXT NOT NULL,
	status        TEXT NOT NULL,
	output_ref    TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
`

// Store persists job records in a local SQLite database. Single-row
// writes are atomic, which is the only locking the pipeline relies on:
// the submission path and the worker never mutate the same row at the
// same instant.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures the
// jobs table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	// The driver serializes access through a single connection; SQLite
	// only supports one writer at a time anyway.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	if err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("failed to create jobs table: %w (close: %w)", err, closeErr)
		}

		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Create persists a new job record. It fails with core.ErrDuplicateJobID
// if a record with the same id already exists.
func (s *Store) Create(ctx context.Context, job *core.Job) error {
	const insert = `INSERT INTO jobs
		(id, original_name, source_ref, status, output_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, insert,
		job.ID,
		job.OriginalName,
		job.SourceRef,
		string(job.Status),
		job.OutputRef,
		job.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if s.exists(ctx, job.ID) {
			return fmt.Errorf("%w: %s", core.ErrDuplicateJobID, job.ID)
		}

		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}

	return nil
}

// UpdateStatus atomically overwrites the status and output reference of a
// job. It fails with core.ErrJobNotFound if the id is unknown.
func (s *Store) UpdateStatus(
	ctx context.Context,
	id string,
	status core.JobStatus,
	outputRef string,
) error {
	const update = `UPDATE jobs SET status = ?, output_ref = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, update, string(status), outputRef, id)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for job %s: %w", id, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}

	return nil
}

// Get returns the current record or core.ErrJobNotFound.
func (s *Store) Get(ctx context.Context, id string) (*core.Job, error) {
	const query = `SELECT id, original_name, source_ref, status, output_ref, created_at
		FROM jobs WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
		}

		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	return job, nil
}

// List returns every job ordered by creation time ascending, the order
// used for display.
func (s *Store) List(ctx context.Context) ([]core.Job, error) {
	const query = `SELECT id, original_name, source_ref, status, output_ref, created_at
		FROM jobs ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var jobs []core.Job

	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", scanErr)
		}

		jobs = append(jobs, *job)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed while iterating jobs: %w", err)
	}

	return jobs, nil
}

// DeleteAll removes every record and returns the source and output
// artifact keys, each under its owning store, that the caller must
// release.
func (s *Store) DeleteAll(ctx context.Context) (core.ArtifactRefs, error) {
	const query = `SELECT source_ref, output_ref FROM jobs`

	var refs core.ArtifactRefs

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return refs, fmt.Errorf("failed to collect artifact refs: %w", err)
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var sourceRef, outputRef string

		scanErr := rows.Scan(&sourceRef, &outputRef)
		if scanErr != nil {
			return core.ArtifactRefs{Sources: nil, Outputs: nil},
				fmt.Errorf("failed to scan artifact refs: %w", scanErr)
		}

		if sourceRef != "" {
			refs.Sources = append(refs.Sources, sourceRef)
		}

		if outputRef != "" {
			refs.Outputs = append(refs.Outputs, outputRef)
		}
	}

	err = rows.Err()
	if err != nil {
		return core.ArtifactRefs{Sources: nil, Outputs: nil},
			fmt.Errorf("failed while collecting artifact refs: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return core.ArtifactRefs{Sources: nil, Outputs: nil},
			fmt.Errorf("failed to delete job records: %w", err)
	}

	return refs, nil
}

// Pending returns, in submission order, the ids of jobs still in queued
// or processing status. Jobs stuck in processing after a crash are
// conservatively included so a restart re-runs them.
func (s *Store) Pending(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM jobs WHERE status IN (?, ?)
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query,
		string(core.StatusQueued), string(core.StatusProcessing))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var ids []string

	for rows.Next() {
		var id string

		scanErr := rows.Scan(&id)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan pending job id: %w", scanErr)
		}

		ids = append(ids, id)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed while listing pending jobs: %w", err)
	}

	return ids, nil
}

func (s *Store) exists(ctx context.Context, id string) bool {
	var one int

	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, id).Scan(&one)

	return err == nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*core.Job, error) {
	var (
		job       core.Job
		status    string
		createdAt int64
	)

	err := row.Scan(
		&job.ID,
		&job.OriginalName,
		&job.SourceRef,
		&status,
		&job.OutputRef,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = core.JobStatus(status)
	job.CreatedAt = time.UnixMilli(createdAt)

	return &job, nil
}
