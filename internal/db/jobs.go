package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

const jobColumns = `id, status, job_spec, output_dir, subject, progress, error_message,
	result, created_at, updated_at, completed_at`

var _ JobStore = (*DB)(nil)

// CreateJob inserts a new job. Zero ID, status and timestamps are filled in.
func (db *DB) CreateJob(ctx context.Context, job *Job) error {
	prepareJob(job)

	specJSON, err := json.Marshal(job.JobSpec)
	if err != nil {
		return fmt.Errorf("failed to marshal job spec: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO generation_jobs (id, status, job_spec, output_dir, subject, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.Status, specJSON, job.OutputDir, job.Subject, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the most recent jobs first
func (db *DB) ListJobs(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// MarkRunning moves a job to the running status
func (db *DB) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return db.exec(ctx, "mark job running",
		`UPDATE generation_jobs SET status = $1, updated_at = NOW() WHERE id = $2`,
		JobStatusRunning, id)
}

// UpdateProgress stores the latest progress message of a job
func (db *DB) UpdateProgress(ctx context.Context, id uuid.UUID, message string) error {
	return db.exec(ctx, "update job progress",
		`UPDATE generation_jobs SET progress = $1, updated_at = NOW() WHERE id = $2`,
		message, id)
}

// FinishJob stores the final status and run result of a job
func (db *DB) FinishJob(ctx context.Context, id uuid.UUID, result *types.RunResult, runErr string) error {
	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal run result: %w", err)
		}
	}

	return db.exec(ctx, "finish job",
		`UPDATE generation_jobs
		 SET status = $1, error_message = $2, result = $3, updated_at = NOW(), completed_at = NOW()
		 WHERE id = $4`,
		finalStatus(runErr), runErr, resultJSON, id)
}

func (db *DB) exec(ctx context.Context, action, sql string, args ...any) error {
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var (
		job        Job
		specJSON   []byte
		resultJSON []byte
	)
	err := row.Scan(&job.ID, &job.Status, &specJSON, &job.OutputDir, &job.Subject, &job.Progress,
		&job.Error, &resultJSON, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(specJSON, &job.JobSpec); err != nil {
		return nil, fmt.Errorf("failed to decode job spec: %w", err)
	}
	if resultJSON != nil {
		var result types.RunResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to decode run result: %w", err)
		}
		job.Result = &result
	}
	return &job, nil
}

func prepareJob(job *Job) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobStatusQueued
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
}
