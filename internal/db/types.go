package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// Job status values
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// DefaultListLimit bounds ListJobs when no limit is given
const DefaultListLimit = 50

// ErrJobNotFound is returned when updating a job that does not exist
var ErrJobNotFound = errors.New("job not found")

// Job is one asynchronous generation request
type Job struct {
	ID          uuid.UUID        `json:"job_id"`
	Status      string           `json:"status"`
	JobSpec     types.JobSpec    `json:"job_spec"`
	OutputDir   string           `json:"output_dir"`
	Subject     string           `json:"subject,omitempty"`
	Progress    string           `json:"progress,omitempty"`
	Error       string           `json:"error,omitempty"`
	Result      *types.RunResult `json:"result,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Done reports whether the job reached a final status
func (j *Job) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobStore persists generation jobs. GetJob returns nil, nil for unknown IDs;
// the update methods return ErrJobNotFound.
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]Job, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	UpdateProgress(ctx context.Context, id uuid.UUID, message string) error
	// FinishJob stores the run result. A non-empty runErr marks the job failed.
	FinishJob(ctx context.Context, id uuid.UUID, result *types.RunResult, runErr string) error
}

func finalStatus(runErr string) string {
	if runErr != "" {
		return JobStatusFailed
	}
	return JobStatusCompleted
}
