package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// MemoryStore keeps jobs in process memory. It is safe for concurrent use and
// hands out copies, so callers never share a Job with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	now  func() time.Time
}

var _ JobStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[uuid.UUID]*Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob stores a new job. Zero ID, status and timestamps are filled in.
func (s *MemoryStore) CreateJob(_ context.Context, job *Job) error {
	prepareJob(job)

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *job
	s.jobs[job.ID] = &stored
	return nil
}

// GetJob returns a copy of a job, or nil when unknown
func (s *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	out := *job
	return &out, nil
}

// ListJobs returns the most recent jobs first
func (s *MemoryStore) ListJobs(_ context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID.String() < jobs[j].ID.String()
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// MarkRunning moves a job to the running status
func (s *MemoryStore) MarkRunning(_ context.Context, id uuid.UUID) error {
	return s.update(id, func(job *Job) {
		job.Status = JobStatusRunning
	})
}

// UpdateProgress stores the latest progress message of a job
func (s *MemoryStore) UpdateProgress(_ context.Context, id uuid.UUID, message string) error {
	return s.update(id, func(job *Job) {
		job.Progress = message
	})
}

// FinishJob stores the final status and run result of a job
func (s *MemoryStore) FinishJob(_ context.Context, id uuid.UUID, result *types.RunResult, runErr string) error {
	return s.update(id, func(job *Job) {
		now := s.now()
		job.Status = finalStatus(runErr)
		job.Error = runErr
		job.Result = result
		job.CompletedAt = &now
	})
}

func (s *MemoryStore) update(id uuid.UUID, fn func(job *Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	fn(job)
	job.UpdatedAt = s.now()
	return nil
}
