package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chulminlee01/mrt-tech-test/internal/assignments"
	"github.com/chulminlee01/mrt-tech-test/internal/db"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
	"github.com/chulminlee01/mrt-tech-test/internal/server/middleware"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// maxRequestBytes bounds generate request bodies
const maxRequestBytes = 64 << 10

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	JobRole         string `json:"job_role"`
	JobLevel        string `json:"job_level"`
	Language        string `json:"language"`
	CompanyName     string `json:"company_name,omitempty"`
	Topic           string `json:"topic,omitempty"`
	AssignmentCount int    `json:"assignment_count,omitempty"`
	WithDesigner    bool   `json:"with_designer,omitempty"`
}

// GenerateResponse acknowledges an accepted job
type GenerateResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
	StreamURL string `json:"stream_url"`
}

// StatusResponse is a job plus the URL of its portal once published
type StatusResponse struct {
	db.Job
	PortalURL string `json:"portal_url,omitempty"`
}

// toJobSpec validates the request and builds the job it describes
func (req GenerateRequest) toJobSpec() (types.JobSpec, error) {
	if strings.TrimSpace(req.JobRole) == "" {
		return types.JobSpec{}, &ErrValidation{Field: "job_role", Message: "is required"}
	}
	if strings.TrimSpace(req.JobLevel) == "" {
		return types.JobSpec{}, &ErrValidation{Field: "job_level", Message: "is required"}
	}
	level, err := types.ParseLevel(req.JobLevel)
	if err != nil {
		return types.JobSpec{}, &ErrValidation{Field: "job_level", Message: err.Error()}
	}
	if req.AssignmentCount != 0 {
		if err := assignments.ValidateCount(req.AssignmentCount); err != nil {
			return types.JobSpec{}, &ErrValidation{Field: "assignment_count", Message: err.Error()}
		}
	}

	spec := types.JobSpec{
		Role:        req.JobRole,
		Level:       level,
		Language:    req.Language,
		CompanyName: req.CompanyName,
		Topic:       req.Topic,
	}.WithDefaults()
	if err := spec.Validate(); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return types.JobSpec{}, &ErrValidation{Field: fieldErrs[0].Field(), Message: fieldErrs[0].Tag()}
		}
		return types.JobSpec{}, &ErrValidation{Field: "job", Message: err.Error()}
	}
	return spec, nil
}

// handleGenerate accepts a generation job and runs it in the background
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	spec, err := req.toJobSpec()
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	job := &db.Job{ID: uuid.New(), JobSpec: spec}
	job.OutputDir = s.jobOutputDir(job.ID)
	if subject, err := middleware.GetSubject(r); err == nil {
		job.Subject = subject
	}
	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.errorFrom(w, err)
		return
	}

	count := req.AssignmentCount
	if count == 0 {
		count = s.cfg.AssignmentCount
	}
	opts := pipeline.RunOptions{
		Job:             spec,
		OutputDir:       job.OutputDir,
		WithDesigner:    req.WithDesigner,
		AssignmentCount: count,
		Models:          s.cfg.Models,
	}

	s.progress.open(job.ID)
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		s.runJob(s.jobCtx, job.ID, opts)
	}()

	s.logger.Info("job accepted",
		slog.String("job_id", job.ID.String()),
		slog.String("role", spec.Role),
		slog.String("level", string(spec.Level)),
		slog.String("language", spec.Language),
		slog.Int("assignments", count))

	id := job.ID.String()
	s.jsonResponse(w, http.StatusAccepted, GenerateResponse{
		JobID:     id,
		Status:    job.Status,
		StatusURL: "/api/status/" + id,
		StreamURL: "/api/status/" + id + "/stream",
	})
}

// runJob executes the pipeline for a job and records its outcome
func (s *Server) runJob(ctx context.Context, id uuid.UUID, opts pipeline.RunOptions) {
	logger := s.logger.With(slog.String("job_id", id.String()))
	defer s.progress.finish(id)

	if err := s.store.MarkRunning(ctx, id); err != nil {
		logger.Error("failed to mark job running", slog.Any("error", err))
	}

	opts.OnProgress = func(event pipeline.ProgressEvent) {
		s.progress.publish(id, event)
		if event.Message == "" {
			return
		}
		if err := s.store.UpdateProgress(ctx, id, event.Message); err != nil {
			logger.Warn("failed to store job progress", slog.Any("error", err))
		}
	}

	result, err := s.runner.Run(ctx, opts)

	runErr := ""
	switch {
	case err != nil:
		runErr = err.Error()
	case result != nil && result.Status == types.RunStatusFailed:
		runErr = "run failed"
		if terminal := result.TerminalError(); terminal != nil {
			runErr = terminal.Message
		}
	}

	// the job outcome is recorded even when ctx was cancelled
	if err := s.store.FinishJob(context.WithoutCancel(ctx), id, result, runErr); err != nil {
		logger.Error("failed to store job result", slog.Any("error", err))
	}
	if runErr != "" {
		logger.Warn("job failed", slog.String("error", runErr))
		return
	}
	logger.Info("job completed", slog.String("output_dir", opts.OutputDir))
}

// handleStatus returns a job and, when done, its run result
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupJob(r)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, StatusResponse{Job: *job, PortalURL: portalURL(job)})
}

// handleStream streams a job's progress events via SSE
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	job, err := s.lookupJob(r)
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	wake, cancel, live := s.progress.subscribe(job.ID)
	if !live && !job.Done() {
		s.errorResponse(w, http.StatusConflict, "progress stream unavailable for this job")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	if live {
		defer cancel()
		sent := 0
		for done := false; !done; {
			select {
			case <-r.Context().Done():
				return
			case <-wake:
			}

			var events []pipeline.ProgressEvent
			events, done = s.progress.since(job.ID, sent)
			for _, event := range events {
				if err := sse.WriteEvent(eventProgress, event); err != nil {
					s.logger.Debug("progress stream closed", slog.Any("error", err))
					return
				}
			}
			sent += len(events)
		}
	}

	final, err := s.store.GetJob(r.Context(), job.ID)
	if err != nil || final == nil {
		sse.WriteError("failed to load job result")
		return
	}
	sse.WriteComplete(final.ID.String(), final.Status, final.Error)
}

// handleListJobs returns the most recent jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := db.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.errorFrom(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = min(n, 200)
	}

	jobs, err := s.store.ListJobs(r.Context(), limit)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// lookupJob resolves the {id} path value to a stored job
func (s *Server) lookupJob(r *http.Request) (*db.Job, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &ErrJobNotFound{JobID: id}
	}
	return job, nil
}

// portalURL is the /output URL of a finished job's portal page
func portalURL(job *db.Job) string {
	if job.Result == nil || len(job.Result.ArtifactsOfKind(types.ArtifactPortalHTML)) == 0 {
		return ""
	}
	return path.Join("/output", WebOutputDir, job.ID.String(), job.Result.ArtifactsOfKind(types.ArtifactPortalHTML)[0].Path)
}
