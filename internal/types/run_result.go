package types

import (
	"time"

	"github.com/google/uuid"
)

// ArtifactKind identifies what a generated file is
type ArtifactKind string

// ArtifactKind constants
const (
	ArtifactResearch    ArtifactKind = "research"
	ArtifactAssignments ArtifactKind = "assignments"
	ArtifactDataset     ArtifactKind = "dataset"
	ArtifactStarterCode ArtifactKind = "starterCode"
	ArtifactPortalHTML  ArtifactKind = "portalHtml"
	ArtifactPortalCSS   ArtifactKind = "portalCss"
)

// GeneratedArtifact is a file written by a step
type GeneratedArtifact struct {
	Kind       ArtifactKind `json:"kind"`
	Path       string       `json:"path"`
	ProducedBy string       `json:"produced_by"`
}

// ErrorKind classifies a StepError
type ErrorKind string

// ErrorKind constants
const (
	ErrorGatewayExhausted ErrorKind = "gateway_exhausted"
	ErrorSchemaValidation ErrorKind = "schema_validation"
	ErrorPerItem          ErrorKind = "per_item"
	ErrorConfiguration    ErrorKind = "configuration"
	ErrorExternalService  ErrorKind = "external_service"
	ErrorFilesystem       ErrorKind = "filesystem"
)

// StepError is the RunResult record of an error observed by a step
type StepError struct {
	Step    string    `json:"step"`
	Kind    ErrorKind `json:"kind"`
	Item    string    `json:"item,omitempty"`
	Message string    `json:"message"`
	// Terminal marks the error that halted the run
	Terminal bool `json:"terminal,omitempty"`
}

// RunStatus constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunResult is the report of one pipeline execution
type RunResult struct {
	RunID      uuid.UUID           `json:"run_id"`
	JobSpec    JobSpec             `json:"job_spec"`
	OutputDir  string              `json:"output_dir"`
	Status     string              `json:"status"`
	Artifacts  []GeneratedArtifact `json:"artifacts"`
	Errors     []StepError         `json:"errors"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// NewRunResult creates a running RunResult for a job
func NewRunResult(job JobSpec, outputDir string) *RunResult {
	return &RunResult{
		RunID:     uuid.New(),
		JobSpec:   job,
		OutputDir: outputDir,
		Status:    RunStatusRunning,
		Artifacts: []GeneratedArtifact{},
		Errors:    []StepError{},
		StartedAt: time.Now(),
	}
}

// AddArtifact appends an artifact record
func (r *RunResult) AddArtifact(kind ArtifactKind, path, producedBy string) {
	r.Artifacts = append(r.Artifacts, GeneratedArtifact{Kind: kind, Path: path, ProducedBy: producedBy})
}

// AddError appends an error record
func (r *RunResult) AddError(stepErr StepError) {
	r.Errors = append(r.Errors, stepErr)
}

// Finish stamps the final status
func (r *RunResult) Finish(status string) {
	now := time.Now()
	r.Status = status
	r.FinishedAt = &now
}

// ArtifactsOfKind returns the artifacts of the given kind in append order
func (r *RunResult) ArtifactsOfKind(kind ArtifactKind) []GeneratedArtifact {
	var out []GeneratedArtifact
	for _, a := range r.Artifacts {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// TerminalError returns the error that halted the run, if any
func (r *RunResult) TerminalError() *StepError {
	for i := range r.Errors {
		if r.Errors[i].Terminal {
			return &r.Errors[i]
		}
	}
	return nil
}
