package types

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewRunResult(t *testing.T) {
	job := JobSpec{Role: "Data Engineer", Level: LevelMid, Language: "English", CompanyName: "Acme"}
	result := NewRunResult(job, "/tmp/out")

	assert.NotEqual(t, uuid.Nil, result.RunID)
	assert.Equal(t, RunStatusRunning, result.Status)
	assert.Empty(t, result.Artifacts)
	assert.Empty(t, result.Errors)
	assert.Nil(t, result.FinishedAt)
}

func TestRunResult_ArtifactsAndErrors(t *testing.T) {
	result := NewRunResult(JobSpec{}, "out")
	result.AddArtifact(ArtifactResearch, "research_report.txt", "research")
	result.AddArtifact(ArtifactDataset, "datasets/a.csv", "datasets")
	result.AddArtifact(ArtifactDataset, "datasets/b.json", "datasets")

	datasets := result.ArtifactsOfKind(ArtifactDataset)
	assert.Len(t, datasets, 2)
	assert.Equal(t, "datasets/a.csv", datasets[0].Path)

	assert.Nil(t, result.TerminalError())
	result.AddError(StepError{Step: "datasets", Kind: ErrorPerItem, Item: "a", Message: "boom"})
	result.AddError(StepError{Step: "assignments", Kind: ErrorSchemaValidation, Message: "bad", Terminal: true})

	terminal := result.TerminalError()
	if assert.NotNil(t, terminal) {
		assert.Equal(t, "assignments", terminal.Step)
	}

	result.Finish(RunStatusFailed)
	assert.Equal(t, RunStatusFailed, result.Status)
	assert.NotNil(t, result.FinishedAt)
}

func TestPerItemError(t *testing.T) {
	cause := errors.New("disk full")
	err := &PerItemError{Step: "datasets", Item: "bookings", Message: "write failed", Cause: cause}
	assert.Equal(t, `datasets: item "bookings" failed: write failed: disk full`, err.Error())
	assert.ErrorIs(t, err, cause)

	bare := &PerItemError{Step: "starter_code", Item: "A1", Message: "empty output"}
	assert.Equal(t, `starter_code: item "A1" failed: empty output`, bare.Error())
}
