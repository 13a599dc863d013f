package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline/steps"
)

func TestResolveModel(t *testing.T) {
	cfg := &config.Config{
		DefaultModel: "process-default",
		Models:       config.StepModels{Research: "cfg-research"},
		Fallbacks:    []string{"fb-1", "fb-2"},
	}

	tests := []struct {
		name string
		step string
		run  ModelOverrides
		cfg  *config.Config
		want string
	}{
		{"run step override wins", steps.Research, ModelOverrides{Run: "run", Steps: config.StepModels{Research: "run-research"}}, cfg, "run-research"},
		{"run override beats config", steps.Research, ModelOverrides{Run: "run"}, cfg, "run"},
		{"configured step model", steps.Research, ModelOverrides{}, cfg, "cfg-research"},
		{"process default", steps.Assignments, ModelOverrides{}, cfg, "process-default"},
		{"head of fallback chain", steps.StarterCode, ModelOverrides{}, &config.Config{Fallbacks: []string{"fb-1"}}, "fb-1"},
		{"built-in chain", steps.Design, ModelOverrides{}, nil, llm.DefaultFallbackChain()[0]},
		{"blank overrides ignored", steps.Research, ModelOverrides{Run: "  "}, cfg, "cfg-research"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveModel(tt.step, tt.run, tt.cfg))
		})
	}
}

func TestCandidates(t *testing.T) {
	cfg := &config.Config{DefaultModel: "fb-2", Fallbacks: []string{"fb-1", "fb-2"}}
	assert.Equal(t, []string{"fb-2", "fb-1"}, Candidates(steps.Assignments, ModelOverrides{}, cfg))

	got := Candidates(steps.Research, ModelOverrides{Run: "gemini-2.0-flash"}, nil)
	assert.Equal(t, "gemini-2.0-flash", got[0])
	assert.Len(t, got, 1+len(llm.DefaultFallbackChain()))
}
