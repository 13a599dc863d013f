package pipeline

import (
	"strings"

	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline/steps"
)

// ModelOverrides are the model choices of a single run
type ModelOverrides struct {
	// Run applies to every model-backed step without a step override
	Run string
	// Steps are step-specific overrides
	Steps config.StepModels
}

func stepModel(models config.StepModels, step string) string {
	switch step {
	case steps.Research:
		return models.Research
	case steps.Assignments:
		return models.Assignments
	case steps.StarterCode:
		return models.Starter
	case steps.Design:
		return models.Design
	}
	return ""
}

// ResolveModel picks the primary model for step: run step override, run override,
// configured step default, configured process default, then the head of the fallback chain.
func ResolveModel(step string, run ModelOverrides, cfg *config.Config) string {
	chain := []string{stepModel(run.Steps, step), run.Run}
	var fallbacks []string
	if cfg != nil {
		chain = append(chain, stepModel(cfg.Models, step), cfg.DefaultModel)
		fallbacks = cfg.Fallbacks
	}
	if len(fallbacks) == 0 {
		fallbacks = llm.DefaultFallbackChain()
	}
	chain = append(chain, fallbacks[0])

	for _, m := range chain {
		if m = strings.TrimSpace(m); m != "" {
			return m
		}
	}
	return ""
}

// Candidates returns the resolved model followed by the rest of the fallback chain
func Candidates(step string, run ModelOverrides, cfg *config.Config) []string {
	var fallbacks []string
	if cfg != nil {
		fallbacks = cfg.Fallbacks
	}
	if len(fallbacks) == 0 {
		fallbacks = llm.DefaultFallbackChain()
	}
	return llm.BuildCandidates(ResolveModel(step, run, cfg), fallbacks)
}

// Sampling resolves the temperature and token limit of step: run values win over
// configured values field by field. Zero fields leave the step default in place.
func Sampling(step string, run config.StepSamplings, cfg *config.Config) config.StepSampling {
	merged := run
	if cfg != nil {
		merged = run.Merge(cfg.Sampling)
	}
	switch step {
	case steps.Research:
		return merged.Research
	case steps.Assignments:
		return merged.Assignments
	case steps.StarterCode:
		return merged.Starter
	case steps.Design:
		return merged.Design
	}
	return config.StepSampling{}
}
