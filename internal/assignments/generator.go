// Package assignments generates the structured assignment set from a job spec and
// research report, validating model output against the assignments.json schema.
package assignments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/prompts"
	"github.com/chulminlee01/mrt-tech-test/internal/schemas"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// Count bounds
const (
	DefaultCount = 5
	MaxCount     = 5
)

// DefaultTemperature matches the generation temperature used for structured output
const DefaultTemperature = 0.2

// Options controls assignment generation
type Options struct {
	Candidates  []string
	Count       int
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// ValidateCount checks an assignment count is within 1..MaxCount
func ValidateCount(count int) error {
	if count < 1 || count > MaxCount {
		return fmt.Errorf("assignment count must be between 1 and %d, got %d", MaxCount, count)
	}
	return nil
}

// Generator produces assignment sets through the model gateway
type Generator struct {
	gateway llm.Completer
	logger  *slog.Logger
}

// NewGenerator creates a Generator
func NewGenerator(gateway llm.Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{gateway: gateway, logger: logger}
}

// Generate asks the model for exactly opts.Count assignments. A response that cannot
// be parsed or validated gets one repair prompt carrying the error; a second failure
// returns *SchemaValidationError. Gateway errors are returned as is.
// research may be nil or empty.
func (g *Generator) Generate(ctx context.Context, job types.JobSpec, research *types.ResearchReport, opts Options) (*types.AssignmentSet, error) {
	count := opts.Count
	if count == 0 {
		count = DefaultCount
	}
	if err := ValidateCount(count); err != nil {
		return nil, err
	}

	langInstruction, err := prompts.Get("assignments.json", prompts.LanguageKey(job.Language))
	if err != nil {
		return nil, fmt.Errorf("failed to load language instruction: %w", err)
	}
	data := promptData(job, research, count, langInstruction)

	system, err := prompts.Render("assignments.json", "system", data)
	if err != nil {
		return nil, fmt.Errorf("failed to build assignment prompt: %w", err)
	}
	prompt, err := prompts.Render("assignments.json", "generate", data)
	if err != nil {
		return nil, fmt.Errorf("failed to build assignment prompt: %w", err)
	}

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	callOpts := llm.Options{
		Candidates:  opts.Candidates,
		Temperature: temperature,
		MaxTokens:   opts.MaxTokens,
		Timeout:     opts.Timeout,
		JSON:        true,
		System:      system,
	}

	completion, err := g.gateway.Complete(ctx, prompt, callOpts)
	if err != nil {
		return nil, fmt.Errorf("assignment generation failed: %w", err)
	}

	set, parseErr := Parse(completion.Text, count)
	if parseErr != nil {
		g.logger.Warn("assignment output rejected, attempting repair", "model", completion.Model, "error", parseErr)

		data["Error"] = parseErr.Error()
		data["Previous"] = completion.Text
		repairPrompt, err := prompts.Render("assignments.json", "repair", data)
		if err != nil {
			return nil, fmt.Errorf("failed to build repair prompt: %w", err)
		}

		repaired, err := g.gateway.Complete(ctx, repairPrompt, callOpts)
		if err != nil {
			return nil, fmt.Errorf("assignment repair failed: %w", err)
		}

		set, parseErr = Parse(repaired.Text, count)
		if parseErr != nil {
			return nil, &SchemaValidationError{Attempts: 2, Raw: repaired.Text, Cause: parseErr}
		}
	}

	Normalize(set, job, count)
	g.logger.Info("assignments generated", "count", len(set.Assignments), "model", completion.Model)
	return set, nil
}

func promptData(job types.JobSpec, research *types.ResearchReport, count int, langInstruction string) prompts.Data {
	researchText := "(no research available)"
	if research != nil && research.Text != "" {
		researchText = research.Text
	}
	topic := job.Topic
	if topic == "" {
		topic = "(none)"
	}
	return prompts.Data{
		"CompanyName":         job.CompanyName,
		"Role":                job.Role,
		"Level":               string(job.Level),
		"Language":            job.Language,
		"Topic":               topic,
		"Research":            researchText,
		"Count":               strconv.Itoa(count),
		"Schema":              schemas.AssignmentsSchema(),
		"LanguageInstruction": langInstruction,
	}
}

// IsSchemaValidation reports whether err wraps a SchemaValidationError
func IsSchemaValidation(err error) bool {
	var sve *SchemaValidationError
	return errors.As(err, &sve)
}
