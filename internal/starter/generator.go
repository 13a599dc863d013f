// Package starter asks the model gateway for one boilerplate source file per assignment.
package starter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/prompts"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// StepName identifies this step in errors and artifacts
const StepName = "starter_code"

// Dir is the starter code directory inside a run output directory
const Dir = "starter_code"

// DefaultTemperature keeps boilerplate close to deterministic
const DefaultTemperature = 0.2

// Options controls starter code generation
type Options struct {
	Candidates  []string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Generator writes starter files and attaches their paths to the assignment set
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

// Generate writes one starter file per assignment under outputDir/starter_code.
// A failed assignment yields a *types.PerItemError and no path; the rest continue.
func (g *Generator) Generate(ctx context.Context, set *types.AssignmentSet, outputDir string, opts Options) ([]types.GeneratedArtifact, []error) {
	dir := filepath.Join(outputDir, Dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, []error{fmt.Errorf("failed to create %s: %w", dir, err)}
	}

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	used := make(map[string]bool)
	var artifacts []types.GeneratedArtifact
	var errs []error

	for i := range set.Assignments {
		a := &set.Assignments[i]
		a.StarterCode.Path = ""

		language := strings.TrimSpace(a.StarterCode.Language)
		if language == "" {
			errs = append(errs, &types.PerItemError{Step: StepName, Item: a.ID, Message: "no starter code language"})
			continue
		}

		name := Filename(a.StarterCode.Filename, language, "starter_"+a.ID)
		if used[name] {
			name = a.ID + "_" + name
		}
		used[name] = true
		a.StarterCode.Filename = name

		prompt, system, err := buildPrompt(*a, language, name)
		if err != nil {
			errs = append(errs, &types.PerItemError{Step: StepName, Item: a.ID, Message: "prompt failed", Cause: err})
			continue
		}

		completion, err := g.gateway.Complete(ctx, prompt, llm.Options{
			Candidates:  opts.Candidates,
			Temperature: temperature,
			MaxTokens:   opts.MaxTokens,
			Timeout:     opts.Timeout,
			System:      system,
		})
		if err != nil {
			errs = append(errs, &types.PerItemError{Step: StepName, Item: a.ID, Message: "generation failed", Cause: err})
			g.logger.Warn("starter code skipped", "assignment", a.ID, "error", err)
			continue
		}

		source := ExtractSource(completion.Text)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(source), 0644); err != nil {
			errs = append(errs, &types.PerItemError{Step: StepName, Item: a.ID, Message: "write failed", Cause: err})
			continue
		}

		a.StarterCode.Path = path.Join(Dir, name)
		artifacts = append(artifacts, types.GeneratedArtifact{Kind: types.ArtifactStarterCode, Path: a.StarterCode.Path, ProducedBy: StepName})
		g.logger.Info("starter code written", "assignment", a.ID, "path", a.StarterCode.Path, "model", completion.Model)
	}
	return artifacts, errs
}

func buildPrompt(a types.AssignmentRecord, language, filename string) (string, string, error) {
	var reqs strings.Builder
	for _, r := range a.Requirements {
		fmt.Fprintf(&reqs, "- %s\n", r)
	}

	data := prompts.Data{
		"Title":        a.Title,
		"Mission":      a.Mission,
		"Requirements": strings.TrimRight(reqs.String(), "\n"),
		"Datasets":     DatasetPreview(a.Datasets),
		"Filename":     filename,
		"Language":     language,
		"Description":  a.StarterCode.Description,
	}
	prompt, err := prompts.Render("starter.json", "generate", data)
	if err != nil {
		return "", "", err
	}
	system, err := prompts.Render("starter.json", "system", data)
	if err != nil {
		return "", "", err
	}
	return prompt, system, nil
}

// DatasetPreview lists each dataset's file and column schema for the prompt
func DatasetPreview(datasets []types.DatasetSpec) string {
	if len(datasets) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, d := range datasets {
		name := d.Filename
		if d.Path != "" {
			name = path.Base(d.Path)
		}
		if name == "" {
			name = d.Name
		}
		fmt.Fprintf(&sb, "- %s (%s, %d records)", name, d.Format, d.Records)
		if d.Description != "" {
			fmt.Fprintf(&sb, ": %s", d.Description)
		}
		sb.WriteString("\n")
		for _, c := range d.Columns {
			fmt.Fprintf(&sb, "    - %s: %s", c.Name, c.EffectiveType())
			if len(c.Choices) > 0 {
				fmt.Fprintf(&sb, " [%s]", strings.Join(c.Choices, ", "))
			}
			if c.Description != "" {
				fmt.Fprintf(&sb, " (%s)", c.Description)
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

var codeFenceRe = regexp.MustCompile("(?s)```[^\\n`]*\\n(.*?)```")

// ExtractSource returns the body of the longest fenced code block, or the whole
// response when there is none. Reasoning blocks are dropped.
func ExtractSource(text string) string {
	text = llm.SanitizeControl(llm.StripThinking(text))
	var best string
	for _, m := range codeFenceRe.FindAllStringSubmatch(text, -1) {
		if len(m[1]) > len(best) {
			best = m[1]
		}
	}
	if best == "" {
		best = text
	}
	return strings.TrimRight(best, " \n\t") + "\n"
}
