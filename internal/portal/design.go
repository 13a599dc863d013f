package portal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/prompts"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// NotesFile is written next to the stylesheet
const NotesFile = "design_notes.md"

// DefaultDesignTemperature is used when DesignOptions.Temperature is zero
const DefaultDesignTemperature = 0.7

// DesignOptions controls stylesheet generation. No candidates means the built-in stylesheet.
type DesignOptions struct {
	Candidates  []string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Designer writes styles.css for the portal
type Designer struct {
	gateway llm.Completer
	logger  *slog.Logger
}

// NewDesigner creates a Designer. gateway may be nil when only the built-in stylesheet is used.
func NewDesigner(gateway llm.Completer, logger *slog.Logger) *Designer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Designer{gateway: gateway, logger: logger}
}

// DesignResult reports where the stylesheet came from
type DesignResult struct {
	Path      string
	NotesPath string
	// Generated is true when the model produced the stylesheet
	Generated bool
	Model     string
}

// Design writes outputDir/styles.css and outputDir/design_notes.md. A model failure falls
// back to the built-in stylesheet; only a filesystem error is returned.
func (d *Designer) Design(ctx context.Context, job types.JobSpec, outputDir string, opts DesignOptions) (*DesignResult, error) {
	css := DefaultCSS()
	commentary := ""
	result := &DesignResult{}

	if d.gateway != nil && len(opts.Candidates) > 0 {
		if reply, model, ok := d.generate(ctx, job, opts); ok {
			css = reply.css
			commentary = reply.notes
			result.Generated = true
			result.Model = model
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, &RenderError{Message: "failed to create output directory", Cause: err}
	}
	result.Path = filepath.Join(outputDir, StylesheetFile)
	if err := os.WriteFile(result.Path, []byte(css), 0644); err != nil {
		return nil, &RenderError{Message: "failed to write " + StylesheetFile, Cause: err}
	}

	result.NotesPath = filepath.Join(outputDir, NotesFile)
	if err := os.WriteFile(result.NotesPath, []byte(DesignNotes(job, result, commentary)), 0644); err != nil {
		return nil, &RenderError{Message: "failed to write " + NotesFile, Cause: err}
	}
	d.logger.Info("stylesheet written", "path", result.Path, "generated", result.Generated)
	return result, nil
}

// DesignNotes renders design_notes.md for a stylesheet
func DesignNotes(job types.JobSpec, result *DesignResult, commentary string) string {
	var sb strings.Builder
	sb.WriteString("# Design notes\n\n")
	fmt.Fprintf(&sb, "- Portal: %s %s\n", job.CompanyName, job.Title())
	fmt.Fprintf(&sb, "- Stylesheet: %s\n", StylesheetFile)
	if result.Generated {
		fmt.Fprintf(&sb, "- Source: generated by %s\n", result.Model)
	} else {
		sb.WriteString("- Source: built-in stylesheet\n")
	}
	if commentary = strings.TrimSpace(commentary); commentary != "" {
		sb.WriteString("\n## Choices\n\n")
		sb.WriteString(commentary)
		sb.WriteString("\n")
	}
	return sb.String()
}

type designReply struct {
	css   string
	notes string
}

func (d *Designer) generate(ctx context.Context, job types.JobSpec, opts DesignOptions) (designReply, string, bool) {
	prompt, err := prompts.Render("design.json", "generate-css", prompts.Data{
		"CompanyName": job.CompanyName,
		"Level":       string(job.Level),
		"Role":        job.Role,
	})
	if err != nil {
		d.logger.Warn("design prompt unavailable", "error", err)
		return designReply{}, "", false
	}

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultDesignTemperature
	}
	completion, err := d.gateway.Complete(ctx, prompt, llm.Options{
		Candidates:  opts.Candidates,
		Temperature: temperature,
		MaxTokens:   opts.MaxTokens,
		Timeout:     opts.Timeout,
	})
	if err != nil {
		d.logger.Warn("stylesheet generation failed, using built-in", "error", err)
		return designReply{}, "", false
	}

	css, ok := ExtractCSS(completion.Text)
	if !ok {
		d.logger.Warn("model returned no usable CSS, using built-in", "model", completion.Model)
		return designReply{}, "", false
	}
	return designReply{css: css, notes: extractNotes(completion.Text)}, completion.Model, true
}

// extractNotes returns the prose following the fenced stylesheet, if any
func extractNotes(text string) string {
	text = llm.StripThinking(text)
	loc := cssFenceRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return strings.TrimSpace(text[loc[1]:])
}

var (
	cssFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")
	cssImportRe = regexp.MustCompile(`(?im)^\s*@import[^;]*;\s*$`)
)

// ExtractCSS pulls a stylesheet out of a model reply. External imports are removed.
// It reports false when the reply does not look like CSS.
func ExtractCSS(text string) (string, bool) {
	text = llm.StripThinking(text)
	if m := cssFenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = cssImportRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if text == "" || !strings.Contains(text, "{") || strings.Contains(text, "<") {
		return "", false
	}
	return text + "\n", true
}
