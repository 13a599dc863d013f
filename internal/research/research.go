// Package research gathers web context about a role and synthesizes it into a report
// that seeds assignment generation. Research degrades instead of failing.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/prompts"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// Options controls a single research run
type Options struct {
	Candidates  []string
	MaxQueries  int
	Temperature float64 // zero means DefaultTemperature
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultTemperature is the synthesis temperature when none is configured
const DefaultTemperature = 0.4

// Researcher runs searches and synthesizes a report through the model gateway
type Researcher struct {
	gateway  llm.Completer
	searcher Searcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewResearcher creates a Researcher. searcher may be nil when no search credentials
// are configured, in which case reports are synthesized from the job spec alone.
func NewResearcher(gateway llm.Completer, searcher Searcher, logger *slog.Logger) *Researcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Researcher{gateway: gateway, searcher: searcher, logger: logger, now: time.Now}
}

// Research produces a report for job. Search and model failures never surface as
// errors: failed queries are skipped, and an exhausted gateway yields a degraded
// report built from the job spec and whatever snippets were collected.
// The only error is llm.ErrNoCandidates, which is a caller mistake.
func (r *Researcher) Research(ctx context.Context, job types.JobSpec, opts Options) (*types.ResearchReport, error) {
	sources := r.collect(ctx, job, opts.MaxQueries)

	key := "synthesize-report"
	if len(sources) == 0 {
		key = "synthesize-report-no-sources"
	}
	prompt, err := prompts.Render("research.json", key, promptData(job, sources))
	if err != nil {
		return nil, fmt.Errorf("failed to build research prompt: %w", err)
	}
	system, err := prompts.Get("research.json", "system")
	if err != nil {
		return nil, fmt.Errorf("failed to build research prompt: %w", err)
	}

	temperature := opts.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	completion, err := r.gateway.Complete(ctx, prompt, llm.Options{
		Candidates:  opts.Candidates,
		Temperature: temperature,
		MaxTokens:   opts.MaxTokens,
		Timeout:     opts.Timeout,
		System:      system,
	})
	if errors.Is(err, llm.ErrNoCandidates) {
		return nil, err
	}
	if err != nil {
		r.logger.Warn("research synthesis failed, using job spec only", "error", err)
		return &types.ResearchReport{
			Text:        FallbackReport(job, sources),
			GeneratedAt: r.now().UTC(),
			Sources:     sources,
			Degraded:    true,
		}, nil
	}

	text := strings.TrimSpace(llm.SanitizeControl(llm.StripThinking(completion.Text)))
	if text == "" {
		text = FallbackReport(job, sources)
	}
	if len(sources) > 0 {
		text += "\n\n" + sourcesSection(sources)
	}

	r.logger.Info("research report synthesized", "model", completion.Model, "sources", len(sources))
	return &types.ResearchReport{
		Text:        text,
		GeneratedAt: r.now().UTC(),
		Sources:     sources,
	}, nil
}

func (r *Researcher) collect(ctx context.Context, job types.JobSpec, maxQueries int) []types.SearchSource {
	if r.searcher == nil {
		r.logger.Info("no search provider configured, skipping web search")
		return nil
	}

	var sources []types.SearchSource
	for _, q := range BuildQueries(job, maxQueries) {
		results, err := r.searcher.Search(ctx, q)
		if err != nil {
			r.logger.Warn("search query failed", "query", q, "error", err)
			continue
		}
		sources = append(sources, results...)
	}
	return dedupeSources(sources)
}

func promptData(job types.JobSpec, sources []types.SearchSource) prompts.Data {
	topic := job.Topic
	if topic == "" {
		topic = "(none)"
	}
	var sb strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, s.Title, s.URL, s.Snippet)
	}
	return prompts.Data{
		"CompanyName": job.CompanyName,
		"Role":        job.Role,
		"Level":       string(job.Level),
		"Topic":       topic,
		"Language":    languageOrDefault(job.Language),
		"Sources":     strings.TrimSpace(sb.String()),
	}
}

func sourcesSection(sources []types.SearchSource) string {
	var sb strings.Builder
	sb.WriteString("## Sources\n")
	for i, s := range sources {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		fmt.Fprintf(&sb, "%d. [%s](%s)\n", i+1, title, s.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FallbackReport builds a deterministic report from job spec fields and any collected snippets
func FallbackReport(job types.JobSpec, sources []types.SearchSource) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Research notes: %s\n\n", job.Title())
	sb.WriteString("## Role Overview\n")
	fmt.Fprintf(&sb, "- Role: %s\n", job.Role)
	fmt.Fprintf(&sb, "- Level: %s\n", job.Level)
	if job.CompanyName != "" {
		fmt.Fprintf(&sb, "- Company: %s\n", job.CompanyName)
	}
	if job.Topic != "" {
		fmt.Fprintf(&sb, "- Focus topic: %s\n", job.Topic)
	}
	fmt.Fprintf(&sb, "- Output language: %s\n", languageOrDefault(job.Language))

	sb.WriteString("\n## Assignment Design Recommendations\n")
	fmt.Fprintf(&sb, "- Scope the work to what a %s engineer can finish in one sitting.\n", strings.ToLower(string(job.Level)))
	fmt.Fprintf(&sb, "- Center the task on day-to-day %s problems rather than puzzles.\n", job.Role)
	sb.WriteString("- Provide realistic data and a runnable starter file.\n")

	if len(sources) > 0 {
		sb.WriteString("\n## Collected Snippets\n")
		for _, s := range sources {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", s.Title, s.Snippet, s.URL)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func languageOrDefault(language string) string {
	if strings.TrimSpace(language) == "" {
		return "English"
	}
	return language
}
