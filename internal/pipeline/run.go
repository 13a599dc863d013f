// Package pipeline provides the high-level orchestration for take-home package generation.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chulminlee01/mrt-tech-test/internal/assignments"
	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/datasets"
	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline/steps"
	"github.com/chulminlee01/mrt-tech-test/internal/portal"
	"github.com/chulminlee01/mrt-tech-test/internal/research"
	"github.com/chulminlee01/mrt-tech-test/internal/schemas"
	"github.com/chulminlee01/mrt-tech-test/internal/starter"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// Files written at the top of a run output directory
const (
	ResearchFile = "research_report.txt"
	RunLogFile   = "run.log"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds the settings of a single pipeline run
type RunOptions struct {
	Job       types.JobSpec
	OutputDir string

	SkipResearch    bool
	SkipAssignments bool
	SkipDatasets    bool
	SkipStarterCode bool
	SkipPortal      bool
	WithDesigner    bool

	// AssignmentCount overrides the configured count when non-zero
	AssignmentCount int
	Models          ModelOverrides
	// Sampling overrides the configured per-step sampling settings
	Sampling config.StepSamplings
	// SiteTitle overrides the configured portal title
	SiteTitle  string
	OnProgress ProgressCallback
}

// Dependencies are the collaborators an Orchestrator is built from
type Dependencies struct {
	Config   *config.Config
	Gateway  llm.Completer
	Searcher research.Searcher // nil disables web search
	Logger   *slog.Logger
	Stdout   io.Writer // step lines; nil discards them
}

// Orchestrator runs the step pipeline. It holds no per-run state and may run
// several jobs concurrently as long as each uses its own output directory.
type Orchestrator struct {
	cfg      *config.Config
	gateway  llm.Completer
	searcher research.Searcher
	logger   *slog.Logger
	out      io.Writer
}

// New creates an Orchestrator
func New(deps Dependencies) *Orchestrator {
	cfg := deps.Config
	if cfg == nil {
		merged := (&config.Config{}).MergeWithDefaults(config.Config{})
		cfg = &merged
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	out := deps.Stdout
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{cfg: cfg, gateway: deps.Gateway, searcher: deps.Searcher, logger: logger, out: out}
}

// NewFromConfig wires the model gateway and, when credentials exist, the web searcher.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*Orchestrator, error) {
	gateway := llm.NewGateway(llm.NewRouter(cfg.Credentials), logger)

	var searcher research.Searcher
	if cfg.SearchEnabled() {
		gs, err := research.NewGoogleSearcher(ctx, cfg.GoogleAPIKey, cfg.GoogleCSEID)
		if err != nil {
			return nil, fmt.Errorf("failed to create search client: %w", err)
		}
		searcher = gs
	}

	return New(Dependencies{Config: cfg, Gateway: gateway, Searcher: searcher, Logger: logger, Stdout: stdout}), nil
}

// runPlan holds the resolved execution plan of a run
type runPlan struct {
	enabled map[string]bool
	reuse   bool
	count   int
	order   []string
}

func (o *Orchestrator) buildPlan(opts RunOptions) (*runPlan, error) {
	if err := opts.Job.Validate(); err != nil {
		return nil, &ConfigurationError{Message: "invalid job spec", Cause: err}
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, &ConfigurationError{Message: "output directory is required"}
	}

	count := opts.AssignmentCount
	if count == 0 {
		count = o.cfg.AssignmentCount
	}
	if count == 0 {
		count = assignments.DefaultCount
	}
	if err := assignments.ValidateCount(count); err != nil {
		return nil, &ConfigurationError{Message: "invalid assignment count", Cause: err}
	}

	enabled := map[string]bool{
		steps.Research:    !opts.SkipResearch,
		steps.Assignments: !opts.SkipAssignments,
		steps.Datasets:    !opts.SkipDatasets,
		steps.StarterCode: !opts.SkipStarterCode,
		steps.Portal:      !opts.SkipPortal,
		steps.Design:      opts.WithDesigner,
	}

	reuse := false
	if opts.SkipAssignments {
		path := filepath.Join(opts.OutputDir, assignments.JSONFile)
		if _, err := os.Stat(path); err == nil {
			if err := schemas.ValidateAssignmentsFile(path); err != nil {
				return nil, &ConfigurationError{Message: "existing " + assignments.JSONFile + " cannot be reused", Cause: err}
			}
			reuse = true
		}
	}
	if err := steps.ValidatePlan(enabled, map[string]bool{steps.Assignments: reuse}); err != nil {
		return nil, &ConfigurationError{Message: "unsatisfiable step plan", Cause: err}
	}

	for _, name := range []string{steps.Research, steps.Assignments, steps.StarterCode, steps.Design} {
		if enabled[name] && len(Candidates(name, opts.Models, o.cfg)) == 0 {
			return nil, &ConfigurationError{Message: "no model candidates for " + name, Cause: llm.ErrNoCandidates}
		}
	}

	return &runPlan{enabled: enabled, reuse: reuse, count: count, order: steps.EnabledSteps(enabled)}, nil
}

// Run executes one pipeline run. The returned RunResult is never nil and reflects only what
// completed. A non-nil error means the run halted: either a ConfigurationError raised before
// any step, or a fatal assignment generation failure.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*types.RunResult, error) {
	result := types.NewRunResult(opts.Job, opts.OutputDir)

	p, err := o.buildPlan(opts)
	if err != nil {
		result.AddError(stepError("pipeline", err, true))
		result.Finish(types.RunStatusFailed)
		return result, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		err = fmt.Errorf("failed to create output directory: %w", err)
		result.AddError(stepError("pipeline", err, true))
		result.Finish(types.RunStatusFailed)
		return result, err
	}

	level, _ := config.ParseLevel(o.cfg.LogLevel)
	logger, cleanup := config.RunLogger(o.logger, filepath.Join(opts.OutputDir, RunLogFile), level)
	defer func() { _ = cleanup() }()

	r := &run{
		o:      o,
		opts:   opts,
		plan:   p,
		result: result,
		logger: logger.With("run_id", result.RunID.String()),
		lang:   opts.Job.LanguageCode(),
	}
	return r.execute(ctx)
}

// run carries the state of one execution
type run struct {
	o      *Orchestrator
	opts   RunOptions
	plan   *runPlan
	result *types.RunResult
	logger *slog.Logger
	lang   string

	stepNum  int
	report   *types.ResearchReport
	set      *types.AssignmentSet
	attached bool
}

func (r *run) execute(ctx context.Context) (*types.RunResult, error) {
	job := r.opts.Job
	r.logger.Info("run started",
		"role", job.Role, "level", job.Level, "language", job.Language, "company", job.CompanyName,
		"steps", strings.Join(r.plan.order, ","), "assignment_count", r.plan.count, "output_dir", r.opts.OutputDir)

	if r.plan.enabled[steps.Research] {
		r.runResearch(ctx)
	} else {
		r.reuseResearch()
	}

	if r.plan.enabled[steps.Assignments] {
		if err := r.runAssignments(ctx); err != nil {
			return r.halt(steps.Assignments, err)
		}
	} else if r.plan.reuse {
		if err := r.reuseAssignments(); err != nil {
			return r.halt(steps.Assignments, err)
		}
	}

	if r.set != nil {
		if r.plan.enabled[steps.Datasets] {
			r.runDatasets()
		}
		if r.plan.enabled[steps.StarterCode] {
			r.runStarterCode(ctx)
		}
		if r.attached {
			r.rewriteAssignments()
		}
		if r.plan.enabled[steps.Portal] {
			r.runPortal(ctx)
		}
	}

	r.result.Finish(types.RunStatusCompleted)
	r.logger.Info("run completed", "artifacts", len(r.result.Artifacts), "errors", len(r.result.Errors))
	r.emit("pipeline", "", "Run completed", r.result)
	return r.result, nil
}

func (r *run) halt(step string, err error) (*types.RunResult, error) {
	r.result.AddError(stepError(step, err, true))
	r.result.Finish(types.RunStatusFailed)
	r.logger.Error("run halted", "step", step, "error", err)
	r.emit(step, "", "Run failed: "+err.Error(), nil)
	return r.result, fmt.Errorf("%s step failed: %w", step, err)
}

func (r *run) begin(step, message string) {
	r.stepNum++
	fmt.Fprintf(r.o.out, "Step %d/%d: %s...\n", r.stepNum, len(r.plan.order), message)
	r.logger.Info("step started", "step", step)
}

func (r *run) emit(step, category, message string, content any) {
	if r.opts.OnProgress == nil {
		return
	}
	r.opts.OnProgress(ProgressEvent{
		Step:     step,
		Category: category,
		Message:  message,
		RunID:    r.result.RunID.String(),
		Content:  content,
	})
}

func (r *run) recordErrors(step string, errs []error) {
	for _, err := range errs {
		r.result.AddError(stepError(step, err, false))
		r.logger.Warn("step item failed", "step", step, "error", err)
	}
}

func (r *run) addArtifacts(artifacts []types.GeneratedArtifact) {
	for _, a := range artifacts {
		r.result.AddArtifact(a.Kind, a.Path, a.ProducedBy)
	}
}

func (r *run) runResearch(ctx context.Context) {
	r.begin(steps.Research, "Researching role and market context")

	researcher := research.NewResearcher(r.o.gateway, r.o.searcher, r.logger.With("step", steps.Research))
	sampling := Sampling(steps.Research, r.opts.Sampling, r.o.cfg)
	report, err := researcher.Research(ctx, r.opts.Job, research.Options{
		Candidates:  Candidates(steps.Research, r.opts.Models, r.o.cfg),
		MaxQueries:  r.o.cfg.MaxSearchQueries,
		Temperature: sampling.Temperature,
		MaxTokens:   sampling.MaxTokens,
		Timeout:     r.o.cfg.ModelTimeout(),
	})
	if err != nil {
		r.result.AddError(stepError(steps.Research, err, false))
		r.logger.Warn("research failed, continuing without report", "error", err)
		return
	}
	r.report = report

	path := filepath.Join(r.opts.OutputDir, ResearchFile)
	if err := os.WriteFile(path, []byte(report.Text+"\n"), 0644); err != nil {
		r.result.AddError(stepError(steps.Research, fmt.Errorf("failed to write %s: %w", ResearchFile, err), false))
		return
	}
	r.result.AddArtifact(types.ArtifactResearch, ResearchFile, steps.Research)

	msg := fmt.Sprintf("Research report ready (%d sources)", len(report.Sources))
	if report.Degraded {
		msg = "Research report built from job spec only"
	}
	r.emit(steps.Research, steps.CategoryResearch, msg, report)
}

// reuseResearch loads research_report.txt left by an earlier run. Without one the
// later steps work from an empty report.
func (r *run) reuseResearch() {
	path := filepath.Join(r.opts.OutputDir, ResearchFile)
	data, err := os.ReadFile(path)
	if err != nil {
		r.report = &types.ResearchReport{}
		return
	}
	r.report = &types.ResearchReport{Text: strings.TrimSpace(string(data))}
	r.logger.Info("reusing existing research report", "path", path)
	r.emit(steps.Research, steps.CategoryResearch, "Reusing existing "+ResearchFile, nil)
}

func (r *run) runAssignments(ctx context.Context) error {
	r.begin(steps.Assignments, fmt.Sprintf("Generating %d assignment(s)", r.plan.count))

	gen := assignments.NewGenerator(r.o.gateway, r.logger.With("step", steps.Assignments))
	sampling := Sampling(steps.Assignments, r.opts.Sampling, r.o.cfg)
	set, err := gen.Generate(ctx, r.opts.Job, r.report, assignments.Options{
		Candidates:  Candidates(steps.Assignments, r.opts.Models, r.o.cfg),
		Count:       r.plan.count,
		Temperature: sampling.Temperature,
		MaxTokens:   sampling.MaxTokens,
		Timeout:     r.o.cfg.ModelTimeout(),
	})
	if err != nil {
		return err
	}
	r.set = set

	if err := r.writeAssignments(); err != nil {
		return err
	}
	r.result.AddArtifact(types.ArtifactAssignments, assignments.JSONFile, steps.Assignments)
	r.emit(steps.Assignments, steps.CategoryGeneration, fmt.Sprintf("Generated %d assignment(s)", len(set.Assignments)), set)
	return nil
}

func (r *run) reuseAssignments() error {
	path := filepath.Join(r.opts.OutputDir, assignments.JSONFile)
	set, err := assignments.LoadJSON(path)
	if err != nil {
		return err
	}
	r.set = set
	// paths are re-attached by the asset steps that run now
	if assignments.DetachPaths(set) {
		r.attached = true
	}
	r.logger.Info("reusing existing assignments", "path", path, "count", len(set.Assignments))
	r.emit(steps.Assignments, steps.CategoryGeneration, "Reusing existing assignments.json", nil)
	return nil
}

func (r *run) writeAssignments() error {
	if err := assignments.WriteJSON(r.set, filepath.Join(r.opts.OutputDir, assignments.JSONFile)); err != nil {
		return err
	}
	return assignments.WriteMarkdown(r.set, r.lang, filepath.Join(r.opts.OutputDir, assignments.MarkdownFile))
}

// rewriteAssignments persists the file paths attached by the asset steps
func (r *run) rewriteAssignments() {
	if err := r.writeAssignments(); err != nil {
		r.result.AddError(stepError(steps.Assignments, err, false))
		r.logger.Warn("failed to rewrite assignments with file paths", "error", err)
	}
}

func (r *run) runDatasets() {
	r.begin(steps.Datasets, "Synthesizing datasets")

	synth := datasets.NewSynthesizer(r.logger.With("step", steps.Datasets))
	artifacts, errs := synth.Synthesize(r.set, r.opts.OutputDir)
	r.addArtifacts(artifacts)
	r.recordErrors(steps.Datasets, errs)
	r.attached = true
	r.emit(steps.Datasets, steps.CategoryAssets, fmt.Sprintf("Wrote %d dataset(s), %d failed", len(artifacts), len(errs)), nil)
}

func (r *run) runStarterCode(ctx context.Context) {
	r.begin(steps.StarterCode, "Generating starter code")

	gen := starter.NewGenerator(r.o.gateway, r.logger.With("step", steps.StarterCode))
	sampling := Sampling(steps.StarterCode, r.opts.Sampling, r.o.cfg)
	artifacts, errs := gen.Generate(ctx, r.set, r.opts.OutputDir, starter.Options{
		Candidates:  Candidates(steps.StarterCode, r.opts.Models, r.o.cfg),
		Temperature: sampling.Temperature,
		MaxTokens:   sampling.MaxTokens,
		Timeout:     r.o.cfg.ModelTimeout(),
	})
	r.addArtifacts(artifacts)
	r.recordErrors(steps.StarterCode, errs)
	r.attached = true
	r.emit(steps.StarterCode, steps.CategoryAssets, fmt.Sprintf("Wrote %d starter file(s), %d failed", len(artifacts), len(errs)), nil)
}

func (r *run) runPortal(ctx context.Context) {
	r.begin(steps.Portal, "Assembling portal")

	builder, err := portal.NewBuilder(r.logger.With("step", steps.Portal))
	if err != nil {
		r.result.AddError(stepError(steps.Portal, err, false))
		return
	}
	siteTitle := r.opts.SiteTitle
	if siteTitle == "" {
		siteTitle = r.o.cfg.SiteTitle
	}
	portalOpts := portal.Options{LanguageCode: r.lang, SiteTitle: siteTitle}
	if _, err := builder.Build(r.set, r.report, r.opts.OutputDir, portalOpts); err != nil {
		r.result.AddError(stepError(steps.Portal, err, false))
		r.logger.Warn("portal build failed", "error", err)
		return
	}
	r.result.AddArtifact(types.ArtifactPortalHTML, portal.IndexFile, steps.Portal)
	r.emit(steps.Portal, steps.CategoryPresentation, "Portal written", nil)

	if !r.plan.enabled[steps.Design] {
		return
	}
	r.begin(steps.Design, "Styling portal")

	designer := portal.NewDesigner(r.o.gateway, r.logger.With("step", steps.Design))
	var candidates []string
	if r.designModelConfigured() {
		candidates = Candidates(steps.Design, r.opts.Models, r.o.cfg)
	}
	sampling := Sampling(steps.Design, r.opts.Sampling, r.o.cfg)
	if _, err := designer.Design(ctx, r.opts.Job, r.opts.OutputDir, portal.DesignOptions{
		Candidates:  candidates,
		Temperature: sampling.Temperature,
		MaxTokens:   sampling.MaxTokens,
		Timeout:     r.o.cfg.ModelTimeout(),
	}); err != nil {
		r.result.AddError(stepError(steps.Design, err, false))
		return
	}

	portalOpts.Stylesheet = portal.StylesheetFile
	if _, err := builder.Build(r.set, r.report, r.opts.OutputDir, portalOpts); err != nil {
		r.result.AddError(stepError(steps.Design, err, false))
		return
	}
	r.result.AddArtifact(types.ArtifactPortalCSS, portal.StylesheetFile, steps.Design)
	r.emit(steps.Design, steps.CategoryPresentation, "Stylesheet written", nil)
}

// designModelConfigured reports whether a design model was chosen explicitly.
// Without one the built-in stylesheet is used and no model is called.
func (r *run) designModelConfigured() bool {
	return r.opts.Models.Steps.Design != "" || r.o.cfg.Models.Design != ""
}
