package bulk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// Row outcomes
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// MaxDefaultWorkers caps the default worker count
const MaxDefaultWorkers = 8

// Pipeline runs one job. *pipeline.Orchestrator satisfies it.
type Pipeline interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*types.RunResult, error)
}

// Defaults fill what a row leaves blank. Skip flags and WithDesigner apply to every row.
type Defaults struct {
	CompanyName     string
	Models          pipeline.ModelOverrides
	Topic           string
	AssignmentCount int

	WithDesigner    bool
	SkipResearch    bool
	SkipAssignments bool
	SkipDatasets    bool
	SkipStarterCode bool
	SkipPortal      bool
}

// Options configures a Runner
type Options struct {
	OutputRoot string
	Defaults   Defaults
	Logger     *slog.Logger
	Stdout     io.Writer // per-row outcome lines; nil discards them
}

// Result is the summary record of one row
type Result struct {
	Row       int    `json:"row_index"`
	Team      string `json:"team"`
	JobRole   string `json:"job_role"`
	JobLevel  string `json:"job_level"`
	Language  string `json:"language"`
	OutputDir string `json:"output_dir"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	RunID     string `json:"run_id,omitempty"`

	Run *types.RunResult `json:"-"`
}

// Runner fans rows out to a bounded pool of pipeline runs
type Runner struct {
	pipeline Pipeline
	opts     Options
	logger   *slog.Logger
	out      io.Writer
}

// NewRunner creates a Runner
func NewRunner(p Pipeline, opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	out := opts.Stdout
	if out == nil {
		out = io.Discard
	}
	if opts.OutputRoot == "" {
		opts.OutputRoot = config.DefaultOutputRoot
	}
	return &Runner{pipeline: p, opts: opts, logger: logger, out: out}
}

// DefaultConcurrency is min(8, 2×GOMAXPROCS)
func DefaultConcurrency() int {
	return min(MaxDefaultWorkers, 2*runtime.GOMAXPROCS(0))
}

// Run executes every row without an external link, at most maxConcurrency at a time
// (non-positive means DefaultConcurrency). A failed row never stops its siblings.
// Results are returned in row order.
func (r *Runner) Run(ctx context.Context, rows []Row, maxConcurrency int) []Result {
	results := make([]Result, len(rows))
	folders := r.assignFolders(rows)

	pending := 0
	for i, row := range rows {
		results[i] = Result{
			Row:       row.Index,
			Team:      row.Team,
			JobRole:   row.JobRole,
			JobLevel:  row.Level,
			Language:  row.Language,
			OutputDir: folders[i],
		}
		if row.HasExternalLink() {
			results[i].Status = StatusSkipped
			results[i].OutputDir = ""
			r.logger.Info("row skipped, external link present", "row", row.Index, "team", row.Team)
			continue
		}
		pending++
	}
	if pending == 0 {
		return results
	}

	workers := maxConcurrency
	if workers <= 0 {
		workers = DefaultConcurrency()
	}
	workers = min(workers, pending)
	r.logger.Info("bulk run started", "rows", len(rows), "pending", pending, "workers", workers)
	fmt.Fprintf(r.out, "Processing %d row(s) with %d worker(s)\n", pending, workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range rows {
		if results[i].Status == StatusSkipped {
			continue
		}
		g.Go(func() error {
			r.runRow(ctx, rows[i], &results[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// assignFolders computes each row's output directory, suffixing repeats so no two runs share one
func (r *Runner) assignFolders(rows []Row) []string {
	used := make(map[string]int)
	dirs := make([]string, len(rows))
	for i, row := range rows {
		if row.HasExternalLink() {
			continue
		}
		folder := OutputFolder(row)
		used[folder]++
		if n := used[folder]; n > 1 {
			folder = fmt.Sprintf("%s_%d", folder, n)
		}
		dirs[i] = filepath.Join(r.opts.OutputRoot, folder)
	}
	return dirs
}

func (r *Runner) runRow(ctx context.Context, row Row, res *Result) {
	logger := r.logger.With("row", row.Index, "team", row.Team)

	opts, err := r.runOptions(row, res.OutputDir)
	if err != nil {
		r.fail(logger, row, res, err)
		return
	}

	run, err := r.pipeline.Run(ctx, opts)
	res.Run = run
	if run != nil {
		res.RunID = run.RunID.String()
	}
	if err != nil {
		r.fail(logger, row, res, err)
		return
	}

	res.Status = StatusCompleted
	logger.Info("row completed", "output_dir", res.OutputDir)
	fmt.Fprintf(r.out, "[completed] %s / %s -> %s\n", row.Team, row.JobRole, res.OutputDir)
}

func (r *Runner) fail(logger *slog.Logger, row Row, res *Result, err error) {
	res.Status = StatusFailed
	res.Error = err.Error()
	logger.Warn("row failed", "error", err)
	fmt.Fprintf(r.out, "[failed] %s / %s: %v\n", row.Team, row.JobRole, err)
}

// runOptions builds the pipeline options of a row. Row values win over Defaults.
func (r *Runner) runOptions(row Row, outputDir string) (pipeline.RunOptions, error) {
	d := r.opts.Defaults

	level, err := types.ParseLevel(row.Level)
	if err != nil {
		return pipeline.RunOptions{}, err
	}
	job := types.JobSpec{
		Role:        row.JobRole,
		Level:       level,
		Language:    row.Language,
		CompanyName: d.CompanyName,
		Topic:       firstNonEmpty(row.Topic, d.Topic),
	}.WithDefaults()

	models := pipeline.ModelOverrides{
		Run: firstNonEmpty(row.Model, d.Models.Run),
		Steps: config.StepModels{
			Research:    row.ResearchModel,
			Assignments: row.QuestionModel,
			Starter:     row.StarterModel,
			Design:      row.DesignerModel,
		}.Merge(d.Models.Steps),
	}

	return pipeline.RunOptions{
		Job:             job,
		OutputDir:       outputDir,
		SkipResearch:    d.SkipResearch,
		SkipAssignments: d.SkipAssignments,
		SkipDatasets:    d.SkipDatasets,
		SkipStarterCode: d.SkipStarterCode,
		SkipPortal:      d.SkipPortal,
		WithDesigner:    d.WithDesigner || row.WithDesigner,
		AssignmentCount: d.AssignmentCount,
		Models:          models,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Counts tallies results by status
func Counts(results []Result) (completed, failed, skipped int) {
	for _, res := range results {
		switch res.Status {
		case StatusCompleted:
			completed++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return completed, failed, skipped
}

// WriteSummary writes results as indented JSON
func WriteSummary(results []Result, path string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bulk summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write bulk summary: %w", err)
	}
	return nil
}
