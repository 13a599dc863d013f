package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chulminlee01/mrt-tech-test/internal/bulk"
	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/observability"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// SummaryFile is the default bulk summary name under the output root
const SummaryFile = "bulk_summary.json"

type bulkFlags struct {
	sheetCSV   string
	sheetURL   string
	outputRoot string
	workers    int
	company    string
	topic      string
	count      int
	model      string
	stepModels config.StepModels
	summary    string
	skip       skipFlags
}

func newBulkCommand(g *globalFlags) *cobra.Command {
	f := &bulkFlags{}
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Generate one package per row of a job sheet",
		Long: `Reads a job sheet (a local CSV export or a Google Sheets URL) and runs the pipeline for
every row without an external link, with bounded concurrency. Each row gets its own
<role>_<level>_<lang> folder under the output root. A failed row never stops the others.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBulk(cmd, g, f)
		},
	}

	cmd.Flags().StringVar(&f.sheetCSV, "sheet-csv", "", "Path to a CSV export of the job sheet")
	cmd.Flags().StringVar(&f.sheetURL, "sheet-url", "", "Google Sheets URL (the sheet must be shared for viewing)")
	cmd.MarkFlagsMutuallyExclusive("sheet-csv", "sheet-url")
	cmd.MarkFlagsOneRequired("sheet-csv", "sheet-url")
	cmd.Flags().StringVar(&f.outputRoot, "output-root", "", "Root directory for row folders (default from config or ./output)")
	cmd.Flags().IntVarP(&f.workers, "max-workers", "w", 0, "Rows run concurrently (default min(8, 2xCPU))")
	cmd.Flags().StringVar(&f.company, "default-company", types.DefaultCompanyName, "Company name for every row")
	cmd.Flags().StringVar(&f.topic, "default-topic", "", "Topic for rows without one")
	cmd.Flags().IntVarP(&f.count, "assignments-count", "n", 0, "Assignments per row, 1 to 5 (default from config or 5)")
	cmd.Flags().StringVar(&f.model, "default-model", "", "Model for rows and steps without an override")
	cmd.Flags().StringVar(&f.stepModels.Research, "default-research-model", "", "Research model for rows without one")
	cmd.Flags().StringVar(&f.stepModels.Assignments, "default-question-model", "", "Assignment model for rows without one")
	cmd.Flags().StringVar(&f.stepModels.Starter, "default-starter-model", "", "Starter code model for rows without one")
	cmd.Flags().StringVar(&f.stepModels.Design, "default-designer-model", "", "Design model for rows without one")
	cmd.Flags().StringVar(&f.summary, "summary", "", "Path of the JSON summary (default <output_root>/"+SummaryFile+")")
	f.skip.register(cmd)
	return cmd
}

func runBulk(cmd *cobra.Command, g *globalFlags, f *bulkFlags) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if f.outputRoot != "" {
		cfg.OutputRoot = f.outputRoot
	}
	if cmd.Flags().Changed("assignments-count") {
		cfg.AssignmentCount = f.count
	}
	logger, err := finishConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if f.workers < 0 {
		return fmt.Errorf("--max-workers must be positive, got %d", f.workers)
	}

	rows, err := loadRows(cmd, f)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("job sheet has no rows with a team")
	}

	out := cmd.OutOrStdout()
	// step lines of concurrent runs would interleave, so the orchestrator stays quiet
	orch, err := newOrchestrator(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	workers := f.workers
	if workers == 0 {
		workers = bulk.DefaultConcurrency()
	}
	fmt.Fprintf(out, "Processing %d row(s) with up to %d worker(s)\n", len(rows), workers)

	runner := bulk.NewRunner(orch, bulk.Options{
		OutputRoot: cfg.OutputRoot,
		Logger:     logger,
		Stdout:     out,
		Defaults: bulk.Defaults{
			CompanyName:     f.company,
			Topic:           f.topic,
			AssignmentCount: cfg.AssignmentCount,
			Models:          pipeline.ModelOverrides{Run: f.model, Steps: f.stepModels},
			WithDesigner:    f.skip.withDesigner,
			SkipResearch:    f.skip.research,
			SkipAssignments: f.skip.assignments,
			SkipDatasets:    f.skip.datasets,
			SkipStarterCode: f.skip.starterCode,
			SkipPortal:      f.skip.portal,
		},
	})
	results := runner.Run(ctx, rows, workers)

	observability.NewPrinter(out).PrintBulkSummary(results)

	summaryPath := f.summary
	if summaryPath == "" {
		summaryPath = filepath.Join(cfg.OutputRoot, SummaryFile)
	}
	if err := bulk.WriteSummary(results, summaryPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Summary written to %s\n", summaryPath)

	if _, failed, _ := bulk.Counts(results); failed > 0 {
		return fmt.Errorf("%d of %d row(s) failed", failed, len(results))
	}
	return nil
}

func loadRows(cmd *cobra.Command, f *bulkFlags) ([]bulk.Row, error) {
	if f.sheetURL != "" {
		return bulk.FetchSheet(cmd.Context(), f.sheetURL)
	}

	file, err := os.Open(f.sheetCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet CSV: %w", err)
	}
	defer file.Close()
	return bulk.ParseCSV(file)
}
