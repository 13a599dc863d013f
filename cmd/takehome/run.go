package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chulminlee01/mrt-tech-test/internal/bulk"
	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/observability"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// skipFlags are the step toggles shared by run and bulk
type skipFlags struct {
	research     bool
	assignments  bool
	datasets     bool
	starterCode  bool
	portal       bool
	withDesigner bool
}

func (s *skipFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&s.research, "skip-research", false, "Skip the research step")
	cmd.Flags().BoolVar(&s.assignments, "skip-assignments", false, "Reuse assignments.json from the output directory instead of generating")
	cmd.Flags().BoolVar(&s.datasets, "skip-datasets", false, "Skip dataset synthesis")
	cmd.Flags().BoolVar(&s.starterCode, "skip-starter-code", false, "Skip starter code generation")
	cmd.Flags().BoolVar(&s.portal, "skip-portal", false, "Skip portal assembly")
	cmd.Flags().BoolVar(&s.withDesigner, "with-designer", false, "Generate a stylesheet with the design model")
}

// samplingFlags are the per-step temperature and token limit overrides
type samplingFlags struct {
	values config.StepSamplings
}

func (s *samplingFlags) register(cmd *cobra.Command) {
	for _, step := range []struct {
		flag     string
		label    string
		sampling *config.StepSampling
	}{
		{"research", "the research step", &s.values.Research},
		{"question", "assignment generation", &s.values.Assignments},
		{"starter", "starter code", &s.values.Starter},
		{"designer", "the portal stylesheet", &s.values.Design},
	} {
		cmd.Flags().Float64Var(&step.sampling.Temperature, step.flag+"-temperature", 0, "Sampling temperature for "+step.label+" (default per step)")
		cmd.Flags().IntVar(&step.sampling.MaxTokens, step.flag+"-max-tokens", 0, "Maximum output tokens for "+step.label)
	}
}

type runFlags struct {
	role       string
	level      string
	language   string
	company    string
	topic      string
	outputDir  string
	count      int
	model      string
	stepModels config.StepModels
	sampling   samplingFlags
	siteTitle  string
	skip       skipFlags
	verbose    bool
}

func newRunCommand(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate one take-home package",
		Long: `Runs research -> assignments -> datasets -> starter code -> portal for one job.

Configuration can be loaded with --config. Command-line flags override config file values,
which override environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSingle(cmd, g, f)
		},
	}

	cmd.Flags().StringVarP(&f.role, "job-role", "r", "", "Job role, e.g. \"iOS Developer\" (required)")
	cmd.Flags().StringVarP(&f.level, "job-level", "l", "", "Job level: Junior, Mid, Senior or Principal (required)")
	cmd.Flags().StringVar(&f.language, "language", types.DefaultLanguage, "Output language")
	cmd.Flags().StringVar(&f.company, "company", types.DefaultCompanyName, "Company name")
	cmd.Flags().StringVar(&f.topic, "topic", "", "Optional topic focus for the assignments")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Output directory (default <output_root>/<role>_<level>_<lang>)")
	cmd.Flags().IntVarP(&f.count, "assignments-count", "n", 0, "Number of assignments, 1 to 5 (default from config or 5)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model for every step without a step override")
	cmd.Flags().StringVar(&f.stepModels.Research, "research-model", "", "Model for the research step")
	cmd.Flags().StringVar(&f.stepModels.Assignments, "question-model", "", "Model for assignment generation")
	cmd.Flags().StringVar(&f.stepModels.Starter, "starter-model", "", "Model for starter code")
	cmd.Flags().StringVar(&f.stepModels.Design, "designer-model", "", "Model for the portal stylesheet")
	cmd.Flags().StringVar(&f.siteTitle, "site-title", "", "Portal page title (default \"<company> <localized title>\")")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print the research brief and assignments as they are produced")
	f.sampling.register(cmd)
	f.skip.register(cmd)
	return cmd
}

func runSingle(cmd *cobra.Command, g *globalFlags, f *runFlags) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("assignments-count") {
		cfg.AssignmentCount = f.count
	}
	cfg.Sampling = f.sampling.values.Merge(cfg.Sampling)
	if cmd.Flags().Changed("site-title") {
		cfg.SiteTitle = f.siteTitle
	}
	logger, err := finishConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if f.role == "" {
		return fmt.Errorf("--job-role is required")
	}
	level, err := types.ParseLevel(f.level)
	if err != nil {
		return fmt.Errorf("invalid --job-level: %w", err)
	}
	job := types.JobSpec{
		Role:        f.role,
		Level:       level,
		Language:    f.language,
		CompanyName: f.company,
		Topic:       f.topic,
	}.WithDefaults()

	outputDir := f.outputDir
	if outputDir == "" {
		outputDir = filepath.Join(cfg.OutputRoot, bulk.OutputFolder(bulk.Row{
			JobRole:  job.Role,
			Level:    string(job.Level),
			Language: job.Language,
		}))
	}

	out := cmd.OutOrStdout()
	orch, err := newOrchestrator(ctx, cfg, logger, out)
	if err != nil {
		return err
	}

	opts := pipeline.RunOptions{
		Job:             job,
		OutputDir:       outputDir,
		SkipResearch:    f.skip.research,
		SkipAssignments: f.skip.assignments,
		SkipDatasets:    f.skip.datasets,
		SkipStarterCode: f.skip.starterCode,
		SkipPortal:      f.skip.portal,
		WithDesigner:    f.skip.withDesigner,
		AssignmentCount: cfg.AssignmentCount,
		Models:          pipeline.ModelOverrides{Run: f.model, Steps: f.stepModels},
	}

	printer := observability.NewPrinter(out)
	if f.verbose {
		opts.OnProgress = func(event pipeline.ProgressEvent) {
			switch content := event.Content.(type) {
			case *types.ResearchReport:
				printer.PrintResearch(content)
			case *types.AssignmentSet:
				printer.PrintAssignments(content)
			}
		}
	}

	fmt.Fprintf(out, "Generating %s take-home package for %s (%s)\n", job.Title(), job.CompanyName, job.Language)
	result, runErr := orch.Run(ctx, opts)
	if pipeline.IsConfigurationError(runErr) {
		// nothing ran, so there is no summary to show
		return runErr
	}
	printer.PrintRunResult(result)
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(out, "Output written to %s\n", outputDir)
	return nil
}
