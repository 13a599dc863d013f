package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	logLevel   string
}

// newOrchestrator builds the pipeline for a command. Tests replace it.
var newOrchestrator = func(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*pipeline.Orchestrator, error) {
	return pipeline.NewFromConfig(ctx, cfg, logger, stdout)
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "takehome",
		Short: "Recruitment take-home package generator",
		Long: `takehome generates complete take-home assignment packages for a job role: a research
brief, assignments, synthetic datasets, starter code and a static candidate portal.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to a JSON or YAML config file (flags override its values)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error (default from LOG_LEVEL or info)")

	root.AddCommand(newRunCommand(g), newBulkCommand(g), newServeCommand(g), newTokenCommand())
	return root
}

// loadConfig reads the config file when given and fills blanks from the environment.
// Command flags are applied afterwards by the caller, which then calls finishConfig.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	var cfg config.Config
	if g.configPath != "" {
		loaded, err := config.LoadConfig(g.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	merged := cfg.MergeWithDefaults(config.FromEnv())
	if g.logLevel != "" {
		merged.LogLevel = g.logLevel
	}
	return &merged, nil
}

// finishConfig validates the merged config and builds the process logger
func finishConfig(cfg *config.Config, stderr io.Writer) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return config.NewLogger(stderr, level), nil
}
