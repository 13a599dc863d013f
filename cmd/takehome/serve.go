package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/db"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
	"github.com/chulminlee01/mrt-tech-test/internal/server"
)

type serveFlags struct {
	port       int
	outputRoot string
	count      int
	model      string
}

func newServeCommand(g *globalFlags) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Starts an HTTP server that accepts generation jobs on POST /api/generate, reports them on
/api/status/{id} (plus an SSE progress stream) and serves finished packages under /output/.

Jobs are stored in PostgreSQL when DATABASE_URL is set and in memory otherwise.
Setting JWT_SECRET requires a bearer token on /api/*.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g, f)
		},
	}

	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to listen on (default from config, PORT or 8080)")
	cmd.Flags().StringVar(&f.outputRoot, "output-root", "", "Root directory for job output (default from config or ./output)")
	cmd.Flags().IntVarP(&f.count, "assignments-count", "n", server.DefaultAssignmentCount, "Assignments per job when a request does not set one")
	cmd.Flags().StringVar(&f.model, "model", "", "Model for every step without a configured step model")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, f *serveFlags) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if f.port != 0 {
		cfg.Port = f.port
	}
	if f.outputRoot != "" {
		cfg.OutputRoot = f.outputRoot
	}
	logger, err := finishConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	jwtCfg, err := config.JWTConfigFromEnv()
	if err != nil {
		return fmt.Errorf("invalid JWT configuration: %w", err)
	}

	var store db.JobStore = db.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		store = database
		logger.Info("using PostgreSQL job store")
	}

	orch, err := newOrchestrator(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:            cfg.Port,
		OutputRoot:      cfg.OutputRoot,
		AssignmentCount: f.count,
		Models:          pipeline.ModelOverrides{Run: f.model},
		JWT:             jwtCfg,
	}, orch, store, logger)
	return srv.Start(ctx)
}
