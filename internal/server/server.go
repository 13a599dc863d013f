// Package server provides the HTTP API for asynchronous take-home generation.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/chulminlee01/mrt-tech-test/internal/config"
	"github.com/chulminlee01/mrt-tech-test/internal/db"
	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
	"github.com/chulminlee01/mrt-tech-test/internal/server/middleware"
	"github.com/chulminlee01/mrt-tech-test/internal/server/ratelimit"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// WebOutputDir is the directory under the output root that holds one folder per API job
const WebOutputDir = "web"

// DefaultAssignmentCount is the assignment count of API jobs that do not set one
const DefaultAssignmentCount = 1

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*types.RunResult, error)
}

// Config holds server configuration
type Config struct {
	Port       int
	OutputRoot string
	// AssignmentCount applies to requests without assignment_count
	AssignmentCount int
	Models          pipeline.ModelOverrides
	// JWT enables bearer authentication on /api/* when non-nil
	JWT       *config.JWTConfig
	RateLimit *ratelimit.Config
}

// Server represents the HTTP server
type Server struct {
	cfg         Config
	runner      Runner
	store       db.JobStore
	logger      *slog.Logger
	progress    *progressBroker
	rateLimiter *ratelimit.Limiter
	handler     http.Handler
	httpServer  *http.Server

	// jobCtx outlives individual requests; it is cancelled only when the
	// server gives up waiting for running jobs.
	jobCtx    context.Context
	cancelJob context.CancelFunc
	jobs      sync.WaitGroup
}

// New creates a server. A nil store keeps jobs in memory.
func New(cfg Config, runner Runner, store db.JobStore, logger *slog.Logger) *Server {
	if store == nil {
		store = db.NewMemoryStore()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.AssignmentCount == 0 {
		cfg.AssignmentCount = DefaultAssignmentCount
	}
	if cfg.OutputRoot == "" {
		cfg.OutputRoot = config.DefaultOutputRoot
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:         cfg,
		runner:      runner,
		store:       store,
		logger:      logger,
		progress:    newProgressBroker(),
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		jobCtx:      jobCtx,
		cancelJob:   cancel,
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/generate", s.handleGenerate)
	api.HandleFunc("GET /api/status/{id}", s.handleStatus)
	api.HandleFunc("GET /api/status/{id}/stream", s.handleStream)
	api.HandleFunc("GET /api/jobs", s.handleListJobs)

	var apiHandler http.Handler = api
	if cfg.JWT != nil {
		apiHandler = middleware.AuthMiddleware(NewJWTService(cfg.JWT).AsTokenValidator())(api)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /output/", http.StripPrefix("/output/", outputFiles(cfg.OutputRoot)))

	s.handler = s.withLogging(s.withCORS(ratelimit.Middleware(s.rateLimiter, logger)(mux)))
	return s
}

// Handler returns the root handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then drains requests and waits for
// running jobs up to the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// no WriteTimeout: progress streams stay open for the whole run
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr),
			slog.String("output_root", s.cfg.OutputRoot), slog.Bool("auth", s.cfg.JWT != nil))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.Close(shutdownCtx)
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close waits for running jobs until ctx expires, then cancels them.
func (s *Server) Close(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("cancelling unfinished jobs")
		s.cancelJob()
		<-done
	}
	s.cancelJob()
	s.rateLimiter.Stop()
}

// jobOutputDir is where a job's package is written
func (s *Server) jobOutputDir(id fmt.Stringer) string {
	return filepath.Join(s.cfg.OutputRoot, WebOutputDir, id.String())
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logs. It keeps
// Flush so progress streams work behind it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if pinger, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(r.Context()); err != nil {
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFrom writes err with the status HTTPStatus maps it to
func (s *Server) errorFrom(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	s.errorResponse(w, status, err.Error())
}
