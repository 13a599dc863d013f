package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Options controls a single Complete call
type Options struct {
	// Candidates are tried in order, one attempt each
	Candidates  []string
	Temperature float64
	MaxTokens   int
	// MaxIterations bounds any tool-using sub-loop of a provider
	MaxIterations int
	// Timeout applies to each candidate separately. Zero uses DefaultTimeout.
	Timeout time.Duration
	JSON    bool
	System  string
}

// Completion is the result of a successful Complete call
type Completion struct {
	Text  string
	Model string
	// Failures lists the candidates that failed before Model succeeded
	Failures []CandidateFailure
}

// Completer is the interface steps depend on. *Gateway implements it.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (Completion, error)
}

// Gateway calls model candidates in order until one succeeds.
// It holds no per-call state and is safe for concurrent use.
type Gateway struct {
	router *Router
	logger *slog.Logger
}

// NewGateway creates a gateway over router. A nil logger discards logs.
func NewGateway(router *Router, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{router: router, logger: logger}
}

// Complete sends prompt to each candidate in turn. A request error, an unparseable
// response or a timeout moves on to the next candidate; there is no retry within a
// candidate. When every candidate fails the error is a *GatewayExhaustedError.
func (g *Gateway) Complete(ctx context.Context, prompt string, opts Options) (Completion, error) {
	if len(opts.Candidates) == 0 {
		return Completion{}, ErrNoCandidates
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	req := Request{
		Prompt:        prompt,
		System:        opts.System,
		Temperature:   opts.Temperature,
		MaxTokens:     opts.MaxTokens,
		MaxIterations: opts.MaxIterations,
		JSON:          opts.JSON,
	}

	var failures []CandidateFailure
	for _, candidate := range opts.Candidates {
		text, err := g.attempt(ctx, candidate, req, timeout)
		if err == nil {
			if len(failures) > 0 {
				g.logger.Info("model fallback succeeded", "model", candidate, "failed_candidates", len(failures))
			}
			return Completion{Text: text, Model: candidate, Failures: failures}, nil
		}

		g.logger.Warn("model candidate failed", "model", candidate, "error", err)
		failures = append(failures, CandidateFailure{Model: candidate, Reason: err.Error()})
	}

	return Completion{}, &GatewayExhaustedError{Failures: failures}
}

func (g *Gateway) attempt(ctx context.Context, candidate string, req Request, timeout time.Duration) (string, error) {
	provider, model, err := g.router.Resolve(candidate)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := provider.Generate(callCtx, model, req)
		done <- result{text: text, err: err}
	}()

	// Providers are not trusted to honour the deadline themselves.
	select {
	case r := <-done:
		if r.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out after %s: %w", provider.Name(), timeout, r.err)
		}
		return r.text, r.err
	case <-callCtx.Done():
		return "", fmt.Errorf("%s timed out after %s", provider.Name(), timeout)
	}
}
