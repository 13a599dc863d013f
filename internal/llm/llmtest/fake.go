// Package llmtest provides a scripted llm.Completer for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/chulminlee01/mrt-tech-test/internal/llm"
)

// Call records one Complete invocation
type Call struct {
	Prompt  string
	Options llm.Options
}

// Response is one scripted reply. A non-nil Err is returned instead of Text.
type Response struct {
	Text string
	Err  error
}

// Completer replays Responses in order. Once the script runs out, Fallback is
// used for every further call; a nil Fallback exhausts the gateway.
type Completer struct {
	mu        sync.Mutex
	responses []Response
	Fallback  *Response
	calls     []Call
}

// New returns a Completer that replies with responses in order
func New(responses ...Response) *Completer {
	return &Completer{responses: responses}
}

// Always returns a Completer that replies with text to every call
func Always(text string) *Completer {
	return &Completer{Fallback: &Response{Text: text}}
}

// Exhausted returns a Completer whose every call fails as if all candidates failed
func Exhausted() *Completer {
	return &Completer{}
}

// Complete implements llm.Completer
func (c *Completer) Complete(_ context.Context, prompt string, opts llm.Options) (llm.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Prompt: prompt, Options: opts})
	if len(opts.Candidates) == 0 {
		return llm.Completion{}, llm.ErrNoCandidates
	}

	var resp *Response
	if len(c.responses) > 0 {
		resp = &c.responses[0]
		c.responses = c.responses[1:]
	} else {
		resp = c.Fallback
	}

	if resp == nil {
		return llm.Completion{}, &llm.GatewayExhaustedError{Failures: failuresFor(opts.Candidates, "scripted failure")}
	}
	if resp.Err != nil {
		return llm.Completion{}, resp.Err
	}
	return llm.Completion{Text: resp.Text, Model: opts.Candidates[0]}, nil
}

// Calls returns a copy of the recorded calls
func (c *Completer) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

func failuresFor(candidates []string, reason string) []llm.CandidateFailure {
	failures := make([]llm.CandidateFailure, 0, len(candidates))
	for _, m := range candidates {
		failures = append(failures, llm.CandidateFailure{Model: m, Reason: reason})
	}
	return failures
}
