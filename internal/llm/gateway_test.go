package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns canned responses keyed by model name
type fakeProvider struct {
	name      string
	responses map[string]string
	errs      map[string]error
	delay     time.Duration

	mu       sync.Mutex
	calls    []string
	requests []Request
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, model string, req Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, model)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := f.errs[model]; ok {
		return "", err
	}
	return f.responses[model], nil
}

func newFakeGateway(p *fakeProvider) *Gateway {
	router := NewRouterWithProviders(Credentials{}, map[string]Provider{ProviderOpenAI: p})
	return NewGateway(router, nil)
}

func TestGateway_FallbackRecordsFailures(t *testing.T) {
	p := &fakeProvider{
		name:      ProviderOpenAI,
		responses: map[string]string{"C": "from C"},
		errs: map[string]error{
			"A": errors.New("status 500"),
			"B": errors.New("status 429"),
		},
	}
	gw := newFakeGateway(p)

	got, err := gw.Complete(context.Background(), "hello", Options{Candidates: []string{"openai:A", "openai:B", "openai:C"}})
	require.NoError(t, err)

	assert.Equal(t, "from C", got.Text)
	assert.Equal(t, "openai:C", got.Model)
	require.Len(t, got.Failures, 2)
	assert.Equal(t, "openai:A", got.Failures[0].Model)
	assert.Contains(t, got.Failures[0].Reason, "status 500")
	assert.Equal(t, "openai:B", got.Failures[1].Model)
	assert.Contains(t, got.Failures[1].Reason, "status 429")
	assert.Equal(t, []string{"A", "B", "C"}, p.calls, "each candidate is attempted exactly once")
}

func TestGateway_AllCandidatesFail(t *testing.T) {
	p := &fakeProvider{
		name: ProviderOpenAI,
		errs: map[string]error{"A": errors.New("down"), "B": errors.New("also down")},
	}
	gw := newFakeGateway(p)

	_, err := gw.Complete(context.Background(), "hello", Options{Candidates: []string{"openai:A", "openai:B"}})
	require.Error(t, err)

	var exhausted *GatewayExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, exhausted.Failures, 2)
	assert.True(t, IsGatewayExhausted(err))
	assert.Contains(t, err.Error(), "all 2 model candidates failed")
}

func TestGateway_EmptyCandidates(t *testing.T) {
	gw := newFakeGateway(&fakeProvider{name: ProviderOpenAI})

	_, err := gw.Complete(context.Background(), "hello", Options{})
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.False(t, IsGatewayExhausted(err))
}

func TestGateway_EmptyTextIsSuccess(t *testing.T) {
	p := &fakeProvider{name: ProviderOpenAI, responses: map[string]string{"A": ""}}
	gw := newFakeGateway(p)

	got, err := gw.Complete(context.Background(), "hello", Options{Candidates: []string{"openai:A", "openai:B"}})
	require.NoError(t, err)
	assert.Equal(t, "", got.Text)
	assert.Equal(t, "openai:A", got.Model)
	assert.Equal(t, []string{"A"}, p.calls)
}

func TestGateway_TimeoutFallsBack(t *testing.T) {
	slow := &fakeProvider{name: ProviderOllama, delay: time.Second, responses: map[string]string{"slow": "late"}}
	fast := &fakeProvider{name: ProviderOpenAI, responses: map[string]string{"fast": "ok"}}
	router := NewRouterWithProviders(Credentials{}, map[string]Provider{
		ProviderOllama: slow,
		ProviderOpenAI: fast,
	})
	gw := NewGateway(router, nil)

	got, err := gw.Complete(context.Background(), "hello", Options{
		Candidates: []string{"ollama:slow", "openai:fast"},
		Timeout:    20 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Text)
	require.Len(t, got.Failures, 1)
	assert.Contains(t, got.Failures[0].Reason, "timed out")
}

func TestGateway_UnroutableCandidateIsFailure(t *testing.T) {
	p := &fakeProvider{name: ProviderOpenAI, responses: map[string]string{"B": "fine"}}
	gw := newFakeGateway(p)

	got, err := gw.Complete(context.Background(), "hello", Options{Candidates: []string{"gemini:A", "openai:B"}})
	require.NoError(t, err)
	require.Len(t, got.Failures, 1)
	assert.Contains(t, got.Failures[0].Reason, "no provider registered")
}

func TestGateway_PassesRequestOptions(t *testing.T) {
	p := &fakeProvider{name: ProviderOpenAI, responses: map[string]string{"A": "{}"}}
	gw := newFakeGateway(p)

	_, err := gw.Complete(context.Background(), "prompt", Options{
		Candidates:  []string{"openai:A"},
		Temperature: 0.2,
		MaxTokens:   512,
		JSON:        true,
		System:      "be terse",
	})
	require.NoError(t, err)
	require.Len(t, p.requests, 1)
	assert.Equal(t, Request{Prompt: "prompt", System: "be terse", Temperature: 0.2, MaxTokens: 512, JSON: true}, p.requests[0])
}

func TestGateway_ConcurrentUse(t *testing.T) {
	p := &fakeProvider{name: ProviderOpenAI, responses: map[string]string{"A": "ok"}}
	gw := newFakeGateway(p)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := gw.Complete(context.Background(), "x", Options{Candidates: []string{"openai:A"}})
			assert.NoError(t, err)
			assert.Equal(t, "ok", got.Text)
		}()
	}
	wg.Wait()
	assert.Len(t, p.calls, 16)
}

func TestProviders_MissingCredentials(t *testing.T) {
	ctx := context.Background()

	_, err := NewGeminiProvider("").Generate(ctx, "gemini-2.5-flash", Request{Prompt: "x"})
	assert.ErrorContains(t, err, "no credentials for gemini")

	_, err = NewOpenAICompatProvider(ProviderNvidia, "", DefaultNvidiaBaseURL).Generate(ctx, "m", Request{Prompt: "x"})
	assert.ErrorContains(t, err, "no credentials for nvidia")
}
