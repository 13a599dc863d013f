package llm

import (
	"fmt"
	"strings"
)

// Router maps a model identifier to the provider that serves it
type Router struct {
	providers map[string]Provider
	creds     Credentials
}

// NewRouter builds the standard providers from credentials
func NewRouter(creds Credentials) *Router {
	nvidiaURL := creds.NvidiaBaseURL
	if nvidiaURL == "" {
		nvidiaURL = DefaultNvidiaBaseURL
	}
	openRouterURL := creds.OpenRouterBaseURL
	if openRouterURL == "" {
		openRouterURL = DefaultOpenRouterBaseURL
	}

	return &Router{
		creds: creds,
		providers: map[string]Provider{
			ProviderGemini:     NewGeminiProvider(creds.GeminiAPIKey),
			ProviderOpenAI:     NewOpenAICompatProvider(ProviderOpenAI, creds.OpenAIAPIKey, creds.OpenAIBaseURL),
			ProviderNvidia:     NewOpenAICompatProvider(ProviderNvidia, creds.NvidiaAPIKey, nvidiaURL),
			ProviderOpenRouter: NewOpenAICompatProvider(ProviderOpenRouter, creds.OpenRouterAPIKey, openRouterURL),
			ProviderOllama:     NewOllamaProvider(creds.OllamaHost),
		},
	}
}

// NewRouterWithProviders builds a router over explicit providers keyed by name.
// Used by tests and by callers that bring their own endpoints.
func NewRouterWithProviders(creds Credentials, providers map[string]Provider) *Router {
	return &Router{creds: creds, providers: providers}
}

// Resolve returns the provider and bare model name for a model identifier.
// An explicit "provider:" prefix wins; otherwise the provider is inferred from the name.
func (r *Router) Resolve(model string) (Provider, string, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, "", fmt.Errorf("empty model identifier")
	}

	name, bare := r.providerFor(model)
	p, ok := r.providers[name]
	if !ok {
		return nil, "", fmt.Errorf("no provider registered for %q (model %s)", name, model)
	}
	return p, bare, nil
}

func (r *Router) providerFor(model string) (string, string) {
	if prefix, rest, ok := strings.Cut(model, ":"); ok {
		switch strings.ToLower(prefix) {
		case ProviderGemini, ProviderOpenAI, ProviderNvidia, ProviderOpenRouter, ProviderOllama:
			return strings.ToLower(prefix), rest
		}
	}

	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gemini"):
		return ProviderGemini, model
	case strings.HasPrefix(lower, "gpt-") || strings.HasPrefix(lower, "o1") ||
		strings.HasPrefix(lower, "o3") || strings.HasPrefix(lower, "o4"):
		return ProviderOpenAI, model
	case strings.HasSuffix(lower, ":free"):
		return ProviderOpenRouter, model
	case strings.Contains(lower, "/"):
		if r.creds.NvidiaAPIKey != "" || r.creds.OpenRouterAPIKey == "" {
			return ProviderNvidia, model
		}
		return ProviderOpenRouter, model
	}

	if r.creds.OllamaHost != "" {
		return ProviderOllama, model
	}
	return ProviderOpenAI, model
}
