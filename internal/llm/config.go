// Package llm provides the model gateway: provider routing and candidate fallback
// over chat-completion endpoints.
package llm

import (
	"os"
	"strings"
	"time"
)

// Provider names
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderNvidia     = "nvidia"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// Default endpoints for the OpenAI-compatible providers
const (
	DefaultNvidiaBaseURL     = "https://integrate.api.nvidia.com/v1"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOllamaHost        = "http://localhost:11434"
)

// DefaultTimeout bounds a single candidate call when Options.Timeout is unset
const DefaultTimeout = 180 * time.Second

// Credentials holds provider API keys and endpoints. Empty keys disable a provider.
type Credentials struct {
	NvidiaAPIKey      string `json:"nvidia_api_key,omitempty" yaml:"nvidia_api_key,omitempty"`
	NvidiaBaseURL     string `json:"nvidia_base_url,omitempty" yaml:"nvidia_base_url,omitempty"`
	OpenAIAPIKey      string `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty"`
	OpenAIBaseURL     string `json:"openai_base_url,omitempty" yaml:"openai_base_url,omitempty"`
	OpenRouterAPIKey  string `json:"openrouter_api_key,omitempty" yaml:"openrouter_api_key,omitempty"`
	OpenRouterBaseURL string `json:"openrouter_base_url,omitempty" yaml:"openrouter_base_url,omitempty"`
	GeminiAPIKey      string `json:"gemini_api_key,omitempty" yaml:"gemini_api_key,omitempty"`
	OllamaHost        string `json:"ollama_host,omitempty" yaml:"ollama_host,omitempty"`
}

// CredentialsFromEnv reads provider credentials from the environment
func CredentialsFromEnv() Credentials {
	return Credentials{
		NvidiaAPIKey:      os.Getenv("NVIDIA_API_KEY"),
		NvidiaBaseURL:     os.Getenv("NVIDIA_BASE_URL"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: os.Getenv("OPENROUTER_BASE_URL"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		OllamaHost:        os.Getenv("OLLAMA_HOST"),
	}
}

// Merge returns c with empty fields filled from other
func (c Credentials) Merge(other Credentials) Credentials {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Credentials{
		NvidiaAPIKey:      pick(c.NvidiaAPIKey, other.NvidiaAPIKey),
		NvidiaBaseURL:     pick(c.NvidiaBaseURL, other.NvidiaBaseURL),
		OpenAIAPIKey:      pick(c.OpenAIAPIKey, other.OpenAIAPIKey),
		OpenAIBaseURL:     pick(c.OpenAIBaseURL, other.OpenAIBaseURL),
		OpenRouterAPIKey:  pick(c.OpenRouterAPIKey, other.OpenRouterAPIKey),
		OpenRouterBaseURL: pick(c.OpenRouterBaseURL, other.OpenRouterBaseURL),
		GeminiAPIKey:      pick(c.GeminiAPIKey, other.GeminiAPIKey),
		OllamaHost:        pick(c.OllamaHost, other.OllamaHost),
	}
}

// DefaultFallbackChain is the hardcoded last link of the model resolution chain
func DefaultFallbackChain() []string {
	return []string{
		"deepseek-ai/deepseek-v3.1-terminus",
		"gpt-4o-mini",
		"z-ai/glm-4.5-air:free",
	}
}

// BuildCandidates puts primary first and appends the fallbacks, dropping blanks and duplicates
func BuildCandidates(primary string, fallbacks []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range append([]string{primary}, fallbacks...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
