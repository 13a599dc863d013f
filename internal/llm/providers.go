package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/api/option"
)

// Request is a single completion request sent to one provider
type Request struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
	// MaxIterations caps tool-use rounds for providers that run an agent loop.
	// The single-shot providers below ignore it.
	MaxIterations int
	JSON          bool
}

// Provider is an abstraction over a chat-completion endpoint
type Provider interface {
	// Name identifies the provider in failure reasons and logs
	Name() string
	// Generate sends one request for model and returns the raw response text
	Generate(ctx context.Context, model string, req Request) (string, error)
}

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	apiKey string
}

// NewGeminiProvider creates a Gemini provider. The client is created per call so the
// provider holds no connection state.
func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey}
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) Generate(ctx context.Context, model string, req Request) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("no credentials for %s", ProviderGemini)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", &ExternalServiceError{Service: ProviderGemini, Message: "failed to create client", Cause: err}
	}
	defer func() { _ = client.Close() }()

	gm := client.GenerativeModel(model)
	gm.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		gm.ResponseMIMEType = "application/json"
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", &ExternalServiceError{Service: ProviderGemini, Message: "failed to generate content", Cause: err}
	}
	return extractTextFromResponse(resp)
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	return strings.Join(parts, ""), nil
}

// OpenAICompatProvider implements Provider for OpenAI-compatible endpoints
// (OpenAI, NVIDIA NIM, OpenRouter).
type OpenAICompatProvider struct {
	name    string
	apiKey  string
	baseURL string
}

// NewOpenAICompatProvider creates a provider for an OpenAI-compatible endpoint.
// An empty baseURL uses the OpenAI default.
func NewOpenAICompatProvider(name, apiKey, baseURL string) *OpenAICompatProvider {
	return &OpenAICompatProvider{name: name, apiKey: apiKey, baseURL: baseURL}
}

func (p *OpenAICompatProvider) Name() string { return p.name }

func (p *OpenAICompatProvider) Generate(ctx context.Context, model string, req Request) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("no credentials for %s", p.name)
	}

	opts := []openai.Option{
		openai.WithToken(p.apiKey),
		openai.WithModel(model),
	}
	if p.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(p.baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return "", &ExternalServiceError{Service: p.name, Message: "failed to create client", Cause: err}
	}

	// NVIDIA and OpenRouter models reject response_format inconsistently, so JSON mode is OpenAI-only.
	return generateChat(ctx, p.name, client, req, req.JSON && p.name == ProviderOpenAI)
}

// OllamaProvider implements Provider for a local Ollama server
type OllamaProvider struct {
	host string
}

// NewOllamaProvider creates an Ollama provider. An empty host uses DefaultOllamaHost.
func NewOllamaProvider(host string) *OllamaProvider {
	if host == "" {
		host = DefaultOllamaHost
	}
	return &OllamaProvider{host: host}
}

func (p *OllamaProvider) Name() string { return ProviderOllama }

func (p *OllamaProvider) Generate(ctx context.Context, model string, req Request) (string, error) {
	opts := []ollama.Option{
		ollama.WithModel(model),
		ollama.WithServerURL(p.host),
	}
	if req.JSON {
		opts = append(opts, ollama.WithFormat("json"))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return "", &ExternalServiceError{Service: ProviderOllama, Message: "failed to create client", Cause: err}
	}

	return generateChat(ctx, ProviderOllama, client, req, false)
}

func generateChat(ctx context.Context, service string, model llms.Model, req Request, jsonMode bool) (string, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	callOpts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if jsonMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", &ExternalServiceError{Service: service, Message: "failed to generate content", Cause: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Content, nil
}
