// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chulminlee01/mrt-tech-test/internal/llm"
)

// Defaults applied by MergeWithDefaults
const (
	DefaultAssignmentCount  = 5
	DefaultOutputRoot       = "output"
	DefaultModelTimeoutSecs = 180
	DefaultMaxSearchQueries = 6
	DefaultServerPort       = 8080
)

// StepModels holds per-step model overrides. Empty fields fall through to the run or process default.
type StepModels struct {
	Research    string `json:"research,omitempty" yaml:"research,omitempty"`
	Assignments string `json:"assignments,omitempty" yaml:"assignments,omitempty"`
	Starter     string `json:"starter,omitempty" yaml:"starter,omitempty"`
	Design      string `json:"design,omitempty" yaml:"design,omitempty"`
}

// Merge returns s with empty fields filled from other
func (s StepModels) Merge(other StepModels) StepModels {
	if s.Research == "" {
		s.Research = other.Research
	}
	if s.Assignments == "" {
		s.Assignments = other.Assignments
	}
	if s.Starter == "" {
		s.Starter = other.Starter
	}
	if s.Design == "" {
		s.Design = other.Design
	}
	return s
}

// StepSampling holds the sampling settings of one model-backed step.
// Zero values fall through to the step's built-in default.
type StepSampling struct {
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

func (s StepSampling) merge(other StepSampling) StepSampling {
	if s.Temperature == 0 {
		s.Temperature = other.Temperature
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = other.MaxTokens
	}
	return s
}

func (s StepSampling) validate(step string) error {
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("config error: 'sampling.%s.temperature' must be between 0 and 2, got %g", step, s.Temperature)
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("config error: 'sampling.%s.max_tokens' must be non-negative", step)
	}
	return nil
}

// StepSamplings holds per-step sampling settings
type StepSamplings struct {
	Research    StepSampling `json:"research,omitempty" yaml:"research,omitempty"`
	Assignments StepSampling `json:"assignments,omitempty" yaml:"assignments,omitempty"`
	Starter     StepSampling `json:"starter,omitempty" yaml:"starter,omitempty"`
	Design      StepSampling `json:"design,omitempty" yaml:"design,omitempty"`
}

// Merge returns s with zero fields filled from other
func (s StepSamplings) Merge(other StepSamplings) StepSamplings {
	return StepSamplings{
		Research:    s.Research.merge(other.Research),
		Assignments: s.Assignments.merge(other.Assignments),
		Starter:     s.Starter.merge(other.Starter),
		Design:      s.Design.merge(other.Design),
	}
}

// Validate checks every step's temperature and token limit
func (s StepSamplings) Validate() error {
	for _, step := range []struct {
		name     string
		sampling StepSampling
	}{
		{"research", s.Research},
		{"assignments", s.Assignments},
		{"starter", s.Starter},
		{"design", s.Design},
	} {
		if err := step.sampling.validate(step.name); err != nil {
			return err
		}
	}
	return nil
}

// Config is the process configuration. It is loaded from a JSON or YAML file,
// merged with the environment and CLI flags, then passed explicitly to the orchestrator.
type Config struct {
	// Models
	DefaultModel string     `json:"default_model,omitempty" yaml:"default_model,omitempty"` // Process-wide default model
	Models       StepModels `json:"models,omitempty" yaml:"models,omitempty"`               // Per-step defaults
	Fallbacks    []string   `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`         // Replaces the built-in fallback chain

	// Generation
	AssignmentCount     int           `json:"assignment_count,omitempty" yaml:"assignment_count,omitempty"`
	ModelTimeoutSeconds int           `json:"model_timeout_seconds,omitempty" yaml:"model_timeout_seconds,omitempty"`
	MaxSearchQueries    int           `json:"max_search_queries,omitempty" yaml:"max_search_queries,omitempty"`
	Sampling            StepSamplings `json:"sampling,omitempty" yaml:"sampling,omitempty"`     // Per-step temperature and max tokens
	SiteTitle           string        `json:"site_title,omitempty" yaml:"site_title,omitempty"` // Portal <title>; empty uses the localized default

	// Paths
	OutputRoot string `json:"output_root,omitempty" yaml:"output_root,omitempty"`

	// Credentials
	Credentials  llm.Credentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	GoogleAPIKey string          `json:"google_api_key,omitempty" yaml:"google_api_key,omitempty"` // Custom Search API key
	GoogleCSEID  string          `json:"google_cse_id,omitempty" yaml:"google_cse_id,omitempty"`   // Custom Search engine ID

	// Server
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"`

	// Behavior
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Verbose  bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// FromEnv builds a Config from environment variables. Unset variables leave fields empty.
func FromEnv() Config {
	cfg := Config{
		DefaultModel: os.Getenv("DEFAULT_MODEL"),
		Models: StepModels{
			Research:    os.Getenv("RESEARCH_MODEL"),
			Assignments: os.Getenv("QUESTION_MODEL"),
			Starter:     os.Getenv("STARTER_MODEL"),
			Design:      os.Getenv("DESIGNER_MODEL"),
		},
		OutputRoot:   os.Getenv("OUTPUT_ROOT"),
		Credentials:  llm.CredentialsFromEnv(),
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		GoogleCSEID:  os.Getenv("GOOGLE_CSE_ID"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		LogLevel:     os.Getenv("LOG_LEVEL"),
	}
	cfg.SiteTitle = os.Getenv("SITE_TITLE")
	cfg.Sampling = StepSamplings{
		Research:    samplingFromEnv("RESEARCH"),
		Assignments: samplingFromEnv("QUESTION"),
		Starter:     samplingFromEnv("STARTER"),
		Design:      samplingFromEnv("DESIGNER"),
	}
	if n, err := strconv.Atoi(os.Getenv("ASSIGNMENT_COUNT")); err == nil {
		cfg.AssignmentCount = n
	}
	if n, err := strconv.Atoi(os.Getenv("MODEL_TIMEOUT_SECONDS")); err == nil {
		cfg.ModelTimeoutSeconds = n
	}
	if n, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		cfg.Port = n
	}
	return cfg
}

// samplingFromEnv reads <PREFIX>_TEMPERATURE and <PREFIX>_MAX_TOKENS
func samplingFromEnv(prefix string) StepSampling {
	var s StepSampling
	if f, err := strconv.ParseFloat(os.Getenv(prefix+"_TEMPERATURE"), 64); err == nil {
		s.Temperature = f
	}
	if n, err := strconv.Atoi(os.Getenv(prefix + "_MAX_TOKENS")); err == nil {
		s.MaxTokens = n
	}
	return s
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.AssignmentCount < 0 || c.AssignmentCount > 5 {
		return fmt.Errorf("config error: 'assignment_count' must be between 1 and 5, got %d", c.AssignmentCount)
	}
	if c.ModelTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'model_timeout_seconds' must be non-negative")
	}
	if c.MaxSearchQueries < 0 {
		return fmt.Errorf("config error: 'max_search_queries' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if c.LogLevel != "" {
		if _, err := ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}
	if err := c.Sampling.Validate(); err != nil {
		return err
	}
	for i, m := range c.Fallbacks {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("config error: 'fallbacks[%d]' is empty", i)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults,
// then from the built-in defaults for numeric settings.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DefaultModel == "" {
		result.DefaultModel = defaults.DefaultModel
	}
	result.Models = result.Models.Merge(defaults.Models)
	result.Sampling = result.Sampling.Merge(defaults.Sampling)
	if result.SiteTitle == "" {
		result.SiteTitle = defaults.SiteTitle
	}
	if len(result.Fallbacks) == 0 {
		result.Fallbacks = defaults.Fallbacks
	}
	if result.OutputRoot == "" {
		result.OutputRoot = defaults.OutputRoot
	}
	result.Credentials = result.Credentials.Merge(defaults.Credentials)
	if result.GoogleAPIKey == "" {
		result.GoogleAPIKey = defaults.GoogleAPIKey
	}
	if result.GoogleCSEID == "" {
		result.GoogleCSEID = defaults.GoogleCSEID
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	if result.AssignmentCount == 0 {
		result.AssignmentCount = defaults.AssignmentCount
	}
	if result.ModelTimeoutSeconds == 0 {
		result.ModelTimeoutSeconds = defaults.ModelTimeoutSeconds
	}
	if result.MaxSearchQueries == 0 {
		result.MaxSearchQueries = defaults.MaxSearchQueries
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Built-in defaults
	if result.AssignmentCount == 0 {
		result.AssignmentCount = DefaultAssignmentCount
	}
	if result.ModelTimeoutSeconds == 0 {
		result.ModelTimeoutSeconds = DefaultModelTimeoutSecs
	}
	if result.MaxSearchQueries == 0 {
		result.MaxSearchQueries = DefaultMaxSearchQueries
	}
	if result.OutputRoot == "" {
		result.OutputRoot = DefaultOutputRoot
	}
	if result.Port == 0 {
		result.Port = DefaultServerPort
	}
	if len(result.Fallbacks) == 0 {
		result.Fallbacks = llm.DefaultFallbackChain()
	}

	return result
}

// ModelTimeout returns the per-candidate model timeout
func (c *Config) ModelTimeout() time.Duration {
	if c.ModelTimeoutSeconds <= 0 {
		return llm.DefaultTimeout
	}
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

// SearchEnabled reports whether web research has credentials
func (c *Config) SearchEnabled() bool {
	return c.GoogleAPIKey != "" && c.GoogleCSEID != ""
}
