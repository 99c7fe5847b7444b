// Package backend holds the pluggable embedding/generation providers and the
// router that hot-swaps the active pair from external configuration.
package backend

import (
	"context"

	"github.com/groundctx/ragserver/internal/models"
)

// Kind identifies a supported provider variant.
type Kind string

const (
	KindAzure   Kind = "azure"
	KindBedrock Kind = "bedrock"
)

// CompletionResult is the generation provider's answer.
type CompletionResult struct {
	Text       string `json:"response"`
	TokenCount *int   `json:"token_count,omitempty"`
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for a prompt.
type Generator interface {
	GenerateCompletion(ctx context.Context, prompt string, params models.GenerationParams) (*CompletionResult, error)
}

// Provider is the full capability set implemented by each variant.
type Provider interface {
	Embedder
	Generator
	Name() string
}

// GenerationConfig configures the completion endpoint of a provider.
type GenerationConfig struct {
	Endpoint    string   `json:"endpoint"`
	APIKey      string   `json:"api_key"`
	ModelName   string   `json:"model_name"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// EmbeddingConfig configures the embedding endpoint of a provider.
type EmbeddingConfig struct {
	Endpoint  string `json:"endpoint"`
	APIKey    string `json:"api_key"`
	ModelName string `json:"model_name"`
	Dimension int    `json:"dimension"`
}

// Config is one provider's complete wiring as served by the configuration
// collaborator. Exactly one provider is active system-wide at a time.
type Config struct {
	Provider   Kind             `json:"provider"`
	IsActive   bool             `json:"is_active"`
	Generation GenerationConfig `json:"llm_config"`
	Embedding  EmbeddingConfig  `json:"embedding_config"`
}

// Validate checks that the required fields for the declared provider kind
// are present. It never mutates the config.
func (c *Config) Validate() error {
	switch c.Provider {
	case KindAzure, KindBedrock:
	default:
		return &ValidationError{Field: "provider", Reason: "unsupported provider kind: " + string(c.Provider)}
	}
	if c.Generation.Endpoint == "" {
		return &ValidationError{Field: "llm_config.endpoint", Reason: "generation endpoint is required"}
	}
	if c.Generation.APIKey == "" {
		return &ValidationError{Field: "llm_config.api_key", Reason: "generation credential is required"}
	}
	if c.Embedding.Endpoint == "" {
		return &ValidationError{Field: "embedding_config.endpoint", Reason: "embedding endpoint is required"}
	}
	if c.Embedding.Dimension <= 0 {
		return &ValidationError{Field: "embedding_config.dimension", Reason: "embedding dimension must be positive"}
	}
	return nil
}

// GenerationDefaults folds the config's generation parameters over the
// service-wide fallbacks.
func (c *Config) GenerationDefaults(fallback models.GenerationParams) models.GenerationParams {
	out := fallback
	if c.Generation.MaxTokens != nil {
		out.MaxTokens = *c.Generation.MaxTokens
	}
	if c.Generation.Temperature != nil {
		out.Temperature = *c.Generation.Temperature
	}
	return out
}

// ValidationError reports a missing or malformed backend config field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid backend config: " + e.Field + ": " + e.Reason
}
