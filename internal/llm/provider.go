// Package llm defines the inference provider contract used for intent
// classification. The built-in scripted provider replays canned responses
// for tests, evaluation runs, and offline demos; deployments plug real
// backends in through Register without touching the recognizer.
package llm

import (
	"context"
	"time"
)

// Provider defines the interface for inference providers.
type Provider interface {
	// Chat sends a classification request and returns the response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider identifier.
	Name() string

	// Available returns true if the provider is configured and reachable.
	Available() bool
}

// ChatRequest represents a single inference request.
type ChatRequest struct {
	// Model to use (provider-specific).
	Model string `json:"model"`

	// SystemPrompt sets the classification instructions and intent catalog.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Messages in the conversation, most recent last.
	Messages []Message `json:"messages"`

	// MaxTokens limits response length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0-1.0). Classification calls
	// run near zero.
	Temperature float64 `json:"temperature,omitempty"`
}

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse contains the provider's response.
type ChatResponse struct {
	Content          string        `json:"content"`
	Model            string        `json:"model"`
	TokensUsed       int           `json:"tokens_used,omitempty"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	Duration         time.Duration `json:"duration"`
	FinishReason     string        `json:"finish_reason,omitempty"`
}

// ProviderConfig contains configuration for an inference provider.
type ProviderConfig struct {
	// Name identifies the provider.
	Name string

	// Endpoint is the API base URL, for providers that have one.
	Endpoint string

	// APIKey for authentication, for providers that need one.
	APIKey string

	// Model is the default model to use.
	Model string

	// MaxTokens default for responses.
	MaxTokens int

	// Temperature default.
	Temperature float64

	// Timeout for inference calls.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for a provider.
func DefaultConfig(name string) *ProviderConfig {
	switch name {
	case "scripted":
		return &ProviderConfig{
			Name:        "scripted",
			Model:       "intent-v1",
			MaxTokens:   512,
			Temperature: 0.1,
			Timeout:     30 * time.Second,
		}
	default:
		return &ProviderConfig{
			Name:        name,
			MaxTokens:   512,
			Temperature: 0.1,
			Timeout:     30 * time.Second,
		}
	}
}

// applyDefaults fills zero-valued fields from the provider's defaults.
func applyDefaults(cfg *ProviderConfig, providerName string) *ProviderConfig {
	if cfg == nil {
		return DefaultConfig(providerName)
	}

	defaults := DefaultConfig(providerName)
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	cfg.Name = providerName

	return cfg
}
