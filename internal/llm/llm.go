package llm

import (
	"context"
	"fmt"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Default models per provider.
const (
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultOpenAIModel    = "gpt-5"
)

// Request is a single generation call: system instructions plus a user
// context blob.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Provider sends one request to a hosted model and returns its text.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// Options configures a provider.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds the provider named in opts.
func New(opts Options) (Provider, error) {
	if opts.APIKey == "" {
		return nil, NewError(ErrorTypeAuth, "no API key configured")
	}
	switch opts.Provider {
	case ProviderAnthropic, "":
		return NewAnthropic(opts), nil
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want %s or %s)", opts.Provider, ProviderAnthropic, ProviderOpenAI)
	}
}
