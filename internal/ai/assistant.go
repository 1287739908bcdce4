package ai

import (
	"context"
	"fmt"
	"strings"
)

// Provider names a remote LLM backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Providers lists the supported backends in the order they are documented.
var Providers = []Provider{ProviderGemini, ProviderOpenAI}

// ParseProvider normalizes name and checks it against the supported backends.
func ParseProvider(name string) (Provider, error) {
	provider := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if provider == known {
			return provider, nil
		}
	}

	return "", NewConfigError(fmt.Sprintf("Unknown provider: %s", name), nil)
}

// Request is a single prompt sent to a provider.
type Request struct {
	// System is sent as a system message where the provider supports one.
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator sends a prompt to a provider and returns its raw text reply.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
