package llm

import (
	"context"
)

// Request is one completion call for a resolved model
type Request struct {
	ModelID   string
	Prompt    string
	MaxTokens int

	// Descriptive fields. Network providers only send Prompt; the mock
	// provider renders these into its placeholder app.
	Idea        string
	ServiceName string
	ModelName   string
}

// Provider is the capability every LLM backend implements
type Provider interface {
	// Invoke sends the prompt and returns the raw completion text.
	// Failures are reported as *TransportError.
	Invoke(ctx context.Context, req Request) (string, error)

	// Name returns the provider name used in logs and errors
	Name() string
}

// Providers maps service ids to their provider
type Providers map[string]Provider

// For returns the provider registered for serviceID
func (p Providers) For(serviceID string) (Provider, bool) {
	prov, ok := p[serviceID]
	return prov, ok
}
