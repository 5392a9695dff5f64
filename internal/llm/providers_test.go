package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviders(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	providers, err := NewProviders(reg, ProviderConfig{ProxyURL: "http://localhost:3001/api"})
	require.NoError(t, err)
	require.Len(t, providers, 3)

	p, ok := providers.For("openai")
	require.True(t, ok)
	assert.IsType(t, &OpenAIClient{}, p)
	assert.Equal(t, "openai", p.Name())

	p, ok = providers.For("claude")
	require.True(t, ok)
	assert.IsType(t, &AnthropicClient{}, p)

	p, ok = providers.For("deepseek")
	require.True(t, ok)
	assert.IsType(t, &OpenAIClient{}, p)

	_, ok = providers.For("gemini")
	assert.False(t, ok)
}

func TestProviderConfigBaseURL(t *testing.T) {
	cfg := ProviderConfig{
		ProxyURL: "http://localhost:3001/api/",
		BaseURLs: map[string]string{"deepseek": "https://api.deepseek.com"},
	}
	assert.Equal(t, "http://localhost:3001/api/openai", cfg.BaseURL("openai"))
	assert.Equal(t, "https://api.deepseek.com", cfg.BaseURL("deepseek"))
}

func TestNewProvidersUnsupportedProtocol(t *testing.T) {
	reg, err := NewRegistry([]Service{{
		ID:       "gemini",
		Protocol: "gemini",
		Models:   []Model{{ID: "gemini-pro", IsDefault: true}},
	}})
	require.NoError(t, err)

	_, err = NewProviders(reg, ProviderConfig{})
	assert.Error(t, err)
}
