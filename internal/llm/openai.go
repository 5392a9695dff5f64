package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/nbyapp/nbyapp/internal/prompt"
)

// OpenAIClient implements Provider for OpenAI-compatible chat completion APIs.
// It serves both OpenAI and DeepSeek; only the base URL differs.
type OpenAIClient struct {
	name        string
	client      *openai.Client
	limiter     *rate.Limiter
	temperature float32
}

// NewOpenAIClient creates a client talking to baseURL. The base URL points at
// the credential-injecting proxy, so no API key is configured here.
func NewOpenAIClient(name, baseURL string, httpClient *http.Client, limiter *rate.Limiter) *OpenAIClient {
	config := openai.DefaultConfig("")
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	if limiter == nil {
		limiter = NewLimiter(0)
	}

	return &OpenAIClient{
		name:        name,
		client:      openai.NewClientWithConfig(config),
		limiter:     limiter,
		temperature: 0.7,
	}
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return c.name
}

// Invoke sends the prompt as a single user message
func (c *OpenAIClient) Invoke(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", transportError(c.name, 0, err)
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: req.ModelID,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: prompt.SystemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: req.Prompt,
				},
			},
			Temperature: c.temperature,
			MaxTokens:   req.MaxTokens,
		},
	)
	if err != nil {
		return "", transportError(c.name, statusOf(err), fmt.Errorf("chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", transportError(c.name, 0, errors.New("no choices in response"))
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", transportError(c.name, 0, errors.New("empty completion"))
	}
	return content, nil
}

// statusOf extracts the HTTP status carried by go-openai errors
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
