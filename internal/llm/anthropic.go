package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// AnthropicClient implements Provider for the Anthropic messages API
type AnthropicClient struct {
	name    string
	resty   *resty.Client
	limiter *rate.Limiter
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicClient creates a client posting to <baseURL>/messages.
// The proxy behind baseURL adds the x-api-key and anthropic-version headers.
func NewAnthropicClient(name, baseURL string, httpClient *http.Client, limiter *rate.Limiter) *AnthropicClient {
	var rc *resty.Client
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "nbyapp/1.0")

	if limiter == nil {
		limiter = NewLimiter(0)
	}

	return &AnthropicClient{
		name:    name,
		resty:   rc,
		limiter: limiter,
	}
}

// Name returns the provider name
func (c *AnthropicClient) Name() string {
	return c.name
}

// Invoke posts the prompt as a single user message
func (c *AnthropicClient) Invoke(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", transportError(c.name, 0, err)
	}

	var out anthropicResponse
	var apiErr anthropicError
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(anthropicRequest{
			Model:     req.ModelID,
			MaxTokens: req.MaxTokens,
			Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/messages")
	if err != nil {
		return "", transportError(c.name, 0, fmt.Errorf("post messages: %w", err))
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return "", transportError(c.name, resp.StatusCode(), errors.New(msg))
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", transportError(c.name, resp.StatusCode(), errors.New("no text content in response"))
	}
	return sb.String(), nil
}
