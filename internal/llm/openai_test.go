package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestOpenAIClientInvoke(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion("```html\n<p>ok</p>\n```"))
	}))
	defer srv.Close()

	client := NewOpenAIClient("openai", srv.URL, NewHTTPClient(TransportConfig{}), nil)
	out, err := client.Invoke(context.Background(), Request{ModelID: "gpt-4o", Prompt: "build it", MaxTokens: 4000})
	require.NoError(t, err)
	assert.Equal(t, "```html\n<p>ok</p>\n```", out)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 4000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "build it", got.Messages[1].Content)
}

func TestOpenAIClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("deepseek", srv.URL, NewHTTPClient(TransportConfig{}), nil)
	_, err := client.Invoke(context.Background(), Request{ModelID: "deepseek-coder", Prompt: "x"})
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "deepseek", te.Provider)
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Equal(t, "transport", te.ErrorKind())
}

func TestOpenAIClientEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("openai", srv.URL, nil, nil)
	_, err := client.Invoke(context.Background(), Request{ModelID: "gpt-4o", Prompt: "x"})
	assert.True(t, IsTransportError(err))
}

func TestOpenAIClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewOpenAIClient("openai", url, NewHTTPClient(TransportConfig{}), nil)
	_, err := client.Invoke(context.Background(), Request{ModelID: "gpt-4o", Prompt: "x"})
	assert.True(t, IsTransportError(err))
}

func TestOpenAIClientDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewOpenAIClient("openai", srv.URL, NewHTTPClient(TransportConfig{}), nil)
	_, err := client.Invoke(ctx, Request{ModelID: "gpt-4o", Prompt: "x"})
	assert.True(t, IsTransportError(err))
}

func TestHTTPClientRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion("done"))
	}))
	defer srv.Close()

	httpClient := NewHTTPClient(TransportConfig{
		MaxRetries:   1,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
	})
	client := NewOpenAIClient("openai", srv.URL, httpClient, nil)

	out, err := client.Invoke(context.Background(), Request{ModelID: "gpt-4o", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewLimiter(t *testing.T) {
	assert.True(t, NewLimiter(0).Allow())
	assert.Equal(t, 1, NewLimiter(0.5).Burst())
	assert.Equal(t, 10, NewLimiter(10).Burst())
}
