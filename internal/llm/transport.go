package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// TransportConfig tunes the HTTP client shared by network providers
type TransportConfig struct {
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RateLimit is requests per second; zero or less means unlimited
	RateLimit float64
}

// NewHTTPClient returns an *http.Client that retries connection errors and
// retryable status codes. The request context bounds all attempts.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = cfg.RetryWaitMax
	}
	retryClient.Logger = nil
	// Hand the last response back instead of a generic "giving up" error
	// so callers can report the real status code.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return retryClient.StandardClient()
}

// NewLimiter builds the per-provider rate limiter
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// transportError classifies err for provider name
func transportError(provider string, status int, err error) *TransportError {
	return &TransportError{
		Provider:   provider,
		StatusCode: status,
		Timeout:    errors.Is(err, context.DeadlineExceeded),
		Err:        err,
	}
}
