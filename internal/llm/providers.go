package llm

import (
	"fmt"
	"strings"
)

// ProviderConfig describes how providers reach the LLM proxy
type ProviderConfig struct {
	// ProxyURL serves every service at <ProxyURL>/<service id> unless BaseURLs overrides it
	ProxyURL  string
	BaseURLs  map[string]string
	Transport TransportConfig
}

// BaseURL returns the endpoint used for serviceID
func (c ProviderConfig) BaseURL(serviceID string) string {
	if u := c.BaseURLs[serviceID]; u != "" {
		return u
	}
	return strings.TrimRight(c.ProxyURL, "/") + "/" + serviceID
}

// NewProviders builds one provider per registered service, speaking the
// service's protocol. All providers share one retrying HTTP client and each
// gets its own rate limiter.
func NewProviders(reg *Registry, cfg ProviderConfig) (Providers, error) {
	httpClient := NewHTTPClient(cfg.Transport)
	providers := make(Providers, len(reg.Services()))

	for _, svc := range reg.Services() {
		baseURL := cfg.BaseURL(svc.ID)
		limiter := NewLimiter(cfg.Transport.RateLimit)

		switch svc.Protocol {
		case ProtocolOpenAI, "":
			providers[svc.ID] = NewOpenAIClient(svc.ID, baseURL, httpClient, limiter)
		case ProtocolAnthropic:
			providers[svc.ID] = NewAnthropicClient(svc.ID, baseURL, httpClient, limiter)
		default:
			return nil, fmt.Errorf("service %s: unsupported protocol %q", svc.ID, svc.Protocol)
		}
	}
	return providers, nil
}
