package llm

import (
	"errors"
	"fmt"
)

// ErrUnknownService is returned when a service id is not in the registry
var ErrUnknownService = errors.New("unknown llm service")

// TransportError reports that a provider call could not produce a completion:
// network failure, non-2xx response, malformed body or timeout.
type TransportError struct {
	Provider   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: request timed out: %v", e.Provider, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Provider, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a *TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ErrorKind names the category shown in generation status
func (e *TransportError) ErrorKind() string {
	if e.Timeout {
		return "timeout"
	}
	return "transport"
}
