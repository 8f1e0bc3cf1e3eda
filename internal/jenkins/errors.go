package jenkins

import (
	"fmt"
	"strings"
)

// maxErrorBody caps how much of an upstream response body ends up in an error message.
const maxErrorBody = 4096

// ConfigurationError reports required process configuration (an environment
// variable) that is missing or empty.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required environment variable %s", e.Key)
}

// MissingCredentialsError reports a required per-request header that is missing or empty.
type MissingCredentialsError struct {
	Header string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing Jenkins credentials: request header %s is required", e.Header)
}

// IncompleteContextError reports a Context lacking a base URL or token. It
// does not say where the context came from; resolvers report that with a
// ConfigurationError or MissingCredentialsError before a request is built.
type IncompleteContextError struct {
	Field string
}

func (e *IncompleteContextError) Error() string {
	return fmt.Sprintf("incomplete jenkins context: %s is empty", e.Field)
}

// UpstreamError is returned when Jenkins answers with a non-2xx status.
type UpstreamError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "...(truncated)"
	}
	if body == "" {
		return fmt.Sprintf("jenkins api returned status %d for %s %s", e.StatusCode, e.Method, e.URL)
	}
	return fmt.Sprintf("jenkins api returned status %d for %s %s: %s", e.StatusCode, e.Method, e.URL, body)
}

// DecodeError is returned when a response body expected to be JSON is not.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode jenkins response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError wraps network-level failures (DNS, connect, TLS) reaching Jenkins.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to reach jenkins: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
