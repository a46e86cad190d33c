package grid

import (
	"fmt"
	"strings"
)

// HTTPError is a non-2xx response from the provider.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("grid http error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a transport retry.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// GraphQLError is one entry of a GraphQL "errors" list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// QueryError is a response whose "errors" list was non-empty.
type QueryError struct {
	Errors []GraphQLError
}

func (e *QueryError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return "grid query error: " + strings.Join(msgs, "; ")
}

// ProviderError is returned by DiscoverSeries once both the rich and the
// minimal query have failed (or the call was cancelled).
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
