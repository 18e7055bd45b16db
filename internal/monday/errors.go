package monday

import (
	"errors"
	"fmt"
	"strings"
)

// GraphQLError is one entry of a response's "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// APIError is a failure reported by the platform: a non-2xx status, a
// GraphQL "errors" array, or a top-level error_message.
type APIError struct {
	Operation  string
	StatusCode int
	Code       string
	Messages   []string
	Errors     []GraphQLError
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "monday %s failed (status %d", e.Operation, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, ", code %s", e.Code)
	}
	b.WriteString(")")
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	return b.String()
}

// IsAPIError reports whether err is, or wraps, an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
