package tools

import (
	"errors"
	"fmt"
)

// Sentinel errors for tool calls.
var (
	// ErrInvalidRequest matches request validation failures.
	ErrInvalidRequest = errors.New("tools: invalid request")

	// ErrUnexpectedStatus matches non-2xx responses.
	ErrUnexpectedStatus = errors.New("tools: unexpected status")

	// ErrInvalidResponse is returned when a 2xx body is not valid JSON or
	// does not decode into the expected type.
	ErrInvalidResponse = errors.New("tools: invalid response")

	// ErrUnknownDependency is returned for a dependency without an endpoint.
	ErrUnknownDependency = errors.New("tools: unknown dependency")
)

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tools: invalid %s: %s", e.Field, e.Reason)
}

// Is matches ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// StatusError reports a non-2xx tool response.
type StatusError struct {
	Dependency string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tools: %s returned HTTP %d", e.Dependency, e.StatusCode)
	}
	return fmt.Sprintf("tools: %s returned HTTP %d: %s", e.Dependency, e.StatusCode, e.Body)
}

// Is matches ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
