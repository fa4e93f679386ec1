package wake

import (
	"errors"
	"fmt"
)

// ErrNoDetector is returned when a chain is built without detectors.
var ErrNoDetector = errors.New("wake: at least one detector required")

// APIError represents an error response from the wake endpoint.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("wake: API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// ChainError aggregates errors from all detectors in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "wake chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("wake chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("wake chain: all %d detectors failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
