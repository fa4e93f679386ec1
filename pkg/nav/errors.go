package nav

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when an API key is required but missing.
	ErrNoAPIKey = errors.New("nav: API key required")

	// ErrNoRoutes is returned when the provider found no route.
	ErrNoRoutes = errors.New("nav: no routes found")

	// ErrNotFound is returned when a geocode or place lookup has no result.
	ErrNotFound = errors.New("nav: no results found")

	// ErrInvalidCoordinate is returned for out-of-range coordinates.
	ErrInvalidCoordinate = errors.New("nav: coordinate out of range")

	// ErrProviderUnavailable is returned when no providers are available.
	ErrProviderUnavailable = errors.New("nav: provider unavailable")
)

// APIError represents an error response from a navigation API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the API-level status string (e.g. ZERO_RESULTS).
	Status string

	// Message is the error message from the API.
	Message string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("nav [%s]: API error %d (%s): %s",
			e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("nav [%s]: API error %d: %s",
		e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("nav [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "nav chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("nav chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("nav chain: all %d providers failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}
