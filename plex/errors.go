package plex

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrExhausted is returned by WatchHistory.Next once the sequence has ended
	ErrExhausted = errors.New("watch history exhausted")
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid plex configuration")
	// ErrMissingContainer indicates a response without the MediaContainer key
	ErrMissingContainer = errors.New("response has no MediaContainer")
	// ErrNoMetadata indicates a metadata response with zero items
	ErrNoMetadata = errors.New("metadata response contains no items")
)

// TransportError indicates the request never produced a usable response:
// connection, DNS, timeout or body read failures.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("plex request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError represents a non-2xx response from the Plex server
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("plex API error: %s: status %d %s", e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// DecodeError indicates a response body that could not be turned into the
// expected payload. Invalid viewedAt timestamps are reported this way too.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("failed to decode plex response: %v", e.Err)
	}
	return fmt.Sprintf("failed to decode plex response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates the configured library could not be resolved to a
// location id.
type NotFoundError struct {
	Library string
	Reason  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("library %q not found: %s", e.Library, e.Reason)
}

// IsNotFound reports whether err is an APIError with status 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
