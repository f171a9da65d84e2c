package plex

import (
	"encoding/json"
)

// Envelope is the MediaContainer object every Plex response is nested in.
// It carries nothing beyond the payload.
type Envelope[T any] struct {
	MediaContainer *T `json:"MediaContainer"`
}

// DecodeEnvelope unwraps the MediaContainer of a response body into T. Every
// endpoint goes through here; failures are returned as *DecodeError.
func DecodeEnvelope[T any](endpoint string, data []byte) (T, error) {
	var zero T

	var env Envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, &DecodeError{Endpoint: endpoint, Err: err}
	}
	if env.MediaContainer == nil {
		return zero, &DecodeError{Endpoint: endpoint, Err: ErrMissingContainer}
	}

	return *env.MediaContainer, nil
}
