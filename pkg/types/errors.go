// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks bad or missing configuration. It is raised before
	// any network call is made and is never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrEndpointUnavailable marks a connection failure, timeout, or a stream
	// that ended without its end-of-stream fragment.
	ErrEndpointUnavailable = errors.New("model endpoint unavailable")

	// ErrUnsupportedDocument marks a PDF with no extractable text, or one with
	// no usable table of contents when the page fallback is disabled.
	ErrUnsupportedDocument = errors.New("unsupported document")
)

// ModelError is returned when the model backend answers with a non-success
// status, or reports an error inside a streamed response.
type ModelError struct {
	StatusCode int
	Body       string
}

func (e *ModelError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("model returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("model returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is one a caller may reasonably retry
// (rate limiting or a server-side failure).
func (e *ModelError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ConfigErrorf formats a message and wraps it with ErrConfiguration.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
