package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAborted indicates that the caller cancelled the request.
	// It is distinct from a transport failure so callers do not log it
	// as an error.
	ErrAborted = errors.New("request aborted")

	// ErrSessionExpired indicates that the platform rejected the session
	// token (401/403)
	ErrSessionExpired = errors.New("session expired or invalid")
)

// HTTPError represents a non-2xx platform response. The status code is
// the single source of truth for retry classification: 4xx except 408
// is terminal, everything else is retryable.
type HTTPError struct {
	Message    string
	StatusCode int
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error (%d)", e.StatusCode)
}

// Is позволяет errors.Is(err, ErrSessionExpired) для 401/403
func (e *HTTPError) Is(target error) bool {
	if target == ErrSessionExpired {
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// Terminal reports whether the error must not be retried:
// client errors in [400, 500) except 408 Request Timeout
func (e *HTTPError) Terminal() bool {
	if e.StatusCode == http.StatusRequestTimeout {
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}
