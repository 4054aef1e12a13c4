// Package gradescope is the assignment side of gradecal: an HTTP client for
// the Gradescope student site that checks and renews session tokens, lists
// a student's courses, and scrapes each course's assignment table.
package gradescope

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status classification.
// Use errors.Is(err, gradescope.ErrUnauthorized) to check.
var (
	ErrUnauthorized = errors.New("gradescope: unauthorized")
	ErrForbidden    = errors.New("gradescope: forbidden")
	ErrNotFound     = errors.New("gradescope: not found")
	ErrThrottled    = errors.New("gradescope: throttled")
	ErrServerError  = errors.New("gradescope: server error")

	// ErrLoginFailed means an email/password login was not accepted.
	ErrLoginFailed = errors.New("gradescope: login failed")
)

// HTTPError is a non-success response from Gradescope.
type HTTPError struct {
	StatusCode int
	URL        string
	Err        error // sentinel, for errors.Is(); nil for unclassified codes
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gradescope: HTTP %d from %s", e.StatusCode, e.URL)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
