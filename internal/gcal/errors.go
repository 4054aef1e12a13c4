// Package gcal is the calendar side of gradecal: a thin client for the
// Google Calendar v3 API that validates the user's calendar selection,
// executes batches of event mutations, and runs the Google OAuth2 flow.
package gcal

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for API status classification.
// Use errors.Is(err, gcal.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("gcal: bad request")
	ErrUnauthorized = errors.New("gcal: unauthorized")
	ErrForbidden    = errors.New("gcal: forbidden")
	ErrNotFound     = errors.New("gcal: not found")
	ErrGone         = errors.New("gcal: resource gone")
	ErrThrottled    = errors.New("gcal: throttled")
	ErrServerError  = errors.New("gcal: server error")

	// ErrRefreshFailed means the stored refresh token could not be redeemed.
	// The user must re-link their Google account.
	ErrRefreshFailed = errors.New("gcal: refresh token rejected")
)

// APIError wraps a sentinel with the HTTP status and the API's message.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gcal: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyError converts a googleapi.Error into an *APIError carrying the
// matching sentinel. Other errors (transport, context) pass through.
func classifyError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	return &APIError{
		StatusCode: gerr.Code,
		Message:    gerr.Message,
		Err:        classifyStatus(gerr.Code),
	}
}

// classifyStatus maps an HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusGone:
		return ErrGone
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}
