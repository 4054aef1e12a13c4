package sync

import (
	"errors"
)

// Pass failures. Each maps to a machine-readable keyword returned by the
// callable entry points. Use errors.Is to check.
var (
	ErrInvalidAuth       = errors.New("sync: gradescope credentials invalid")
	ErrInvalidGoogleAuth = errors.New("sync: google credentials invalid")
	ErrInvalidSettings   = errors.New("sync: user settings invalid")
	ErrInvalidCalendar   = errors.New("sync: calendar selection invalid")
	ErrSourceFetch       = errors.New("sync: assignment fetch failed")
)

// Failure keywords reported to callers.
const (
	KeywordInvalidAuth       = "invalid_gradescope_auth"
	KeywordInvalidGoogleAuth = "invalid_google_auth"
	KeywordInvalidSettings   = "invalid_user_settings"
	KeywordInvalidCalendar   = "invalid_calendar_selection"
	KeywordSourceFetch       = "source_fetch_failed"
	KeywordInternal          = "internal_error"
)

var keywords = []struct {
	err     error
	keyword string
}{
	{ErrInvalidSettings, KeywordInvalidSettings},
	{ErrInvalidAuth, KeywordInvalidAuth},
	{ErrInvalidGoogleAuth, KeywordInvalidGoogleAuth},
	{ErrInvalidCalendar, KeywordInvalidCalendar},
	{ErrSourceFetch, KeywordSourceFetch},
}

// FailureKeyword returns the keyword for err: "" for nil, the matching
// keyword for a pass failure, and KeywordInternal for anything else.
func FailureKeyword(err error) string {
	if err == nil {
		return ""
	}

	for _, k := range keywords {
		if errors.Is(err, k.err) {
			return k.keyword
		}
	}

	return KeywordInternal
}

// Result is the structured outcome returned by callable entry points.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ResultOf converts a pass error into a Result.
func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}

	return Result{Error: FailureKeyword(err)}
}
