package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidSettings, KeywordInvalidSettings},
		{fmt.Errorf("loading: %w", ErrInvalidAuth), KeywordInvalidAuth},
		{ErrInvalidGoogleAuth, KeywordInvalidGoogleAuth},
		{errors.Join(ErrInvalidCalendar, errors.New("write failed")), KeywordInvalidCalendar},
		{fmt.Errorf("%w: %w", ErrSourceFetch, errors.New("HTTP 502")), KeywordSourceFetch},
		{errors.New("something else"), KeywordInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureKeyword(tt.err), "%v", tt.err)
	}
}

func TestResultOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Result{Success: true}, ResultOf(nil))
	assert.Equal(t, Result{Error: KeywordInvalidCalendar}, ResultOf(ErrInvalidCalendar))
}

func TestTrigger_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "manual", TriggerManual.String())
	assert.Equal(t, "scheduled", TriggerScheduled.String())
	assert.Equal(t, "unknown", Trigger(7).String())
}
