package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gradecal/internal/sync"
)

func sampleReports() []*sync.UserReport {
	return []*sync.UserReport{
		{
			UserID: "alice",
			Report: &sync.PassReport{
				UserID:  "alice",
				Fetched: 4,
				Apply:   &sync.ApplyReport{Creates: 2, Patches: 1, Evicted: 1},
			},
		},
		{UserID: "bob", Err: sync.ErrInvalidCalendar},
		{UserID: "carol", Err: errors.New("boom")},
	}
}

func TestUserReportsError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reports []*sync.UserReport
		wantMsg string
	}{
		{name: "none", reports: nil},
		{name: "all ok", reports: []*sync.UserReport{{UserID: "a"}, {UserID: "b"}}},
		{name: "some failed", reports: sampleReports(), wantMsg: "2 of 3 users failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := userReportsError(tt.reports)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestPrintUserReports(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printUserReports(&buf, sampleReports())
	out := buf.String()

	assert.Contains(t, out, "USER")
	assert.Regexp(t, `alice\s+ok\s+4\s+2\s+1\s+1`, out)
	assert.Regexp(t, `bob\s+invalid_calendar_selection\s+-`, out)
	assert.Regexp(t, `carol\s+internal_error`, out)
}

func TestPrintUserReports_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printUserReports(&buf, nil)
	assert.Equal(t, "No users.\n", buf.String())
}

func TestPrintUserReportsJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, printUserReportsJSON(&buf, sampleReports()))

	var got []userReportJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 3)

	assert.Equal(t, sync.Result{Success: true}, got[0].Result)
	require.NotNil(t, got[0].Report)
	assert.Equal(t, 2, got[0].Report.Apply.Creates)

	assert.Equal(t, sync.Result{Error: sync.KeywordInvalidCalendar}, got[1].Result)
	assert.Nil(t, got[1].Report)
}
