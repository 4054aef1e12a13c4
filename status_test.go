package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gradecal/internal/cache"
)

func TestEntryState(t *testing.T) {
	t.Parallel()

	courses := cache.Courses{"100": {Name: "Algorithms", Color: "1", Href: "/courses/100"}}

	tests := []struct {
		name string
		a    cache.Assignment
		want string
	}{
		{name: "untracked course", a: cache.Assignment{CourseID: "999", EventID: "ev"}, want: entryStateUntracked},
		{name: "no event yet", a: cache.Assignment{CourseID: "100"}, want: entryStatePending},
		{name: "stale event", a: cache.Assignment{CourseID: "100", EventID: "ev", Stale: true}, want: entryStateStale},
		{name: "synced", a: cache.Assignment{CourseID: "100", EventID: "ev"}, want: entryStateSynced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, entryState(tt.a, courses))
		})
	}
}

func TestStatusEntries_SortedByKey(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	late := due.Add(48 * time.Hour)

	c := cache.Cache{
		cache.NewKey("100", "2"): {Name: "HW2", CourseID: "100", Due: cache.NewDueDate(due)},
		cache.NewKey("100", "1"): {Name: "HW1", CourseID: "100", Due: cache.NewDueDate(due).WithLate(late), EventID: "ev1"},
	}

	got := statusEntries(c, cache.Courses{"100": {Name: "Algorithms"}})
	require.Len(t, got, 2)

	assert.Equal(t, "100-1", got[0].Key)
	assert.Equal(t, entryStateSynced, got[0].State)
	require.NotNil(t, got[0].LateDue)
	assert.True(t, late.Equal(*got[0].LateDue))

	assert.Equal(t, "100-2", got[1].Key)
	assert.Equal(t, entryStatePending, got[1].State)
	assert.Nil(t, got[1].LateDue)
}
