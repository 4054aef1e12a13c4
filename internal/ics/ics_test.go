package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gradecal/internal/cache"
)

func TestRender(t *testing.T) {
	due := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	late := due.Add(48 * time.Hour)

	c := cache.Cache{
		"C2-9": {Name: "Essay", Due: cache.NewDueDate(due).WithLate(late), CourseID: "C2", EventID: "evt_2"},
		"C1-1": {Name: "HW 1", Due: cache.NewDueDate(due), CourseID: "C1"},
		"C3-5": {Name: "Dropped", Due: cache.NewDueDate(due), CourseID: "C3"},
		"C4-1": {Name: "No href", Due: cache.NewDueDate(due), CourseID: "C4"},
	}
	courses := cache.Courses{
		"C1": {Name: "Systems", Color: "5", Href: "/courses/C1"},
		"C2": {Name: "Writing", Color: "7", Href: "/courses/C2"},
		"C4": {Name: "Broken", Color: "1"},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, c, courses, Options{
		Name:          "Assignments",
		SourceBaseURL: "https://gs.example.edu",
		Now:           due,
	}))

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2, "untracked and incomplete courses are skipped")

	assert.Equal(t, "C1-1@gradecal", events[0].Id(), "events are in key order")
	assert.Equal(t, "HW 1 [C1]", events[0].GetProperty(ical.ComponentPropertySummary).Value)

	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, due.Equal(start))

	desc := events[1].GetProperty(ical.ComponentPropertyDescription).Value
	assert.Contains(t, desc, "https://gs.example.edu/courses/C2")
	assert.Contains(t, desc, "Late submissions until")

	assert.Contains(t, buf.String(), "X-WR-CALNAME:Assignments")
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil, nil, Options{}))

	assert.Contains(t, buf.String(), "BEGIN:VCALENDAR")
	assert.NotContains(t, buf.String(), "BEGIN:VEVENT")
}
