// Package ics renders a user's assignment cache as an iCalendar feed, for
// calendar clients that subscribe by URL instead of through Google.
package ics

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/tonimelisma/gradecal/internal/cache"
	"github.com/tonimelisma/gradecal/internal/sync"
)

const (
	productID = "-//gradecal//Gradescope assignments//EN"
	uidDomain = "gradecal"
)

// Options controls rendering.
type Options struct {
	Name          string    // X-WR-CALNAME; empty omits it
	SourceBaseURL string    // resolves course hrefs
	Now           time.Time // DTSTAMP; zero uses time.Now
}

// Render writes every entry of c whose course is tracked and complete as a
// VEVENT, in key order. Entries of other courses are skipped, matching what
// the calendar engine would mirror.
func Render(w io.Writer, c cache.Cache, courses cache.Courses, opts Options) error {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	baseURL := opts.SourceBaseURL
	if baseURL == "" {
		baseURL = sync.DefaultSourceBaseURL
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, key := range slices.Sorted(maps.Keys(c)) {
		entry := c[key]

		course, ok := courses[entry.CourseID]
		if !ok || !course.Complete() {
			continue
		}

		addEvent(cal, key, entry, course, baseURL, now)
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("ics: writing calendar: %w", err)
	}

	return nil
}

func addEvent(cal *ical.Calendar, key cache.Key, a cache.Assignment, course cache.Course, baseURL string, now time.Time) {
	courseURL := sync.CourseURL(baseURL, course.Href)

	ev := cal.AddEvent(fmt.Sprintf("%s@%s", key, uidDomain))
	ev.SetDtStampTime(now)
	ev.SetSummary(sync.EventSummary(a))
	// Zero-length at the deadline, like the Google events.
	ev.SetStartAt(a.Due.At)
	ev.SetEndAt(a.Due.At)
	ev.SetURL(courseURL)
	ev.AddProperty(ical.ComponentPropertyCategories, course.Name)

	desc := fmt.Sprintf("Assignment for %s on Gradescope: %s", course.Name, courseURL)
	if a.Due.Late != nil {
		desc += fmt.Sprintf("\nLate submissions until %s", a.Due.Late.UTC().Format(time.RFC1123))
	}

	ev.SetDescription(desc)
}
