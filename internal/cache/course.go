package cache

// DefaultCourseColor is the calendar color given to a course the first
// time it is discovered.
const DefaultCourseColor = "1"

// Course is the metadata needed to render a course's assignments as
// calendar events. Href locates the course on the source site.
type Course struct {
	Name  string
	Color string
	Href  string
}

// Complete reports whether the course has every field a calendar mutation
// needs. Incomplete courses are never used to create or patch events.
func (c Course) Complete() bool {
	return c.Name != "" && c.Color != "" && c.Href != ""
}

// Courses maps course IDs to course metadata. Its key set is the user's
// tracked course set.
type Courses map[string]Course

// Tracked reports whether the course is in the tracked set.
func (c Courses) Tracked(courseID string) bool {
	_, ok := c[courseID]
	return ok
}

// Settings is a user's read-only configuration for a reconciliation pass.
// CompletedColor is empty when completed assignments should simply be
// dropped from the calendar's attention rather than recolored.
type Settings struct {
	CalendarID     string
	Courses        Courses
	CompletedColor string
}

// InvalidCalendarID is the placeholder written by background passes when the
// stored calendar selection fails validation.
const InvalidCalendarID = "invalid"

// Valid reports whether the settings are usable for a pass: a calendar is
// selected and the course map exists. An invalidated selection is still
// valid settings; the calendar check rejects it.
func (s *Settings) Valid() bool {
	return s != nil && s.CalendarID != "" && s.Courses != nil
}

// CalendarInvalidated reports whether a background pass has marked the
// calendar selection unusable.
func (s *Settings) CalendarInvalidated() bool {
	return s.CalendarID == InvalidCalendarID
}
