// Package cache defines the per-user assignment cache: the record of which
// assignments have already been mirrored to the user's calendar, and the
// course and settings metadata needed to render them.
//
// This is a leaf package; it imports nothing from the rest of the module.
package cache

import (
	"maps"
	"time"
)

// Assignment is one cache entry. EventID is empty until the calendar has
// confirmed an event for it. Stale is only meaningful when EventID is set:
// it marks an event whose displayed data no longer matches Due or Name.
type Assignment struct {
	Name      string
	Due       DueDate
	Completed bool
	CourseID  string
	EventID   string
	Stale     bool
}

// Linked reports whether a calendar event is associated with the entry.
func (a Assignment) Linked() bool {
	return a.EventID != ""
}

// DueDate is an assignment deadline. Late is the optional secondary
// deadline after which submissions are no longer accepted.
type DueDate struct {
	At   time.Time
	Late *time.Time
}

// NewDueDate returns a DueDate without a late deadline.
func NewDueDate(at time.Time) DueDate {
	return DueDate{At: at}
}

// WithLate returns a copy of d carrying the given late deadline.
func (d DueDate) WithLate(late time.Time) DueDate {
	d.Late = &late
	return d
}

// Equal reports whether both deadlines are the same instant. Two absent
// late deadlines are equal; a present and an absent one are not.
func (d DueDate) Equal(o DueDate) bool {
	if !d.At.Equal(o.At) {
		return false
	}

	switch {
	case d.Late == nil && o.Late == nil:
		return true
	case d.Late == nil || o.Late == nil:
		return false
	default:
		return d.Late.Equal(*o.Late)
	}
}

// IsZero reports whether no deadline is set.
func (d DueDate) IsZero() bool {
	return d.At.IsZero()
}

// Cache maps keys to entries for one user. A key is unique within a user's
// cache by construction.
type Cache map[Key]Assignment

// Clone returns a shallow copy. Assignment holds no shared mutable state
// besides the Late pointer, which is never written through.
func (c Cache) Clone() Cache {
	if c == nil {
		return Cache{}
	}

	return maps.Clone(c)
}

// RawAssignment is one record of an incoming snapshot, as reported by the
// assignment source. It carries no calendar linkage.
type RawAssignment struct {
	Name      string
	Due       DueDate
	Completed bool
	CourseID  string
}

// Snapshot is a full report from the assignment source for the tracked
// courses. Assignments the source could not parse are absent.
type Snapshot map[Key]RawAssignment
