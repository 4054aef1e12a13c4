// Package sync keeps a user's calendar converged with their assignment
// list. A pass fetches a snapshot from the assignment source, merges it into
// the stored cache (Reconcile), derives and executes one batch of calendar
// mutations (Engine.Apply), and persists the resulting cache in one write.
//
// The Orchestrator fans passes out over many users with per-user error and
// panic isolation.
package sync

import (
	"context"

	"github.com/tonimelisma/gradecal/internal/cache"
	"github.com/tonimelisma/gradecal/internal/gcal"
)

// AssignmentSource returns the current assignments of the given courses.
// A failed fetch returns an error and no snapshot; a successful fetch omits
// records it could not parse. Satisfied by *gradescope.Client.
type AssignmentSource interface {
	Fetch(ctx context.Context, courses cache.Courses) (cache.Snapshot, error)
}

// CourseSource lists every course on the user's account. Returned courses
// carry no color.
type CourseSource interface {
	ListCourses(ctx context.Context) (cache.Courses, error)
}

// Source is the full assignment-side client for one user.
type Source interface {
	AssignmentSource
	CourseSource
}

// CalendarService executes mutations against one user's calendars.
// Satisfied by *gcal.Service.
//
// ExecuteBatch must have delivered every callback, sequentially, by the
// time it returns. Callbacks write into the pass's cache map without
// locking.
type CalendarService interface {
	ValidateCalendar(ctx context.Context, calendarID string) (bool, error)
	ExecuteBatch(ctx context.Context, b *gcal.Batch) error
}

// Connector builds authenticated clients for a user from stored
// credentials. Source fails with ErrInvalidAuth and Calendar with
// ErrInvalidGoogleAuth when the user must re-link the account.
type Connector interface {
	Source(ctx context.Context, userID string) (Source, error)
	Calendar(ctx context.Context, userID string) (CalendarService, error)
}

// Store persists per-user settings and caches. Satisfied by *store.Store.
// Settings returns nil, nil for a user with no settings row.
type Store interface {
	Users(ctx context.Context) ([]string, error)
	Settings(ctx context.Context, userID string) (*cache.Settings, error)
	SetCalendarID(ctx context.Context, userID, calendarID string) error
	ClearCalendarID(ctx context.Context, userID string) error
	Courses(ctx context.Context, userID string) (cache.Courses, error)
	SetCourses(ctx context.Context, userID string, courses cache.Courses) error
	ReadCache(ctx context.Context, userID string) (cache.Cache, error)
	WriteCache(ctx context.Context, userID string, c cache.Cache) error
}

// Trigger identifies what started a pass. It decides how an invalid
// calendar selection is recorded.
type Trigger int

const (
	// TriggerManual is a single-user request made by the user. An invalid
	// calendar selection is deleted so the user is asked to pick again.
	TriggerManual Trigger = iota
	// TriggerScheduled is the periodic bulk job. An invalid calendar
	// selection is overwritten with cache.InvalidCalendarID.
	TriggerScheduled
)

func (t Trigger) String() string {
	switch t {
	case TriggerManual:
		return "manual"
	case TriggerScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}
