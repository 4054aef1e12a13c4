package sync

import (
	"github.com/tonimelisma/gradecal/internal/cache"
)

// Reconcile merges an incoming snapshot into the prior cache and returns the
// updated cache. prior is not modified.
//
// Entries of courses missing from courses are dropped; their calendar
// events are left in place. A key absent from prior whose incoming record
// is already completed never enters the cache. Every other incoming record
// overwrites its entry, keeping the prior EventID and marking the entry
// stale when the due date or name moved. Cached entries the snapshot no
// longer reports are kept as they are.
func Reconcile(incoming cache.Snapshot, prior cache.Cache, courses cache.Courses) cache.Cache {
	out := make(cache.Cache, len(prior))

	for key, a := range prior {
		if courses.Tracked(a.CourseID) {
			out[key] = a
		}
	}

	for key, raw := range incoming {
		old, known := out[key]
		if !known && raw.Completed {
			continue
		}

		out[key] = merge(raw, old, known)
	}

	return out
}

// merge builds the cache entry for raw given its prior entry, if any.
func merge(raw cache.RawAssignment, old cache.Assignment, known bool) cache.Assignment {
	a := cache.Assignment{
		Name:      raw.Name,
		Due:       raw.Due,
		Completed: raw.Completed,
		CourseID:  raw.CourseID,
	}

	if !known {
		return a
	}

	a.EventID = old.EventID
	a.Stale = old.Stale || !raw.Due.Equal(old.Due) || raw.Name != old.Name

	// Nothing to be stale against without an event.
	if !a.Linked() {
		a.Stale = false
	}

	return a
}
