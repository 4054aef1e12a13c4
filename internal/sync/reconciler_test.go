package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gradecal/internal/cache"
)

func raw(name string, due int, completed bool, course string) cache.RawAssignment {
	return cache.RawAssignment{Name: name, Due: cache.NewDueDate(day(due)), Completed: completed, CourseID: course}
}

func TestReconcile_NewAssignmentEntersUnlinked(t *testing.T) {
	t.Parallel()

	got := Reconcile(cache.Snapshot{"C1-1": raw("HW1", 1, false, "C1")}, cache.Cache{}, testCourses())

	require.Contains(t, got, cache.Key("C1-1"))
	a := got["C1-1"]
	assert.Equal(t, "HW1", a.Name)
	assert.Empty(t, a.EventID)
	assert.False(t, a.Stale)
}

func TestReconcile_NewCompletedAssignmentIsSkipped(t *testing.T) {
	t.Parallel()

	got := Reconcile(cache.Snapshot{"C1-1": raw("HW1", 1, true, "C1")}, nil, testCourses())

	assert.Empty(t, got)
}

func TestReconcile_KnownAssignmentCompletes(t *testing.T) {
	t.Parallel()

	prior := cache.Cache{"C1-1": {Name: "HW1", Due: cache.NewDueDate(day(1)), CourseID: "C1", EventID: "evt"}}

	got := Reconcile(cache.Snapshot{"C1-1": raw("HW1", 1, true, "C1")}, prior, testCourses())

	require.Contains(t, got, cache.Key("C1-1"))
	assert.True(t, got["C1-1"].Completed)
	assert.Equal(t, "evt", got["C1-1"].EventID)
	assert.False(t, got["C1-1"].Stale)
}

func TestReconcile_PrunesUntrackedCourses(t *testing.T) {
	t.Parallel()

	prior := cache.Cache{
		"C1-1": {Name: "HW1", Due: cache.NewDueDate(day(1)), CourseID: "C1", EventID: "evt1"},
		"C9-1": {Name: "Old", Due: cache.NewDueDate(day(1)), CourseID: "C9", EventID: "evt9"},
	}

	got := Reconcile(cache.Snapshot{}, prior, testCourses())

	assert.Contains(t, got, cache.Key("C1-1"))
	assert.NotContains(t, got, cache.Key("C9-1"))
}

func TestReconcile_DropOutsAreKept(t *testing.T) {
	t.Parallel()

	prior := cache.Cache{
		"C1-1": {Name: "HW1", Due: cache.NewDueDate(day(1)), CourseID: "C1", EventID: "evt1"},
		"C2-1": {Name: "HW2", Due: cache.NewDueDate(day(2)), CourseID: "C2", EventID: "evt2", Stale: true},
	}

	got := Reconcile(cache.Snapshot{"C1-1": raw("HW1", 1, false, "C1")}, prior, testCourses())

	assert.Equal(t, prior["C2-1"], got["C2-1"])
}

func TestReconcile_LinkagePreserved(t *testing.T) {
	t.Parallel()

	prior := cache.Cache{"C1-1": {Name: "HW1", Due: cache.NewDueDate(day(1)), CourseID: "C1", EventID: "evt"}}

	got := Reconcile(cache.Snapshot{"C1-1": raw("HW1", 1, false, "C1")}, prior, testCourses())

	assert.Equal(t, prior, got)
}

func TestReconcile_Staleness(t *testing.T) {
	t.Parallel()

	late := day(3)
	base := cache.Assignment{Name: "HW1", Due: cache.NewDueDate(day(1)), CourseID: "C1", EventID: "evt"}

	tests := []struct {
		name     string
		prior    cache.Assignment
		incoming cache.RawAssignment
		want     bool
	}{
		{"unchanged", base, raw("HW1", 1, false, "C1"), false},
		{"due moved", base, raw("HW1", 2, false, "C1"), true},
		{"renamed", base, raw("Homework 1", 1, false, "C1"), true},
		{"late deadline added", base, cache.RawAssignment{
			Name: "HW1", Due: cache.NewDueDate(day(1)).WithLate(late), CourseID: "C1",
		}, true},
		{"already stale stays stale", func() cache.Assignment {
			a := base
			a.Stale = true

			return a
		}(), raw("HW1", 1, false, "C1"), true},
		{"unlinked is never stale", func() cache.Assignment {
			a := base
			a.EventID = ""

			return a
		}(), raw("HW1", 2, false, "C1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Reconcile(cache.Snapshot{"C1-1": tt.incoming}, cache.Cache{"C1-1": tt.prior}, testCourses())
			assert.Equal(t, tt.want, got["C1-1"].Stale)
		})
	}
}

func TestReconcile_DoesNotModifyPrior(t *testing.T) {
	t.Parallel()

	prior := cache.Cache{
		"C1-1": {Name: "HW1", Due: cache.NewDueDate(day(1)), CourseID: "C1", EventID: "evt"},
		"C9-1": {Name: "Old", Due: cache.NewDueDate(day(1)), CourseID: "C9"},
	}
	before := prior.Clone()

	Reconcile(cache.Snapshot{"C1-1": raw("HW1", 5, false, "C1")}, prior, testCourses())

	assert.Equal(t, before, prior)
}

func TestReconcile_Idempotent(t *testing.T) {
	t.Parallel()

	snapshot := cache.Snapshot{
		"C1-1": raw("HW1", 1, false, "C1"),
		"C1-2": raw("HW2", 2, false, "C1"),
		"C2-1": raw("Lab", 4, true, "C2"),
	}
	prior := cache.Cache{
		"C1-1": {Name: "HW1", Due: cache.NewDueDate(day(9)), CourseID: "C1", EventID: "evt1"},
	}

	first := Reconcile(snapshot, prior, testCourses())
	second := Reconcile(snapshot, first, testCourses())

	assert.Equal(t, first, second)
}
