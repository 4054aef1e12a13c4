package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/cache"
	"github.com/tonimelisma/gradecal/internal/store"
)

// Entry state labels for status output.
const (
	entryStateSynced    = "synced"
	entryStatePending   = "pending"
	entryStateStale     = "stale"
	entryStateUntracked = "untracked"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <user>",
		Short: "Show a user's cached assignments",
		Long: `Display the assignment cache of one user: every outstanding assignment,
its due date, and whether its calendar event exists and is current.

pending   no calendar event yet; created on the next pass
stale     the event shows an outdated due date or name; updated next pass
synced    the event is current
untracked the course is no longer tracked; dropped on the next pass`,
		Args: cobra.ExactArgs(1),
		RunE: runStatus,
	}
}

// statusEntry is the JSON schema for one entry of `status --json`.
type statusEntry struct {
	Key      string     `json:"key"`
	Name     string     `json:"name"`
	CourseID string     `json:"course_id"`
	Due      time.Time  `json:"due"`
	LateDue  *time.Time `json:"late_due,omitempty"`
	EventID  string     `json:"event_id,omitempty"`
	State    string     `json:"state"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withStore(cmd, func(st *store.Store, cc *CLIContext) error {
		ctx := cmd.Context()

		c, err := st.ReadCache(ctx, args[0])
		if err != nil {
			return err
		}

		courses, err := st.Courses(ctx, args[0])
		if err != nil {
			return err
		}

		entries := statusEntries(c, courses)

		if cc.Flags.JSON {
			return writeJSON(os.Stdout, entries)
		}

		if len(entries) == 0 {
			fmt.Println("No outstanding assignments cached.")
			return nil
		}

		rows := make([][]string, 0, len(entries))

		for _, e := range entries {
			due := formatTime(e.Due.Local())
			if e.LateDue != nil {
				due += " (late " + formatTime(e.LateDue.Local()) + ")"
			}

			rows = append(rows, []string{e.CourseID, e.Name, due, e.State})
		}

		printTable(os.Stdout, []string{"COURSE", "ASSIGNMENT", "DUE", "STATE"}, rows)

		return nil
	})
}

func statusEntries(c cache.Cache, courses cache.Courses) []statusEntry {
	out := make([]statusEntry, 0, len(c))

	for _, key := range slices.Sorted(maps.Keys(c)) {
		a := c[key]

		out = append(out, statusEntry{
			Key:      key.String(),
			Name:     a.Name,
			CourseID: a.CourseID,
			Due:      a.Due.At,
			LateDue:  a.Due.Late,
			EventID:  a.EventID,
			State:    entryState(a, courses),
		})
	}

	return out
}

func entryState(a cache.Assignment, courses cache.Courses) string {
	switch {
	case !courses.Tracked(a.CourseID):
		return entryStateUntracked
	case !a.Linked():
		return entryStatePending
	case a.Stale:
		return entryStateStale
	default:
		return entryStateSynced
	}
}
