package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/store"
	"github.com/tonimelisma/gradecal/internal/sync"
)

func newCoursesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Manage a user's tracked courses",
		Long: `The tracked courses decide which assignments are synced. A refresh
replaces the list with the courses on the user's Gradescope account,
keeping the colors of courses already known.`,
	}

	cmd.AddCommand(newCoursesListCmd())
	cmd.AddCommand(newCoursesRefreshCmd())
	cmd.AddCommand(newCoursesColorCmd())

	return cmd
}

func newCoursesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <user>",
		Short: "List tracked courses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.Store, cc *CLIContext) error {
				courses, err := st.Courses(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				return printCourses(cc, courseOutputs(courses))
			})
		},
	}
}

func newCoursesRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <user>",
		Short: "Replace the tracked courses with those on Gradescope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())
			ctx := cmd.Context()

			a, err := openApp(ctx, cc)
			if err != nil {
				return err
			}
			defer a.close()

			courses, err := a.runner.RefreshCourses(ctx, args[0])
			if errors.Is(err, sync.ErrInvalidAuth) {
				return fmt.Errorf("gradescope account not linked or session expired: " +
					"run 'gradecal login gradescope' first")
			}

			if err != nil {
				return err
			}

			cc.Statusf("Tracking %d courses.\n", len(courses))

			return printCourses(cc, courseOutputs(courses))
		},
	}
}

func newCoursesColorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "color <user> <course> <color>",
		Short: "Set the event color of a course",
		Long: `Set the event color (a Google Calendar color ID from 1 to 11) used for
a course's assignments. Existing events keep their color until they are
next updated.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, courseID, color := args[0], args[1], args[2]

			if err := checkColor(color); err != nil {
				return err
			}

			return withStore(cmd, func(st *store.Store, cc *CLIContext) error {
				if err := st.SetCourseColor(cmd.Context(), uid, courseID, color); err != nil {
					return err
				}

				cc.Statusf("Course %s color set to %s.\n", courseID, color)

				return nil
			})
		},
	}
}

func printCourses(cc *CLIContext, courses []courseOutput) error {
	if cc.Flags.JSON {
		return writeJSON(os.Stdout, courses)
	}

	if len(courses) == 0 {
		fmt.Println("No courses tracked.")
		return nil
	}

	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, []string{c.ID, c.Name, c.Color})
	}

	printTable(os.Stdout, []string{"COURSE", "NAME", "COLOR"}, rows)

	return nil
}
