package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/cache"
	"github.com/tonimelisma/gradecal/internal/store"
)

// Google Calendar event color IDs run from 1 to 11.
const (
	minEventColor = 1
	maxEventColor = 11
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change a user's sync settings",
	}

	cmd.AddCommand(newSettingsShowCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

// settingsOutput is the JSON schema for `settings show --json`.
type settingsOutput struct {
	UserID           string         `json:"user_id"`
	CalendarID       string         `json:"calendar_id"`
	CompletedColor   string         `json:"completed_color,omitempty"`
	Valid            bool           `json:"valid"`
	GradescopeLinked bool           `json:"gradescope_linked"`
	GradescopeLogin  bool           `json:"gradescope_login_stored"`
	GoogleLinked     bool           `json:"google_linked"`
	Courses          []courseOutput `json:"courses"`
}

type courseOutput struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Href  string `json:"href,omitempty"`
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user>",
		Short: "Show a user's settings and linked accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.Store, cc *CLIContext) error {
				out, err := loadSettingsOutput(cmd.Context(), st, args[0])
				if err != nil {
					return err
				}

				if cc.Flags.JSON {
					return writeJSON(os.Stdout, out)
				}

				printSettings(out)

				return nil
			})
		},
	}
}

func loadSettingsOutput(ctx context.Context, st *store.Store, uid string) (*settingsOutput, error) {
	settings, err := st.Settings(ctx, uid)
	if err != nil {
		return nil, err
	}

	if settings == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, uid)
	}

	creds, err := st.Credentials(ctx, uid)
	if err != nil {
		return nil, err
	}

	return &settingsOutput{
		UserID:           uid,
		CalendarID:       settings.CalendarID,
		CompletedColor:   settings.CompletedColor,
		Valid:            settings.Valid() && !settings.CalendarInvalidated(),
		GradescopeLinked: creds.GradescopeLinked,
		GradescopeLogin:  creds.HasGradescopeLogin(),
		GoogleLinked:     creds.GoogleLinked,
		Courses:          courseOutputs(settings.Courses),
	}, nil
}

func courseOutputs(courses cache.Courses) []courseOutput {
	out := make([]courseOutput, 0, len(courses))

	for _, id := range slices.Sorted(maps.Keys(courses)) {
		c := courses[id]
		out = append(out, courseOutput{ID: id, Name: c.Name, Color: c.Color, Href: c.Href})
	}

	return out
}

func printSettings(out *settingsOutput) {
	calendar := out.CalendarID

	switch {
	case calendar == "":
		calendar = "(not set)"
	case calendar == cache.InvalidCalendarID:
		calendar = "(invalid, select a calendar again)"
	}

	completed := out.CompletedColor
	if completed == "" {
		completed = "(not set)"
	}

	fmt.Printf("User:             %s\n", out.UserID)
	fmt.Printf("Calendar:         %s\n", calendar)
	fmt.Printf("Completed color:  %s\n", completed)
	fmt.Printf("Gradescope:       %s\n", linkState(out.GradescopeLinked, out.GradescopeLogin))
	fmt.Printf("Google:           %s\n", linkState(out.GoogleLinked, false))

	if len(out.Courses) == 0 {
		fmt.Println("Courses:          none (run 'gradecal courses refresh')")
		return
	}

	fmt.Println()

	rows := make([][]string, 0, len(out.Courses))
	for _, c := range out.Courses {
		rows = append(rows, []string{c.ID, c.Name, c.Color})
	}

	printTable(os.Stdout, []string{"COURSE", "NAME", "COLOR"}, rows)
}

func linkState(linked, loginStored bool) string {
	switch {
	case linked && loginStored:
		return "linked (login stored)"
	case linked:
		return "linked"
	default:
		return "not linked"
	}
}

func newSettingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <user>",
		Short: "Change a user's settings",
		Long: `Change a user's calendar selection, completed-assignment color, or
tracked courses.

--completed-color "" turns recoloring of completed assignments off.
--untrack stops syncing a course until the next 'gradecal courses refresh';
its cached assignments are dropped on the next pass.`,
		Args: cobra.ExactArgs(1),
		RunE: runSettingsSet,
	}

	cmd.Flags().String("calendar", "", "calendar ID to sync into (see 'gradecal calendars')")
	cmd.Flags().String("completed-color", "", "event color (1-11) for completed assignments")
	cmd.Flags().StringSlice("untrack", nil, "course IDs to stop syncing")

	return cmd
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	uid := args[0]
	flags := cmd.Flags()

	if !flags.Changed("calendar") && !flags.Changed("completed-color") && !flags.Changed("untrack") {
		return fmt.Errorf("nothing to change: pass --calendar, --completed-color, or --untrack")
	}

	calendarID, _ := flags.GetString("calendar")
	color, _ := flags.GetString("completed-color")
	untrack, _ := flags.GetStringSlice("untrack")

	if flags.Changed("calendar") && (calendarID == "" || calendarID == cache.InvalidCalendarID) {
		return fmt.Errorf("invalid calendar ID %q", calendarID)
	}

	if flags.Changed("completed-color") && color != "" {
		if err := checkColor(color); err != nil {
			return err
		}
	}

	return withStore(cmd, func(st *store.Store, cc *CLIContext) error {
		ctx := cmd.Context()

		if flags.Changed("calendar") {
			if err := st.SetCalendarID(ctx, uid, calendarID); err != nil {
				return err
			}

			cc.Statusf("Calendar set to %s.\n", calendarID)
		}

		if flags.Changed("completed-color") {
			if err := st.SetCompletedColor(ctx, uid, color); err != nil {
				return err
			}

			cc.Statusf("Completed color set to %q.\n", color)
		}

		for _, courseID := range untrack {
			if err := st.RemoveCourse(ctx, uid, courseID); err != nil {
				return err
			}

			cc.Statusf("Stopped tracking course %s.\n", courseID)
		}

		return nil
	})
}

// checkColor rejects anything that is not a Google event color ID.
func checkColor(color string) error {
	n, err := strconv.Atoi(color)
	if err != nil || n < minEventColor || n > maxEventColor {
		return fmt.Errorf("invalid color %q: must be an event color ID from %d to %d",
			color, minEventColor, maxEventColor)
	}

	return nil
}
