package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/sync"
)

func newCalendarsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendars <user>",
		Short: "List the calendars a user can sync into",
		Long: `List the user's calendars where they can create events (owner or writer
access). Select one with 'gradecal settings set <user> --calendar <id>'.`,
		Args: cobra.ExactArgs(1),
		RunE: runCalendars,
	}
}

func runCalendars(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	if err := requireGoogleClient(cc.Cfg); err != nil {
		return err
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.close()

	svc, err := a.connector.GoogleService(ctx, args[0])
	if errors.Is(err, sync.ErrInvalidGoogleAuth) {
		return fmt.Errorf("google account not linked: run 'gradecal login google %s' first", args[0])
	}

	if err != nil {
		return err
	}

	cals, err := svc.ListCalendars(ctx)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return writeJSON(os.Stdout, cals)
	}

	if len(cals) == 0 {
		fmt.Println("No writable calendars.")
		return nil
	}

	rows := make([][]string, 0, len(cals))

	for _, c := range cals {
		name := c.Summary
		if c.Primary {
			name += " (primary)"
		}

		rows = append(rows, []string{c.ID, name, c.AccessRole})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "ACCESS"}, rows)

	return nil
}
