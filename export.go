package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/ics"
	"github.com/tonimelisma/gradecal/internal/store"
)

// exportFilePermissions matches standard file permissions (owner rw, group/other r).
const exportFilePermissions = 0o644

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <user>",
		Short: "Write a user's cached assignments as an ICS file",
		Long: `Render the assignment cache of one user as an iCalendar file, for
calendar clients other than Google Calendar. Writes to stdout unless
--output is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringP("output", "o", "", "file to write (default stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

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

		var buf bytes.Buffer
		if err := ics.Render(&buf, c, courses, ics.Options{
			Name:          "Gradescope assignments",
			SourceBaseURL: cc.Cfg.Gradescope.BaseURL,
		}); err != nil {
			return err
		}

		if output == "" {
			_, err := io.Copy(os.Stdout, &buf)
			return err
		}

		if err := os.WriteFile(output, buf.Bytes(), exportFilePermissions); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}

		cc.Statusf("Wrote %s.\n", output)

		return nil
	})
}
