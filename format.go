package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"
)

// columnGap separates table columns.
const columnGap = "  "

// Statusf prints a progress message to stderr unless --quiet is set. Data
// goes to stdout; only messages for the person at the terminal come here.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if cc.Flags.Quiet {
		return
	}

	fmt.Fprintf(os.Stderr, format, args...)
}

// formatTime renders a due date or expiry for a table cell.
func formatTime(t time.Time) string {
	return formatTimeAt(t, time.Now())
}

// formatTimeAt drops the year for times in now's year and the clock time
// for times in other years.
func formatTimeAt(t, now time.Time) string {
	if t.Year() == now.Year() {
		return t.Format("Mon Jan _2 15:04")
	}

	return t.Format("Jan _2 2006")
}

// printTable writes headers and rows as left-aligned columns. Widths count
// runes so course names with accents line up.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))

	for _, row := range append([][]string{headers}, rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	var b strings.Builder

	for _, row := range append([][]string{headers}, rows...) {
		b.Reset()

		for i, cell := range row {
			if i > 0 {
				b.WriteString(columnGap)
			}

			b.WriteString(cell)

			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
			}
		}

		fmt.Fprintln(w, b.String())
	}
}
