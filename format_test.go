package main

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "Sun Mar 15 10:30",
		formatTimeAt(time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC), now))
	assert.Equal(t, "Dec 25 2025",
		formatTimeAt(time.Date(2025, time.December, 25, 8, 0, 0, 0, time.UTC), now))
}

func TestPrintTable_AlignsColumns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	printTable(&buf, []string{"COURSE", "NAME", "DUE"}, [][]string{
		{"100", "Homework 1", "Jan 15"},
		{"22104", "Projet réseau", "Feb  1"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	runeCol := func(line, sub string) int {
		return utf8.RuneCountInString(line[:strings.Index(line, sub)])
	}

	assert.Equal(t, runeCol(lines[0], "NAME"), runeCol(lines[1], "Homework 1"))
	assert.Equal(t, runeCol(lines[0], "DUE"), runeCol(lines[2], "Feb"))

	for _, l := range lines {
		assert.Equal(t, strings.TrimRight(l, " "), l, "no trailing padding")
	}
}

func TestStatusf_QuietWritesNothing(t *testing.T) {
	cc := &CLIContext{Flags: CLIFlags{Quiet: true}}
	cc.Statusf("hello %s\n", "world")
}
