package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tonimelisma/gradecal/internal/config"
)

// Log file rotation limits.
const (
	logFileMaxSizeMB  = 50
	logFileMaxBackups = 5
)

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. The returned func
// closes the log file, if any.
func buildLogger(cfg *config.Config, flags CLIFlags) (*slog.Logger, func()) {
	level := slog.LevelInfo
	format := "auto"

	var out io.Writer = os.Stderr

	closeFn := func() {}

	if cfg != nil {
		level = parseLevel(cfg.Logging.LogLevel)
		format = cfg.Logging.LogFormat

		if cfg.Logging.LogFile != "" {
			lj := &lumberjack.Logger{
				Filename:   cfg.Logging.LogFile,
				MaxSize:    logFileMaxSizeMB,
				MaxBackups: logFileMaxBackups,
				MaxAge:     cfg.Logging.LogRetentionDays,
				Compress:   true,
			}

			out = lj
			closeFn = func() { _ = lj.Close() }
		}
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if useJSON(format, out) {
		return slog.New(slog.NewJSONHandler(out, opts)), closeFn
	}

	return slog.New(slog.NewTextHandler(out, opts)), closeFn
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// useJSON resolves the "auto" format: text for a terminal, JSON for
// anything else (files, pipes, journald).
func useJSON(format string, out io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := out.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}
