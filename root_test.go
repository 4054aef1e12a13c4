package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gradecal/internal/config"
	"github.com/tonimelisma/gradecal/internal/store"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests that
// execute commands must not run in parallel with each other.

// --- buildLogger tests ---

func TestBuildLogger_Default(t *testing.T) {
	t.Parallel()

	logger, closeFn := buildLogger(nil, CLIFlags{})
	defer closeFn()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Logging.LogLevel = "warn"

	logger, closeFn := buildLogger(cfg, CLIFlags{})
	defer closeFn()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
}

func TestBuildLogger_FlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Logging.LogLevel = "error"

	logger, closeFn := buildLogger(cfg, CLIFlags{Verbose: true})
	defer closeFn()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))

	// --quiet wins over --verbose.
	logger, closeFn = buildLogger(cfg, CLIFlags{Verbose: true, Quiet: true})
	defer closeFn()

	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestBuildLogger_LogFileIsJSONInAutoFormat(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Logging.LogFile = filepath.Join(t.TempDir(), "gradecal.log")

	logger, closeFn := buildLogger(cfg, CLIFlags{})
	logger.Info("hello", slog.String("user_id", "u1"))
	closeFn()

	data, err := os.ReadFile(cfg.Logging.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"user_id":"u1"`)
}

func TestUseJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	assert.True(t, useJSON("json", os.Stderr))
	assert.False(t, useJSON("text", &buf))
	assert.True(t, useJSON("auto", &buf), "non-file writers are never terminals")
}

// --- command execution ---

// runCLI executes the root command with args against an isolated config
// path and state directory.
func runCLI(t *testing.T, stateDir string, args ...string) error {
	t.Helper()

	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvStateDir, "")
	t.Setenv(config.EnvLogLevel, "")

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(stateDir, "missing.toml"),
		"--state-dir", stateDir,
		"--quiet",
	}, args...))

	return cmd.ExecuteContext(context.Background())
}

func openTestStore(t *testing.T, stateDir string) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(stateDir, "gradecal.db"),
		slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return st
}

func TestCLI_UserAndSettings(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, runCLI(t, dir, "user", "add", "alice"))
	require.NoError(t, runCLI(t, dir, "settings", "set", "alice",
		"--calendar", "cal@group.calendar.google.com", "--completed-color", "8"))

	st := openTestStore(t, dir)
	ctx := context.Background()

	ok, err := st.HasUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	settings, err := st.Settings(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "cal@group.calendar.google.com", settings.CalendarID)
	assert.Equal(t, "8", settings.CompletedColor)

	require.NoError(t, runCLI(t, dir, "user", "remove", "alice"))

	ok, err = st.HasUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCLI_SettingsSetRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, runCLI(t, dir, "user", "add", "bob"))

	err := runCLI(t, dir, "settings", "set", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")

	err = runCLI(t, dir, "settings", "set", "bob", "--completed-color", "12")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid color")

	err = runCLI(t, dir, "settings", "set", "bob", "--calendar", "invalid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid calendar ID")
}

func TestCLI_SyncRequiresGoogleClient(t *testing.T) {
	dir := t.TempDir()

	t.Setenv(config.EnvGoogleClientID, "")
	t.Setenv(config.EnvGoogleClientSecret, "")

	err := runCLI(t, dir, "sync", "--user", "alice")
	assert.ErrorIs(t, err, errGoogleClientMissing)
}

func TestCLI_InvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[sync]\nuser_batch_size = 0\n"), 0o600))

	t.Setenv(config.EnvConfig, path)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--state-dir", dir, "user", "list"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.user_batch_size")
}

func TestCLIOverrides_StateDirOnlyWhenSet(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", "/tmp/x.toml"}))

	cli := cliOverrides(cmd, CLIFlags{ConfigPath: "/tmp/x.toml"})
	assert.Equal(t, "/tmp/x.toml", cli.ConfigPath)
	assert.Nil(t, cli.StateDir)

	require.NoError(t, cmd.ParseFlags([]string{"--state-dir", "/srv/gradecal"}))

	cli = cliOverrides(cmd, CLIFlags{StateDir: "/srv/gradecal"})
	require.NotNil(t, cli.StateDir)
	assert.Equal(t, "/srv/gradecal", *cli.StateDir)
}

func TestMustCLIContext_PanicsWhenMissing(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}
