package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("XDG only applies on Linux")
	}

	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	assert.Equal(t, "/xdg/config/gradecal", DefaultConfigDir())
	assert.Equal(t, "/xdg/config/gradecal/config.toml", DefaultConfigPath())
}

func TestDefaultDataDir_XDG(t *testing.T) {
	if runtime.GOOS != platformLinux {
		t.Skip("XDG only applies on Linux")
	}

	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	assert.Equal(t, "/xdg/data/gradecal", DefaultDataDir())
}

func TestStatePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StateDir = "/srv/gradecal"

	assert.Equal(t, "/srv/gradecal/gradecal.db", cfg.DatabasePath())
	assert.Equal(t, "/srv/gradecal/gradecal.pid", cfg.PIDPath())
}

func TestStatePath_ExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.StateDir = "~/gc"

	assert.Equal(t, filepath.Join(home, "gc"), cfg.StatePath())
}

func TestStatePath_DefaultsToDataDir(t *testing.T) {
	assert.Equal(t, DefaultDataDir(), DefaultConfig().StatePath())
}
