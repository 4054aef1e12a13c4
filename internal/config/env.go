package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment variable names for overrides.
const (
	EnvConfig             = "GRADECAL_CONFIG"
	EnvStateDir           = "GRADECAL_STATE_DIR"
	EnvGoogleClientID     = "GRADECAL_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GRADECAL_GOOGLE_CLIENT_SECRET"
	EnvLogLevel           = "GRADECAL_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables. Empty
// fields were not set.
type EnvOverrides struct {
	ConfigPath         string `env:"GRADECAL_CONFIG"`
	StateDir           string `env:"GRADECAL_STATE_DIR"`
	GoogleClientID     string `env:"GRADECAL_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GRADECAL_GOOGLE_CLIENT_SECRET"`
	LogLevel           string `env:"GRADECAL_LOG_LEVEL"`
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify a Config; see ApplyEnv.
func ReadEnvOverrides() (EnvOverrides, error) {
	var e EnvOverrides
	if err := env.Parse(&e); err != nil {
		return EnvOverrides{}, fmt.Errorf("parse env: %w", err)
	}

	return e, nil
}

// ApplyEnv copies every set override into cfg.
func ApplyEnv(cfg *Config, e EnvOverrides) {
	if e.StateDir != "" {
		cfg.StateDir = e.StateDir
	}

	if e.GoogleClientID != "" {
		cfg.Google.ClientID = e.GoogleClientID
	}

	if e.GoogleClientSecret != "" {
		cfg.Google.ClientSecret = e.GoogleClientSecret
	}

	if e.LogLevel != "" {
		cfg.Logging.LogLevel = e.LogLevel
	}
}
