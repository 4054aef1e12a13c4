package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// ResolvePath picks the config file path: CLI > env > platform default.
func ResolvePath(env EnvOverrides, cli CLIOverrides) string {
	if cli.ConfigPath != "" {
		return cli.ConfigPath
	}

	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}

// Resolve loads the config file at path and applies the environment and
// CLI layers on top. The result is validated again since overrides can
// introduce bad values.
func Resolve(path string, env EnvOverrides, cli CLIOverrides) (*Config, error) {
	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	ApplyEnv(cfg, env)

	if cli.StateDir != nil {
		cfg.StateDir = *cli.StateDir
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}
