// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for gradecal. Values are layered:
// defaults -> config file -> environment -> CLI flags.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	StateDir   string           `toml:"state_dir"`
	Sync       SyncConfig       `toml:"sync"`
	Calendar   CalendarConfig   `toml:"calendar"`
	Google     GoogleConfig     `toml:"google"`
	Gradescope GradescopeConfig `toml:"gradescope"`
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	Network    NetworkConfig    `toml:"network"`
}

// SyncConfig controls the bulk job and the per-pass deadlines.
type SyncConfig struct {
	Schedule      string `toml:"schedule"` // standard 5-field cron expression
	UserBatchSize int    `toml:"user_batch_size"`
	FetchTimeout  string `toml:"fetch_timeout"`
	BatchTimeout  string `toml:"batch_timeout"`
}

// CalendarConfig bounds calendar API usage per user.
type CalendarConfig struct {
	Workers           int     `toml:"workers"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// GoogleConfig holds the OAuth2 client registration.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// GradescopeConfig points the assignment source at a Gradescope instance.
type GradescopeConfig struct {
	BaseURL string `toml:"base_url"`
	Workers int    `toml:"workers"` // concurrent course page fetches per user
}

// ServerConfig controls the HTTP surface started by serve.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// LoggingConfig controls log output behavior: level, format, and rotation.
type LoggingConfig struct {
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	LogFormat        string `toml:"log_format"`
	LogRetentionDays int    `toml:"log_retention_days"`
}

// NetworkConfig controls outbound HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	StateDir   *string // --state-dir flag
}

// FetchTimeoutDuration returns the parsed fetch deadline. Zero means none.
func (s *SyncConfig) FetchTimeoutDuration() time.Duration {
	return parseDurationOrZero(s.FetchTimeout)
}

// BatchTimeoutDuration returns the parsed batch deadline. Zero means none.
func (s *SyncConfig) BatchTimeoutDuration() time.Duration {
	return parseDurationOrZero(s.BatchTimeout)
}

// ConnectTimeoutDuration returns the parsed dial timeout.
func (n *NetworkConfig) ConnectTimeoutDuration() time.Duration {
	return parseDurationOrZero(n.ConnectTimeout)
}

// parseDurationOrZero parses a duration already checked by Validate.
func parseDurationOrZero(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}

	return d
}
