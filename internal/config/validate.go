package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// Validation range constants.
const (
	minUserBatchSize   = 1
	maxUserBatchSize   = 256
	minCalendarWorkers = 1
	maxCalendarWorkers = 32
	minSourceWorkers   = 1
	maxSourceWorkers   = 16
	maxRequestsPerSec  = 100.0
	minLogRetention    = 1
	minFetchTimeout    = 5 * time.Second
	minBatchTimeout    = 5 * time.Second
	minConnectTimeout  = 1 * time.Second
	allowedLogLevels   = "debug, info, warn, error"
	allowedLogFormats  = "auto, text, json"
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateSync(&cfg.Sync)...)
	errs = append(errs, validateCalendar(&cfg.Calendar)...)
	errs = append(errs, validateGoogle(&cfg.Google)...)
	errs = append(errs, validateGradescope(&cfg.Gradescope)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

func validateSync(s *SyncConfig) []error {
	var errs []error

	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("sync.schedule: %w", err))
	}

	if s.UserBatchSize < minUserBatchSize || s.UserBatchSize > maxUserBatchSize {
		errs = append(errs, fmt.Errorf("sync.user_batch_size: must be between %d and %d, got %d",
			minUserBatchSize, maxUserBatchSize, s.UserBatchSize))
	}

	errs = append(errs, validateDuration("sync.fetch_timeout", s.FetchTimeout, minFetchTimeout)...)
	errs = append(errs, validateDuration("sync.batch_timeout", s.BatchTimeout, minBatchTimeout)...)

	return errs
}

func validateCalendar(c *CalendarConfig) []error {
	var errs []error

	if c.Workers < minCalendarWorkers || c.Workers > maxCalendarWorkers {
		errs = append(errs, fmt.Errorf("calendar.workers: must be between %d and %d, got %d",
			minCalendarWorkers, maxCalendarWorkers, c.Workers))
	}

	if c.RequestsPerSecond <= 0 || c.RequestsPerSecond > maxRequestsPerSec {
		errs = append(errs, fmt.Errorf("calendar.requests_per_second: must be in (0, %g], got %g",
			maxRequestsPerSec, c.RequestsPerSecond))
	}

	return errs
}

func validateGoogle(g *GoogleConfig) []error {
	if g.RedirectURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(g.RedirectURL); err != nil {
		return []error{fmt.Errorf("google.redirect_url: %w", err)}
	}

	return nil
}

func validateGradescope(g *GradescopeConfig) []error {
	var errs []error

	u, err := url.Parse(g.BaseURL)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("gradescope.base_url: %w", err))
	case u.Scheme != "https" && u.Scheme != "http", u.Host == "":
		errs = append(errs, fmt.Errorf("gradescope.base_url: must be an absolute http(s) URL, got %q", g.BaseURL))
	}

	if g.Workers < minSourceWorkers || g.Workers > maxSourceWorkers {
		errs = append(errs, fmt.Errorf("gradescope.workers: must be between %d and %d, got %d",
			minSourceWorkers, maxSourceWorkers, g.Workers))
	}

	return errs
}

func validateServer(s *ServerConfig) []error {
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return []error{fmt.Errorf("server.listen: %w", err)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	switch l.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of %s, got %q", allowedLogLevels, l.LogLevel))
	}

	switch l.LogFormat {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of %s, got %q", allowedLogFormats, l.LogFormat))
	}

	if l.LogRetentionDays < minLogRetention {
		errs = append(errs, fmt.Errorf("logging.log_retention_days: must be >= %d, got %d",
			minLogRetention, l.LogRetentionDays))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	return validateDuration("network.connect_timeout", n.ConnectTimeout, minConnectTimeout)
}

// validateDuration checks that s parses and is at least minimum.
func validateDuration(field, s string, minimum time.Duration) []error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, s, err)}
	}

	if d < minimum {
		return []error{fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)}
	}

	return nil
}
