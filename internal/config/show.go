package config

import (
	"fmt"
	"io"
)

// redacted replaces secrets in rendered output.
const redacted = "********"

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. Secrets are redacted.
func RenderEffective(cfg *Config, path string, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", path)
	ew.printf("state_dir = %q\n\n", cfg.StatePath())

	ew.printf("[sync]\n")
	ew.printf("  schedule        = %q\n", cfg.Sync.Schedule)
	ew.printf("  user_batch_size = %d\n", cfg.Sync.UserBatchSize)
	ew.printf("  fetch_timeout   = %q\n", cfg.Sync.FetchTimeout)
	ew.printf("  batch_timeout   = %q\n", cfg.Sync.BatchTimeout)
	ew.printf("\n")

	ew.printf("[calendar]\n")
	ew.printf("  workers             = %d\n", cfg.Calendar.Workers)
	ew.printf("  requests_per_second = %g\n", cfg.Calendar.RequestsPerSecond)
	ew.printf("\n")

	ew.printf("[google]\n")
	ew.printf("  client_id     = %q\n", cfg.Google.ClientID)
	ew.printf("  client_secret = %q\n", redact(cfg.Google.ClientSecret))

	if cfg.Google.RedirectURL != "" {
		ew.printf("  redirect_url  = %q\n", cfg.Google.RedirectURL)
	}

	ew.printf("\n")

	ew.printf("[gradescope]\n")
	ew.printf("  base_url = %q\n", cfg.Gradescope.BaseURL)
	ew.printf("  workers  = %d\n", cfg.Gradescope.Workers)
	ew.printf("\n")

	ew.printf("[server]\n")
	ew.printf("  listen = %q\n", cfg.Server.Listen)
	ew.printf("\n")

	ew.printf("[logging]\n")
	ew.printf("  log_level          = %q\n", cfg.Logging.LogLevel)

	if cfg.Logging.LogFile != "" {
		ew.printf("  log_file           = %q\n", cfg.Logging.LogFile)
	}

	ew.printf("  log_format         = %q\n", cfg.Logging.LogFormat)
	ew.printf("  log_retention_days = %d\n", cfg.Logging.LogRetentionDays)
	ew.printf("\n")

	ew.printf("[network]\n")
	ew.printf("  connect_timeout = %q\n", cfg.Network.ConnectTimeout)

	if cfg.Network.UserAgent != "" {
		ew.printf("  user_agent      = %q\n", cfg.Network.UserAgent)
	}

	return ew.err
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}

	return redacted
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// Redacted returns a copy of cfg with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Google.ClientSecret = redact(c.Google.ClientSecret)

	return &out
}
