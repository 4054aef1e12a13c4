package config

// Default values for configuration options. These are layer 0 of the
// override chain.
const (
	defaultSchedule          = "0 */6 * * *"
	defaultUserBatchSize     = 16
	defaultFetchTimeout      = "60s"
	defaultBatchTimeout      = "120s"
	defaultCalendarWorkers   = 4
	defaultCalendarRPS       = 5.0
	defaultGradescopeBaseURL = "https://www.gradescope.com"
	defaultGradescopeWorkers = 4
	defaultListen            = "127.0.0.1:8470"
	defaultLogLevel          = "info"
	defaultLogFormat         = "auto"
	defaultLogRetentionDays  = 30
	defaultConnectTimeout    = "10s"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			Schedule:      defaultSchedule,
			UserBatchSize: defaultUserBatchSize,
			FetchTimeout:  defaultFetchTimeout,
			BatchTimeout:  defaultBatchTimeout,
		},
		Calendar: CalendarConfig{
			Workers:           defaultCalendarWorkers,
			RequestsPerSecond: defaultCalendarRPS,
		},
		Gradescope: GradescopeConfig{
			BaseURL: defaultGradescopeBaseURL,
			Workers: defaultGradescopeWorkers,
		},
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Logging: LoggingConfig{
			LogLevel:         defaultLogLevel,
			LogFormat:        defaultLogFormat,
			LogRetentionDays: defaultLogRetentionDays,
		},
		Network: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
		},
	}
}
