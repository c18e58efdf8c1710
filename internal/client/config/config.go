package config

import "time"

// Config holds runtime settings for the taskdesk CLI.
//
// Fields:
//   - BaseURL: scheme://host:port of the task-management backend.
//   - RequestTimeout: upper bound for a single backend call.
//   - DatabasePath: SQLite file holding the persisted session.
//   - LogLevel / LogFormat / LogFile: logging setup; an empty LogFile
//     means stderr.
//   - EnforceExpiry: end the session when the token's exp claim passes.
//   - WatchInterval: how often the session watcher checks for expiry.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	DatabasePath   string
	LogLevel       string
	LogFormat      string
	LogFile        string
	EnforceExpiry  bool
	WatchInterval  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "https://localhost:7083"
	c.RequestTimeout = 10 * time.Second
	c.DatabasePath = "taskdesk.db"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.LogFile = ""
	c.EnforceExpiry = true
	c.WatchInterval = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
