package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/taskdesk/internal/flagx"
	"github.com/dmitrijs2005/taskdesk/internal/timex"
	"github.com/tidwall/jsonc"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Pointer fields distinguish "absent" from "zero", so a file only
// overrides what it mentions. Durations use timex.Duration and may be
// strings like "10s" or integer nanoseconds.
type JsonConfig struct {
	BaseURL        *string         `json:"base_url"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	DatabasePath   *string         `json:"database_path"`
	LogLevel       *string         `json:"log_level"`
	LogFormat      *string         `json:"log_format"`
	LogFile        *string         `json:"log_file"`
	EnforceExpiry  *bool           `json:"enforce_expiry"`
	WatchInterval  *timex.Duration `json:"watch_interval"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The path comes from -c/-config, or $TASKDESK_CONFIG when neither flag is
// given (see flagx.ConfigPath). Comments and trailing commas are allowed.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	if jc.BaseURL != nil {
		cfg.BaseURL = *jc.BaseURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.LogFormat != nil {
		cfg.LogFormat = *jc.LogFormat
	}
	if jc.LogFile != nil {
		cfg.LogFile = *jc.LogFile
	}
	if jc.EnforceExpiry != nil {
		cfg.EnforceExpiry = *jc.EnforceExpiry
	}
	if jc.WatchInterval != nil {
		cfg.WatchInterval = jc.WatchInterval.Duration
	}
}
