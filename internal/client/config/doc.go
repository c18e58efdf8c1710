// Package config loads runtime configuration for the taskdesk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c or -config, or
//     the TASKDESK_CONFIG environment variable.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   backend base URL (default https://localhost:7083)
//	-t int      request timeout in seconds (default 10)
//	-d string   local database path (default taskdesk.db)
//	-l string   log level (default info)
//	-e bool     enforce token expiry (default true)
//	-w int      session watcher interval in seconds (default 30)
//
// # JSON schema
//
// The file may contain comments. Durations are strings like "10s" or
// integer nanoseconds. Keys left out keep their earlier value:
//
//	{
//	  // dev backend
//	  "base_url": "https://localhost:7083",
//	  "request_timeout": "10s",
//	  "database_path": "taskdesk.db",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "log_file": "taskdesk.log",
//	  "enforce_expiry": true,
//	  "watch_interval": "30s"
//	}
package config
