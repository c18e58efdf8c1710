package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   backend base URL
//	-t int      request timeout in seconds
//	-d string   path of the local SQLite database
//	-l string   log level (debug, info, warn, error)
//	-e bool     enforce token expiry; use -e=false to disable
//	-w int      session watcher interval in seconds
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-l", "-e", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "backend base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.EnforceExpiry, "e", cfg.EnforceExpiry, "log out when the token expires")
	watch := fs.Int("w", int(cfg.WatchInterval.Seconds()), "session watcher interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.WatchInterval = time.Duration(*watch) * time.Second
}
