package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	defaults := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "http://tasks.internal:8080", "-t", "3", "-d", "/tmp/s.db", "-l", "debug", "-e=false", "-w", "5"},
			expected: &Config{
				BaseURL:        "http://tasks.internal:8080",
				RequestTimeout: 3 * time.Second,
				DatabasePath:   "/tmp/s.db",
				LogLevel:       "debug",
				LogFormat:      "text",
				EnforceExpiry:  false,
				WatchInterval:  5 * time.Second,
			},
		},
		{
			name:     "no flags keeps defaults",
			args:     []string{"cmd"},
			expected: defaults(),
		},
		{
			name: "unrelated flags are ignored",
			args: []string{"cmd", "-c", "cfg.json", "-x", "-a", "http://h:1"},
			expected: func() *Config {
				c := defaults()
				c.BaseURL = "http://h:1"
				return c
			}(),
		},
		{name: "incorrect timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true},
		{name: "incorrect watch interval", args: []string{"cmd", "-w", "1.5"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := defaults()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}

			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
