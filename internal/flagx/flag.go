// Package flagx contains helpers that let several independent flag sets
// share os.Args without tripping over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnvVar names the environment variable consulted by ConfigPath when
// neither -c nor -config is given.
const ConfigEnvVar = "TASKDESK_CONFIG"

// FilterArgs returns the subset of args made of the allowed flags and
// their values.
//
// Supported forms, for an allowed name "-c":
//
//	-c conf.json
//	-c=conf.json
//	--c conf.json
//	--c=conf.json
//
// A value is only consumed when the following argument does not start
// with '-'. Boolean flags must therefore use the "=" form to carry a value
// ("-e=false"); a bare "-e" is kept on its own.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags)*2)
	for _, f := range allowedFlags {
		name := strings.TrimLeft(f, "-")
		allowed["-"+name] = struct{}{}
		allowed["--"+name] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigPath extracts the config file path from args (-c or -config).
// When neither flag is present it falls back to $TASKDESK_CONFIG, and
// returns "" if that is unset too.
func ConfigPath(args []string) string {
	var config string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	fs.SetOutput(nopWriter{})
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if config == "" {
		config = os.Getenv(ConfigEnvVar)
	}
	return config
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
