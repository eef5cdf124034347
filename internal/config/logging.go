package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const EnvLogLevel = "ECGPIPE_LOG_LEVEL"

// LogLevelFromEnv maps ECGPIPE_LOG_LEVEL onto a zerolog level, defaulting to
// info when unset or unrecognized.
func LogLevelFromEnv() zerolog.Level {
	lvl, _ := parseLevel(os.Getenv(EnvLogLevel))
	return lvl
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
