package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/school-backend/internal/platform/logger"
)

// String returns the trimmed value of name, or def when unset or blank.
// When log is non-nil the resolution is logged at debug level; values are
// passed through the logger's redaction so secrets never reach the output.
func String(name, def string, log *logger.Logger) string {
	v, ok := lookup(name)
	if !ok {
		debug(log, name, "Environment variable not found, using default", def)
		return def
	}
	debug(log, name, "Environment variable found, using environment", v)
	return v
}

func Int(name string, def int, log *logger.Logger) int {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		debug(log, name, "Environment variable could not be parsed as int, using default", def)
		return def
	}
	return i
}

func Float(name string, def float64, log *logger.Logger) float64 {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		debug(log, name, "Environment variable could not be parsed as float, using default", def)
		return def
	}
	return f
}

func Bool(name string, def bool, log *logger.Logger) bool {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	debug(log, name, "Environment variable could not be parsed as bool, using default", def)
	return def
}

// Duration accepts Go duration strings ("90s") or a bare integer of seconds.
func Duration(name string, def time.Duration, log *logger.Logger) time.Duration {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	debug(log, name, "Environment variable could not be parsed as duration, using default", def)
	return def
}

// List splits a comma separated value, dropping blanks.
func List(name string, def []string) []string {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func debug(log *logger.Logger, name, msg string, val interface{}) {
	if log == nil {
		return
	}
	// keyed by the variable name so redaction applies to *_API_KEY, *_SECRET etc.
	log.Debug(msg, "env_var", name, strings.ToLower(name), val)
}
