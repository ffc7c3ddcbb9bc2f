// Package gwlog wires the gateway's process-wide structured logger.
// It is initialized exactly once at startup from LOG_LEVEL/LOG_FORMAT and
// never reconfigured afterward, per the gateway's global-logging discipline.
package gwlog

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
})

// Init configures the process-wide logger from LOG_LEVEL and LOG_FORMAT.
// Call once, at startup, before any component logs.
func Init(level, format string) {
	base.SetLevel(parseLevel(level))
	if strings.EqualFold(format, "json") {
		base.SetFormatter(log.JSONFormatter)
	} else {
		base.SetFormatter(log.TextFormatter)
	}
}

// Named returns a logger scoped to a component, e.g. gwlog.Named("supervisor").
func Named(component string) *log.Logger {
	return base.With("component", component)
}

func parseLevel(level string) log.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return log.DebugLevel
	case "WARNING", "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
