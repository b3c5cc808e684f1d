// Package logging constructs the structured logger used across the harness.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to w at the given level. Unknown levels
// fall back to info.
func New(w io.Writer, level string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           parseLevel(level),
		Prefix:          "e2e",
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
	})
}

// NewDefault creates a stderr logger, honoring ANYBANK_E2E_LOG_LEVEL.
func NewDefault(level string) *log.Logger {
	if env := os.Getenv("ANYBANK_E2E_LOG_LEVEL"); env != "" {
		level = env
	}
	return New(os.Stderr, level)
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
