// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the structured logger shared by every stage.
package logging

import (
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured logging surface the stages depend on.
// *charmlog.Logger satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// Level names accepted in configuration.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Config controls logger construction.
type Config struct {
	Level  string
	Output io.Writer
	JSON   bool
}

// ParseLevel maps a configuration level to a charm level. Unknown or empty
// values select info.
func ParseLevel(s string) charmlog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel, "warning":
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// ValidLevel reports whether s is a recognised level name. Empty is valid.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", DebugLevel, InfoLevel, WarnLevel, "warning", ErrorLevel:
		return true
	}
	return false
}

// New returns a logger writing to cfg.Output (stderr when nil).
func New(cfg Config) *charmlog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           ParseLevel(cfg.Level),
	})
	if cfg.JSON {
		l.SetFormatter(charmlog.JSONFormatter)
	}
	return l
}

// Discard returns a logger that drops everything. Useful as a default and in tests.
func Discard() *charmlog.Logger {
	return charmlog.NewWithOptions(io.Discard, charmlog.Options{Level: charmlog.FatalLevel})
}
