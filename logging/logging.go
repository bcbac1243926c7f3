// Package logging builds the process logger: a zap core behind the standard
// library's slog API, which every other package logs through.
package logging

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options selects the level and encoding of the process logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string

	// Format is FormatJSON or FormatConsole. Empty means console.
	Format string
}

// NewZap builds a zap logger writing to stderr. JSON output uses zap's
// production settings, console output its development settings.
func NewZap(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole, "":
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// ParseLevel parses a level name. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewSlog wraps a zap logger's core in a slog.Logger.
func NewSlog(l *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(l.Core()))
}

// New builds the process logger. The returned function flushes buffered
// entries and should be deferred by the caller.
func New(opts Options) (*slog.Logger, func(), error) {
	z, err := NewZap(opts)
	if err != nil {
		return nil, nil, err
	}
	return NewSlog(z), func() { _ = z.Sync() }, nil
}

// Setup builds the process logger and installs it as slog's default.
func Setup(opts Options) (*slog.Logger, func(), error) {
	logger, sync, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, sync, nil
}
