// Package logs is a thin wrapper over log/slog configured with functional
// options. JSON output is the default.
package logs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

// ParseLevel maps "debug", "info", "warn" or "error" to a slog level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

type Logger struct {
	slogger *slog.Logger
}

type LogOption func(*logConfig)

type logConfig struct {
	level  slog.Level
	output io.Writer
	json   bool
	attrs  []any
}

func WithLevel(level slog.Level) LogOption {
	return func(c *logConfig) {
		c.level = level
	}
}

func WithOutput(w io.Writer) LogOption {
	return func(c *logConfig) {
		c.output = w
	}
}

// WithJSONFormat switches between JSON and text records.
func WithJSONFormat(enabled bool) LogOption {
	return func(c *logConfig) {
		c.json = enabled
	}
}

// WithAttrs attaches attributes to every record, e.g. the app name.
func WithAttrs(args ...any) LogOption {
	return func(c *logConfig) {
		c.attrs = append(c.attrs, args...)
	}
}

func New(opts ...LogOption) *Logger {
	c := &logConfig{
		level:  slog.LevelInfo,
		output: os.Stdout,
		json:   true,
	}
	for _, opt := range opts {
		opt(c)
	}

	handlerOptions := &slog.HandlerOptions{Level: c.level}

	var handler slog.Handler = slog.NewTextHandler(c.output, handlerOptions)
	if c.json {
		handler = slog.NewJSONHandler(c.output, handlerOptions)
	}

	return &Logger{slogger: slog.New(handler).With(c.attrs...)}
}

// Default returns the process-wide logger, creating it on first use.
func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	defaultLogger.CompareAndSwap(nil, New())
	return defaultLogger.Load()
}

func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{slogger: l.slogger.With(args...)}
}

func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}

// With returns the default logger with args attached.
func With(args ...any) *Logger {
	return Default().With(args...)
}
