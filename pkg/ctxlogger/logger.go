package ctxlogger

import (
	"context"

	"github.com/IsaacDSC/eeudesk/pkg/logs"
)

type loggerKey struct{}

// WithLogger stores logger in ctx so downstream calls log with the same attributes.
func WithLogger(ctx context.Context, logger *logs.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger stored in ctx, or the default logger.
func GetLogger(ctx context.Context) *logs.Logger {
	if ctx == nil {
		return logs.Default()
	}

	if logger, ok := ctx.Value(loggerKey{}).(*logs.Logger); ok && logger != nil {
		return logger
	}

	return logs.Default()
}
