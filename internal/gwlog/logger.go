// Package gwlog provides context-scoped structured logging for the
// gateway core, grounded on volaticloud/internal/logger's
// context.Context-carried *zap.Logger pattern: a logger is attached once
// at request entry and retrieved downstream without threading it
// through every function signature.
package gwlog

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const loggerKey contextKey = "gwlog.logger"

// With attaches logger to ctx, returning the derived context.
func With(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// From retrieves the logger stored in ctx, never nil: a context with no
// logger attached falls back to a production logger rather than forcing
// every caller to nil-check.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return NewProductionLogger()
}

// WithFields derives a sub-logger carrying fields and re-attaches it to
// ctx, so downstream gwlog.From(ctx) calls pick up the enrichment
// without the caller threading a logger value through.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return With(ctx, From(ctx).With(fields...))
}

// NewProductionLogger builds a JSON-encoded, INFO-and-above logger for
// production environments.
func NewProductionLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewDevelopmentLogger builds a console-encoded, DEBUG-and-above logger
// for local development.
func NewDevelopmentLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewForEnvironment selects a production or development logger by an
// explicit environment name rather than an ambient env-var lookup, since
// this package is consumed by a library core, not just the entrypoint
// binary.
func NewForEnvironment(environment string) *zap.Logger {
	if environment == "development" || environment == "dev" {
		return NewDevelopmentLogger()
	}
	return NewProductionLogger()
}
