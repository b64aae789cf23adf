package bserve

import (
	"context"

	"github.com/advdv/bkoa"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding suitable for CloudWatch.
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogUnhandledError(err error) {
	l.Logger.Error("unhandled error", zap.Error(err))
}

func (l zapLogger) LogTransportError(err error) {
	l.Logger.Error("error while writing response", zap.Error(err))
}

// NewZapLogger adapts l so the application reports through it.
func NewZapLogger(l *zap.Logger) bkoa.Logger {
	return zapLogger{l.Named("bkoa")}
}

type ctxKey int

const ctxKeyLogger ctxKey = iota

// withLogger makes the logger available to [Log] for the rest of the request.
func withLogger(logs *zap.Logger) bkoa.Middleware {
	return func(c *bkoa.Context, next bkoa.Next) error {
		c.SetValue(ctxKeyLogger, logs)

		return next()
	}
}

// Log returns a trace-correlated zap logger from the context. It accepts the request's
// *bkoa.Context or any context derived from it.
func Log(ctx context.Context) *zap.Logger {
	logs, ok := ctx.Value(ctxKeyLogger).(*zap.Logger)
	if !ok {
		panic("bserve: logger not found in context; is the middleware configured?")
	}

	return logs.With(traceFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// traceFields extracts trace_id and span_id from the context for log correlation.
func traceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}

	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
