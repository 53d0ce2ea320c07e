// Package observability carries per-invocation logging context (run id, unit, stage)
// through context.Context and emits slog records enriched with it.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/hierbuild/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	RunID     string
	Unit      string
	Stage     string
	Operation string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithRunID adds an invocation id to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	lc := extractLogContext(ctx)
	lc.RunID = runID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithUnit adds a unit display path to the context.
func WithUnit(ctx context.Context, unitPath string) context.Context {
	lc := extractLogContext(ctx)
	lc.Unit = unitPath
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a lifecycle stage name (load, evaluate, execute) to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

// WithOperation adds an operation reference to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	lc := extractLogContext(ctx)
	lc.Operation = operation
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := []slog.Attr{}

	if lc.RunID != "" {
		attrs = append(attrs, logfields.RunID(lc.RunID))
	}
	if lc.Stage != "" {
		attrs = append(attrs, logfields.Stage(lc.Stage))
	}
	if lc.Unit != "" {
		attrs = append(attrs, logfields.Unit(lc.Unit))
	}
	if lc.Operation != "" {
		attrs = append(attrs, logfields.Operation(lc.Operation))
	}
	return attrs
}

func logContext(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	all := make([]slog.Attr, 0, len(attrs)+4)
	for _, a := range getLogAttrs(ctx) {
		if !hasKey(attrs, a.Key) {
			all = append(all, a)
		}
	}
	all = append(all, attrs...)
	slog.LogAttrs(ctx, level, msg, all...)
}

// hasKey reports whether an explicit attribute overrides a context attribute.
func hasKey(attrs []slog.Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelInfo, msg, attrs...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelWarn, msg, attrs...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelError, msg, attrs...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logContext(ctx, slog.LevelDebug, msg, attrs...)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}
