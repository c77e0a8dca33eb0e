package logger

import (
	"context"
	"log/slog"
)

// contextKey keeps our context entry collision-free.
type contextKey struct{}

// WithContext stores a request-scoped logger in the context.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext retrieves the context logger, falling back to
// slog.Default so callers never handle nil.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
