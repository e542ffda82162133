package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{ name string }

var commandKey = contextKey{"command"}

// FieldCommand is the CLI command a record was emitted under.
const FieldCommand = "command"

// ContextWithCommand stores the running CLI command path in ctx.
func ContextWithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, commandKey, command)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if cmd, ok := ctx.Value(commandKey).(string); ok && cmd != "" {
		fields = append(fields, slog.String(FieldCommand, cmd))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
