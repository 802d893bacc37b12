package http

import (
	"context"
	"log/slog"

	"github.com/example/facility-checklists/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger tags the request logger with the handler, the operation and,
// once authenticated, the acting user.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	if principal, ok := PrincipalFromContext(ctx); ok {
		attrs = append(attrs, "user_id", principal.UserID)
	}
	return logging.Component(ctx, fallback, "handler", handlerName, operation, attrs...)
}
