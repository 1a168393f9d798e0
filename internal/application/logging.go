package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/slotsync/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOr(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps the closed error taxonomy to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var crossProject *CrossProjectError
	if errors.As(err, &crossProject) {
		return "cross_project"
	}
	var forbidden *ForbiddenError
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	if errors.Is(err, ErrInternal) {
		return "internal"
	}

	return "unexpected"
}
