package http

import (
	"context"
	"log/slog"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/logging"
)

type contextKey string

const (
	identityContextKey  contextKey = "identity"
	projectIDContextKey contextKey = "project_id"
)

// ContextWithLogger returns a derived context carrying a request-scoped
// logger. The logger rides the shared logging key so the application layer
// picks it up too.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request-scoped logger if one was injected.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithIdentity returns a derived context carrying the resolved sender.
func ContextWithIdentity(ctx context.Context, user application.User) context.Context {
	return context.WithValue(ctx, identityContextKey, user)
}

// IdentityFromContext extracts the resolved sender from context if available.
func IdentityFromContext(ctx context.Context) (application.User, bool) {
	user, ok := ctx.Value(identityContextKey).(application.User)
	return user, ok
}

// ContextWithProjectID injects the project identifier resolved from the
// request path.
func ContextWithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDContextKey, projectID)
}

// ProjectIDFromContext extracts a project identifier previously associated
// with the context.
func ProjectIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(projectIDContextKey).(string)
	return id, ok
}
