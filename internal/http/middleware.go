package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/slotsync/internal/application"
)

// IdentityResolver turns the external handle carried on a request into an
// internal user, registering it on first contact.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, params application.RegisterUserParams) (application.User, error)
}

// RequireIdentity resolves the sender from the X-User-Handle header and
// injects the resulting user into the request context. Requests without a
// handle are rejected.
func RequireIdentity(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handle := strings.TrimSpace(r.Header.Get("X-User-Handle"))
			if handle == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingUserHandle)
				return
			}

			user, err := resolver.ResolveUser(r.Context(), application.RegisterUserParams{
				ExternalHandle: handle,
				FirstName:      strings.TrimSpace(r.Header.Get("X-User-First-Name")),
				LastName:       strings.TrimSpace(r.Header.Get("X-User-Last-Name")),
				LanguageTag:    strings.TrimSpace(r.Header.Get("X-User-Language")),
			})
			if err != nil {
				responder.handleServiceError(r.Context(), w, err)
				return
			}

			ctx := ContextWithIdentity(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request-scoped logger to the context and records
// one line at start and completion of every request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
