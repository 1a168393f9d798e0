package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/example/slotsync/internal/application"
)

var (
	errBadRequestBody       = errors.New("request body is not valid JSON")
	errInvalidProjectID     = errors.New("project id is missing or invalid")
	errMissingUserHandle    = errors.New("X-User-Handle header is required")
	errEmptyBatch           = errors.New("the request names no timeslots")
	errStreamingUnsupported = errors.New("streaming is not supported by this connection")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, failureResponse{Success: false, Error: message})
}

// handleServiceError maps the closed store error set onto HTTP statuses. The
// error detail travels in the body verbatim except for internal errors,
// which stay generic.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var notFound *application.NotFoundError
	if errors.As(err, &notFound) {
		r.writeJSON(ctx, w, http.StatusNotFound, failureResponse{Success: false, Error: notFound.Error()})
		return
	}
	var crossProject *application.CrossProjectError
	if errors.As(err, &crossProject) {
		r.writeJSON(ctx, w, http.StatusConflict, failureResponse{Success: false, Error: crossProject.Error()})
		return
	}
	var forbidden *application.ForbiddenError
	if errors.As(err, &forbidden) {
		r.writeJSON(ctx, w, http.StatusForbidden, failureResponse{Success: false, Error: forbidden.Error()})
		return
	}
	var validation *application.ValidationError
	if errors.As(err, &validation) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, failureResponse{
			Success: false,
			Error:   validationDetail(validation),
		})
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "internal failure", "error", err)
	r.writeJSON(ctx, w, http.StatusInternalServerError, failureResponse{Success: false, Error: "internal error"})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func validationDetail(validation *application.ValidationError) string {
	if validation == nil || len(validation.FieldErrors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(validation.FieldErrors))
	for field, message := range validation.FieldErrors {
		parts = append(parts, field+": "+message)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
