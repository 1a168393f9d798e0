package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/slotsync/internal/notify"
)

const heartbeatInterval = 25 * time.Second

type eventSource interface {
	Subscribe(projectID string) (<-chan notify.Event, func())
}

// EventsHandler streams change notifications over server-sent events.
type EventsHandler struct {
	source    eventSource
	responder responder
}

func NewEventsHandler(source eventSource, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{source: source, responder: newResponder(logger)}
}

// Stream subscribes the client to change notifications. A project_id query
// parameter scopes the stream to one project; without it the client sees
// every project's events. Periodic comment lines keep intermediaries from
// closing an otherwise quiet connection.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.source == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	projectID := strings.TrimSpace(r.URL.Query().Get("project_id"))
	events, cancel := h.source.Subscribe(projectID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	logger := handlerLogger(r.Context(), h.responder.logger, "events", "stream", "project_id", projectID)
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				logger.ErrorContext(r.Context(), "failed to encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
