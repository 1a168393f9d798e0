// Package notify fans committed mutation events out to connected observers.
//
// Delivery is at-least-once and best-effort: per-project event order matches
// the order mutations were committed, a slow or disconnected observer loses
// events rather than blocking the publisher, and consumers are expected to
// refetch state rather than trusting payloads as diffs.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// EventTimeslotsUpdated is the single outbound event type.
const EventTimeslotsUpdated = "timeslots_updated"

// Event describes a committed change to a project's slot collection. UserID
// is present only for additions.
type Event struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId,omitempty"`
}

// subscriberBuffer bounds how many undelivered events a single observer may
// accumulate before the hub starts dropping for it.
const subscriberBuffer = 16

type subscriber struct {
	projectID string // empty subscribes to every project
	ch        chan Event
}

// Hub is an in-process broadcast hub keyed by project.
type Hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscriber
	closed bool
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, subs: make(map[uint64]*subscriber)}
}

// Subscribe registers an observer for one project's events, or for every
// project when projectID is empty. The returned cancel function must be
// called when the observer disconnects.
func (h *Hub) Subscribe(projectID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = &subscriber{projectID: projectID, ch: ch}

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// TimeslotsUpdated implements the store's notifier contract.
func (h *Hub) TimeslotsUpdated(ctx context.Context, projectID, userID string) {
	h.Publish(ctx, Event{Type: EventTimeslotsUpdated, ProjectID: projectID, UserID: userID})
}

// Publish delivers the event to every matching subscriber without blocking.
// A full subscriber buffer drops the event for that subscriber only; the
// drop is logged and never fails the publisher.
func (h *Hub) Publish(ctx context.Context, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	for id, sub := range h.subs {
		if sub.projectID != "" && sub.projectID != event.ProjectID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			h.logger.WarnContext(ctx, "dropping event for slow subscriber",
				"subscriber_id", id, "project_id", event.ProjectID)
		}
	}
}

// SubscriberCount reports the number of registered observers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects further registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
