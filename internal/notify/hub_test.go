package notify

import (
	"context"
	"testing"
)

func TestHubDeliversToProjectSubscribers(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ch, cancel := hub.Subscribe("p1")
	defer cancel()

	hub.TimeslotsUpdated(context.Background(), "p1", "u1")

	event := <-ch
	if event.Type != EventTimeslotsUpdated || event.ProjectID != "p1" || event.UserID != "u1" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestHubScopesByProject(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ch, cancel := hub.Subscribe("p1")
	defer cancel()

	hub.TimeslotsUpdated(context.Background(), "p2", "")

	select {
	case event := <-ch:
		t.Fatalf("subscriber for p1 received event for %s", event.ProjectID)
	default:
	}
}

func TestHubFirehoseReceivesEverything(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ch, cancel := hub.Subscribe("")
	defer cancel()

	hub.TimeslotsUpdated(context.Background(), "p1", "")
	hub.TimeslotsUpdated(context.Background(), "p2", "")

	first := <-ch
	second := <-ch
	if first.ProjectID != "p1" || second.ProjectID != "p2" {
		t.Fatalf("firehose order wrong: %s then %s", first.ProjectID, second.ProjectID)
	}
}

func TestHubPreservesPerProjectOrder(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ch, cancel := hub.Subscribe("p1")
	defer cancel()

	for i := 0; i < 5; i++ {
		hub.TimeslotsUpdated(context.Background(), "p1", "")
	}
	hub.Publish(context.Background(), Event{Type: EventTimeslotsUpdated, ProjectID: "p1", UserID: "marker"})

	for i := 0; i < 5; i++ {
		if event := <-ch; event.UserID == "marker" {
			t.Fatalf("marker arrived early at position %d", i)
		}
	}
	if event := <-ch; event.UserID != "marker" {
		t.Fatalf("marker missing, got %+v", event)
	}
}

func TestHubDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	_, cancel := hub.Subscribe("p1")
	defer cancel()

	// Publish well past the buffer; overflow is dropped, never blocked on.
	for i := 0; i < subscriberBuffer*3; i++ {
		hub.TimeslotsUpdated(context.Background(), "p1", "")
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ch, cancel := hub.Subscribe("p1")
	cancel()

	if _, open := <-ch; open {
		t.Fatal("channel must be closed after cancel")
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("subscriber count = %d after cancel", hub.SubscriberCount())
	}

	// Publishing after cancel must be a no-op.
	hub.TimeslotsUpdated(context.Background(), "p1", "")
}

func TestHubCloseDisconnectsSubscribers(t *testing.T) {
	hub := NewHub(nil)
	ch, _ := hub.Subscribe("p1")

	hub.Close()

	if _, open := <-ch; open {
		t.Fatal("channel must be closed after hub close")
	}

	late, cancel := hub.Subscribe("p1")
	defer cancel()
	if _, open := <-late; open {
		t.Fatal("subscriptions after close must be immediately closed")
	}
}
