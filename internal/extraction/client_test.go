package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/slotsync/internal/application"
)

func TestExtractSendsContextAndDecodesCandidates(t *testing.T) {
	var captured wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/extract" {
			t.Errorf("path = %s, want /extract", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(wireResponse{
			ResponseText: "Noted, you're busy Friday.",
			Operation:    "add_timeslots",
			Candidates: []wireCandidate{{
				Start:  "2024-05-03T09:00:00Z",
				End:    "2024-05-03T17:00:00Z",
				Status: "busy",
				Notes:  "offsite",
			}},
		})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.Extract(context.Background(), Request{
		Text:          "I'm busy on Friday",
		LanguageTag:   "en",
		ReferenceTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		ExistingSlots: []application.TimeSlot{{
			ID:     "t1",
			Start:  time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
			End:    time.Date(2024, 5, 2, 17, 0, 0, 0, time.UTC),
			Status: application.StatusAvailable,
		}},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if captured.Text != "I'm busy on Friday" {
		t.Errorf("forwarded text = %q", captured.Text)
	}
	if len(captured.ExistingSlots) != 1 || captured.ExistingSlots[0].ID != "t1" {
		t.Errorf("forwarded slots = %+v", captured.ExistingSlots)
	}
	if result.ResponseText != "Noted, you're busy Friday." {
		t.Errorf("response text = %q", result.ResponseText)
	}
	if result.Operation != OperationAdd {
		t.Errorf("operation = %v, want OperationAdd", result.Operation)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(result.Candidates))
	}
	candidate := result.Candidates[0]
	if candidate.Status != application.StatusBusy || candidate.Notes != "offsite" {
		t.Errorf("candidate = %+v", candidate)
	}
	if !candidate.Start.Equal(time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("candidate start = %v", candidate.Start)
	}
}

func TestExtractSkipsMalformedCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{
			ResponseText: "ok",
			Candidates: []wireCandidate{
				{Start: "not-a-time", End: "2024-05-03T17:00:00Z", Status: "busy"},
				{Start: "2024-05-03T09:00:00Z", End: "2024-05-03T17:00:00Z", Status: "available"},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.Extract(context.Background(), Request{Text: "hi"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1 after skipping malformed", len(result.Candidates))
	}
	if result.Candidates[0].Status != application.StatusAvailable {
		t.Errorf("kept candidate = %+v", result.Candidates[0])
	}
}

func TestExtractUnknownOperationDegradesToNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(wireResponse{ResponseText: "ok", Operation: "drop_tables"})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	result, err := client.Extract(context.Background(), Request{Text: "hi"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Operation != OperationNone {
		t.Errorf("operation = %v, want OperationNone", result.Operation)
	}
}

func TestExtractServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := client.Extract(context.Background(), Request{Text: "hi"}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}

func TestParseOperationRoundTrip(t *testing.T) {
	for _, op := range []Operation{OperationAdd, OperationUpdate, OperationDelete, OperationMerge} {
		parsed, ok := ParseOperation(op.String())
		if !ok || parsed != op {
			t.Errorf("ParseOperation(%q) = %v, %v", op.String(), parsed, ok)
		}
	}
	if _, ok := ParseOperation("unknown_tool"); ok {
		t.Error("unknown name must not parse")
	}
}
