package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/reconcile"
)

const defaultTimeout = 20 * time.Second

// Client talks to the extraction service over HTTP. The wire contract is a
// single POST of the request document, answered with a response document.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// ClientConfig carries the settings required to construct a Client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewClient constructs a Client. BaseURL is required.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("extraction: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

type wireSlot struct {
	ID     string `json:"id,omitempty"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
	Label  string `json:"label,omitempty"`
}

type wireRequest struct {
	Text          string     `json:"text"`
	Language      string     `json:"language,omitempty"`
	ReferenceTime string     `json:"reference_time"`
	ExistingSlots []wireSlot `json:"existing_slots"`
}

type wireCandidate struct {
	ID           string `json:"id,omitempty"`
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	Status       string `json:"status,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Label        string `json:"label,omitempty"`
	TargetStatus string `json:"target_status,omitempty"`
}

type wireResponse struct {
	ResponseText string          `json:"response_text"`
	Operation    string          `json:"operation,omitempty"`
	Candidates   []wireCandidate `json:"candidates"`
	SlotIDs      []string        `json:"slot_ids,omitempty"`
}

// Extract posts the request to the service and decodes the answer. Transport
// and decoding failures surface as errors; malformed individual candidates
// are skipped with a warning rather than failing the whole call.
func (c *Client) Extract(ctx context.Context, req Request) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("extraction: client is nil")
	}

	payload := wireRequest{
		Text:          req.Text,
		Language:      req.LanguageTag,
		ReferenceTime: req.ReferenceTime.UTC().Format(time.RFC3339),
		ExistingSlots: make([]wireSlot, 0, len(req.ExistingSlots)),
	}
	for _, slot := range req.ExistingSlots {
		payload.ExistingSlots = append(payload.ExistingSlots, wireSlot{
			ID:     slot.ID,
			Start:  slot.Start.UTC().Format(time.RFC3339),
			End:    slot.End.UTC().Format(time.RFC3339),
			Status: string(slot.Status),
			Notes:  slot.Notes,
			Label:  slot.Label,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("extraction: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("extraction: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("extraction: call service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("extraction: service returned status %d", resp.StatusCode)
	}

	var decoded wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("extraction: decode response: %w", err)
	}

	return c.toResult(decoded), nil
}

func (c *Client) toResult(decoded wireResponse) Result {
	operation, ok := ParseOperation(decoded.Operation)
	if !ok {
		c.logger.Warn("unknown extraction operation, ignoring",
			slog.String("operation", decoded.Operation))
		operation = OperationNone
	}

	result := Result{
		ResponseText: decoded.ResponseText,
		Operation:    operation,
		SlotIDs:      decoded.SlotIDs,
	}
	for _, wire := range decoded.Candidates {
		candidate, err := parseCandidate(wire)
		if err != nil {
			c.logger.Warn("skipping malformed extraction candidate",
				slog.String("error", err.Error()))
			continue
		}
		result.Candidates = append(result.Candidates, candidate)
	}
	return result
}

func parseCandidate(wire wireCandidate) (reconcile.Candidate, error) {
	candidate := reconcile.Candidate{
		ID:    wire.ID,
		Notes: wire.Notes,
		Label: wire.Label,
	}

	var err error
	if wire.Start != "" {
		if candidate.Start, err = time.Parse(time.RFC3339, wire.Start); err != nil {
			return reconcile.Candidate{}, fmt.Errorf("bad start %q: %w", wire.Start, err)
		}
	}
	if wire.End != "" {
		if candidate.End, err = time.Parse(time.RFC3339, wire.End); err != nil {
			return reconcile.Candidate{}, fmt.Errorf("bad end %q: %w", wire.End, err)
		}
	}
	if wire.Status != "" {
		status, ok := application.ParseSlotStatus(wire.Status)
		if !ok {
			return reconcile.Candidate{}, fmt.Errorf("bad status %q", wire.Status)
		}
		candidate.Status = status
	}
	if wire.TargetStatus != "" {
		status, ok := application.ParseSlotStatus(wire.TargetStatus)
		if !ok {
			return reconcile.Candidate{}, fmt.Errorf("bad target status %q", wire.TargetStatus)
		}
		candidate.TargetStatus = &status
	}
	return candidate, nil
}
