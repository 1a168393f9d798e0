package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/slotsync/internal/application"
)

type timeslotService interface {
	AddTimeslots(ctx context.Context, params application.AddTimeslotsParams) ([]application.TimeSlot, error)
	UpdateTimeslots(ctx context.Context, params application.UpdateTimeslotsParams) ([]application.TimeSlot, error)
	DeleteTimeslots(ctx context.Context, params application.DeleteTimeslotsParams) (int, error)
	MergeTimeslots(ctx context.Context, params application.MergeTimeslotsParams) (application.TimeSlot, error)
	GetUserTimeslots(ctx context.Context, projectID, userID string) []application.TimeSlot
	GetProjectTimeslots(ctx context.Context, projectID string) []application.TimeSlot
}

type TimeslotHandler struct {
	service   timeslotService
	responder responder
}

func NewTimeslotHandler(service timeslotService, logger *slog.Logger) *TimeslotHandler {
	return &TimeslotHandler{service: service, responder: newResponder(logger)}
}

func (h *TimeslotHandler) Add(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID, ok := ProjectIDFromContext(r.Context())
	if !ok || strings.TrimSpace(projectID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProjectID)
		return
	}

	var req addTimeslotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	items, err := req.toInputs()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	created, err := h.service.AddTimeslots(r.Context(), application.AddTimeslotsParams{
		ProjectID:   projectID,
		ForUserID:   strings.TrimSpace(req.UserID),
		CreatedByID: strings.TrimSpace(req.CreatedByID),
		Items:       items,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, timeslotsResponse{
		Success:   true,
		Timeslots: toTimeslotDTOs(created),
	})
}

func (h *TimeslotHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID, ok := ProjectIDFromContext(r.Context())
	if !ok || strings.TrimSpace(projectID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProjectID)
		return
	}

	var req updateTimeslotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updates, err := req.toUpdates()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	updated, err := h.service.UpdateTimeslots(r.Context(), application.UpdateTimeslotsParams{
		ProjectID:     projectID,
		RequestUserID: strings.TrimSpace(req.RequestUserID),
		Updates:       updates,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, timeslotsResponse{
		Success:   true,
		Timeslots: toTimeslotDTOs(updated),
	})
}

func (h *TimeslotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID, ok := ProjectIDFromContext(r.Context())
	if !ok || strings.TrimSpace(projectID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProjectID)
		return
	}

	var req deleteTimeslotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if len(req.TimeslotIDs) == 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errEmptyBatch)
		return
	}

	deleted, err := h.service.DeleteTimeslots(r.Context(), application.DeleteTimeslotsParams{
		ProjectID:     projectID,
		RequestUserID: strings.TrimSpace(req.RequestUserID),
		IDs:           req.TimeslotIDs,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, deleteTimeslotsResponse{
		Success:      true,
		DeletedCount: deleted,
	})
}

func (h *TimeslotHandler) Merge(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID, ok := ProjectIDFromContext(r.Context())
	if !ok || strings.TrimSpace(projectID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProjectID)
		return
	}

	var req mergeTimeslotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	merged, err := h.service.MergeTimeslots(r.Context(), application.MergeTimeslotsParams{
		ProjectID:     projectID,
		RequestUserID: strings.TrimSpace(req.RequestUserID),
		IDs:           req.TimeslotIDs,
		MergedNotes:   req.MergedNotes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, timeslotsResponse{
		Success:   true,
		Timeslots: toTimeslotDTOs([]application.TimeSlot{merged}),
	})
}

// List answers the ordered slot listing. With a user_id query parameter the
// listing narrows to that user's slots; both forms degrade to an empty array
// on internal failure.
func (h *TimeslotHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID, ok := ProjectIDFromContext(r.Context())
	if !ok || strings.TrimSpace(projectID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidProjectID)
		return
	}

	var slots []application.TimeSlot
	if userID := strings.TrimSpace(r.URL.Query().Get("user_id")); userID != "" {
		slots = h.service.GetUserTimeslots(r.Context(), projectID, userID)
	} else {
		slots = h.service.GetProjectTimeslots(r.Context(), projectID)
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimeslotDTOs(slots))
}

type addItemDTO struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	IsLocked  bool   `json:"isLocked"`
}

type addTimeslotsRequest struct {
	UserID      string       `json:"userId"`
	CreatedByID string       `json:"createdById"`
	Timeslots   []addItemDTO `json:"timeslots"`
}

func (r addTimeslotsRequest) toInputs() ([]application.TimeslotInput, error) {
	inputs := make([]application.TimeslotInput, 0, len(r.Timeslots))
	fieldErrors := make(map[string]string)
	for i, item := range r.Timeslots {
		start, err := parseTime(item.StartTime)
		if err != nil {
			fieldErrors[fmt.Sprintf("timeslots[%d].startTime", i)] = "startTime is not a valid timestamp"
		}
		end, err := parseTime(item.EndTime)
		if err != nil {
			fieldErrors[fmt.Sprintf("timeslots[%d].endTime", i)] = "endTime is not a valid timestamp"
		}
		inputs = append(inputs, application.TimeslotInput{
			Start:    start,
			End:      end,
			Status:   application.SlotStatus(strings.TrimSpace(item.Status)),
			Notes:    item.Notes,
			Label:    item.Label,
			Color:    strings.TrimSpace(item.Color),
			IsLocked: item.IsLocked,
		})
	}
	if len(fieldErrors) > 0 {
		return nil, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return inputs, nil
}

type updateItemDTO struct {
	ID        string  `json:"id"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Status    *string `json:"status"`
	Notes     *string `json:"notes"`
	Label     *string `json:"label"`
	Color     *string `json:"color"`
	IsLocked  *bool   `json:"isLocked"`
}

type updateTimeslotsRequest struct {
	RequestUserID string          `json:"requestUserId"`
	Timeslots     []updateItemDTO `json:"timeslots"`
}

// toUpdates converts the wire DTOs to partial updates. An absent field keeps
// the stored value; a field that is present but does not parse rejects the
// whole batch.
func (r updateTimeslotsRequest) toUpdates() ([]application.TimeslotUpdate, error) {
	updates := make([]application.TimeslotUpdate, 0, len(r.Timeslots))
	fieldErrors := make(map[string]string)
	for i, item := range r.Timeslots {
		update := application.TimeslotUpdate{
			ID:       strings.TrimSpace(item.ID),
			Notes:    item.Notes,
			Label:    item.Label,
			Color:    item.Color,
			IsLocked: item.IsLocked,
		}
		if item.StartTime != nil {
			ts, err := parseTime(*item.StartTime)
			switch {
			case err != nil:
				fieldErrors[fmt.Sprintf("timeslots[%d].startTime", i)] = "startTime is not a valid timestamp"
			case !ts.IsZero():
				update.Start = &ts
			}
		}
		if item.EndTime != nil {
			ts, err := parseTime(*item.EndTime)
			switch {
			case err != nil:
				fieldErrors[fmt.Sprintf("timeslots[%d].endTime", i)] = "endTime is not a valid timestamp"
			case !ts.IsZero():
				update.End = &ts
			}
		}
		if item.Status != nil {
			status := application.SlotStatus(strings.TrimSpace(*item.Status))
			update.Status = &status
		}
		updates = append(updates, update)
	}
	if len(fieldErrors) > 0 {
		return nil, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return updates, nil
}

type deleteTimeslotsRequest struct {
	RequestUserID string   `json:"requestUserId"`
	TimeslotIDs   []string `json:"timeslotIds"`
}

type mergeTimeslotsRequest struct {
	RequestUserID string   `json:"requestUserId"`
	TimeslotIDs   []string `json:"timeslotIds"`
	MergedNotes   *string  `json:"mergedNotes"`
}

type timeslotDTO struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	CreatedBy string `json:"createdBy"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
	Label     string `json:"label,omitempty"`
	Color     string `json:"color,omitempty"`
	IsLocked  bool   `json:"isLocked"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type timeslotsResponse struct {
	Success   bool          `json:"success"`
	Timeslots []timeslotDTO `json:"timeslots"`
}

type deleteTimeslotsResponse struct {
	Success      bool `json:"success"`
	DeletedCount int  `json:"deletedCount"`
}

func toTimeslotDTO(slot application.TimeSlot) timeslotDTO {
	return timeslotDTO{
		ID:        slot.ID,
		ProjectID: slot.ProjectID,
		UserID:    slot.UserID,
		CreatedBy: slot.CreatedBy,
		StartTime: formatTime(slot.Start),
		EndTime:   formatTime(slot.End),
		Status:    string(slot.Status),
		Notes:     slot.Notes,
		Label:     slot.Label,
		Color:     slot.Color,
		IsLocked:  slot.IsLocked,
		CreatedAt: formatTime(slot.CreatedAt),
		UpdatedAt: formatTime(slot.UpdatedAt),
	}
}

func toTimeslotDTOs(slots []application.TimeSlot) []timeslotDTO {
	dtos := make([]timeslotDTO, 0, len(slots))
	for _, slot := range slots {
		dtos = append(dtos, toTimeslotDTO(slot))
	}
	return dtos
}

// parseTime accepts RFC3339 with or without fractional seconds. Empty input
// is not an error; the caller decides whether the field was required.
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
