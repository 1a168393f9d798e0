package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/slotsync/internal/application"
)

type projectService interface {
	CreateProject(ctx context.Context, params application.CreateProjectParams) (application.Project, error)
	ListProjects(ctx context.Context, userID string) ([]application.Project, error)
}

type ProjectHandler struct {
	service   projectService
	responder responder
}

func NewProjectHandler(service projectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{service: service, responder: newResponder(logger)}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	project, err := h.service.CreateProject(r.Context(), application.CreateProjectParams{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		OwnerUserID: strings.TrimSpace(req.OwnerUserID),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, projectResponse{
		Success: true,
		Project: toProjectDTO(project),
	})
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("user_id query parameter is required"))
		return
	}

	projects, err := h.service.ListProjects(r.Context(), userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProjectsResponse{
		Success:  true,
		Projects: toProjectDTOs(projects),
	})
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerUserID string `json:"ownerUserId"`
}

type projectDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MemberIDs   []string `json:"memberIds"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

type projectResponse struct {
	Success bool       `json:"success"`
	Project projectDTO `json:"project"`
}

type listProjectsResponse struct {
	Success  bool         `json:"success"`
	Projects []projectDTO `json:"projects"`
}

func toProjectDTO(project application.Project) projectDTO {
	return projectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		MemberIDs:   append([]string(nil), project.MemberIDs...),
		CreatedAt:   formatTime(project.CreatedAt),
		UpdatedAt:   formatTime(project.UpdatedAt),
	}
}

func toProjectDTOs(projects []application.Project) []projectDTO {
	dtos := make([]projectDTO, 0, len(projects))
	for _, project := range projects {
		dtos = append(dtos, toProjectDTO(project))
	}
	return dtos
}
