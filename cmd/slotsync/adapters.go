package main

import (
	"context"
	"errors"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/persistence"
)

type userDirectoryAdapter struct {
	repo persistence.UserRepository
}

func newUserDirectoryAdapter(repo persistence.UserRepository) *userDirectoryAdapter {
	return &userDirectoryAdapter{repo: repo}
}

func (a *userDirectoryAdapter) CreateUser(ctx context.Context, user application.User) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userDirectoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user)); err != nil {
		return application.User{}, err
	}
	return a.GetUser(ctx, user.ID)
}

func (a *userDirectoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userDirectoryAdapter) GetUserByHandle(ctx context.Context, externalHandle string) (application.User, error) {
	stored, err := a.repo.GetUserByHandle(ctx, externalHandle)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

type projectDirectoryAdapter struct {
	repo persistence.ProjectRepository
}

func newProjectDirectoryAdapter(repo persistence.ProjectRepository) *projectDirectoryAdapter {
	return &projectDirectoryAdapter{repo: repo}
}

func (a *projectDirectoryAdapter) CreateProject(ctx context.Context, project application.Project) (application.Project, error) {
	if err := a.repo.CreateProject(ctx, toPersistenceProject(project)); err != nil {
		return application.Project{}, err
	}
	return a.GetProject(ctx, project.ID)
}

func (a *projectDirectoryAdapter) GetProject(ctx context.Context, id string) (application.Project, error) {
	stored, err := a.repo.GetProject(ctx, id)
	if err != nil {
		return application.Project{}, err
	}
	return toApplicationProject(stored), nil
}

func (a *projectDirectoryAdapter) ListProjectsForUser(ctx context.Context, userID string) ([]application.Project, error) {
	models, err := a.repo.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	projects := make([]application.Project, 0, len(models))
	for _, model := range models {
		projects = append(projects, toApplicationProject(model))
	}
	return projects, nil
}

func (a *projectDirectoryAdapter) AddMember(ctx context.Context, projectID, userID string) error {
	return a.repo.AddMember(ctx, projectID, userID)
}

type directoryLookupAdapter struct {
	users    persistence.UserRepository
	projects persistence.ProjectRepository
}

func newDirectoryLookupAdapter(users persistence.UserRepository, projects persistence.ProjectRepository) *directoryLookupAdapter {
	return &directoryLookupAdapter{users: users, projects: projects}
}

func (a *directoryLookupAdapter) UserExists(ctx context.Context, id string) (bool, error) {
	if _, err := a.users.GetUser(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *directoryLookupAdapter) ProjectExists(ctx context.Context, id string) (bool, error) {
	if _, err := a.projects.GetProject(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type timeslotRepositoryAdapter struct {
	repo persistence.TimeslotRepository
}

func newTimeslotRepositoryAdapter(repo persistence.TimeslotRepository) *timeslotRepositoryAdapter {
	return &timeslotRepositoryAdapter{repo: repo}
}

func (a *timeslotRepositoryAdapter) CreateTimeslots(ctx context.Context, slots []application.TimeSlot) ([]application.TimeSlot, error) {
	models := make([]persistence.TimeSlot, 0, len(slots))
	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		models = append(models, toPersistenceSlot(slot))
		ids = append(ids, slot.ID)
	}
	if err := a.repo.CreateTimeslots(ctx, models); err != nil {
		return nil, err
	}
	return a.fetchInOrder(ctx, ids)
}

func (a *timeslotRepositoryAdapter) GetTimeslots(ctx context.Context, ids []string) ([]application.TimeSlot, error) {
	models, err := a.repo.GetTimeslots(ctx, ids)
	if err != nil {
		return nil, err
	}
	slots := make([]application.TimeSlot, 0, len(models))
	for _, model := range models {
		slots = append(slots, toApplicationSlot(model))
	}
	return slots, nil
}

func (a *timeslotRepositoryAdapter) UpdateTimeslots(ctx context.Context, slots []application.TimeSlot) ([]application.TimeSlot, error) {
	models := make([]persistence.TimeSlot, 0, len(slots))
	ids := make([]string, 0, len(slots))
	for _, slot := range slots {
		models = append(models, toPersistenceSlot(slot))
		ids = append(ids, slot.ID)
	}
	if err := a.repo.UpdateTimeslots(ctx, models); err != nil {
		return nil, err
	}
	return a.fetchInOrder(ctx, ids)
}

func (a *timeslotRepositoryAdapter) DeleteTimeslots(ctx context.Context, ids []string) (int, error) {
	return a.repo.DeleteTimeslots(ctx, ids)
}

func (a *timeslotRepositoryAdapter) ReplaceTimeslots(ctx context.Context, removeIDs []string, merged application.TimeSlot) (application.TimeSlot, error) {
	if err := a.repo.ReplaceTimeslots(ctx, removeIDs, toPersistenceSlot(merged)); err != nil {
		return application.TimeSlot{}, err
	}
	stored, err := a.fetchInOrder(ctx, []string{merged.ID})
	if err != nil {
		return application.TimeSlot{}, err
	}
	return stored[0], nil
}

func (a *timeslotRepositoryAdapter) ListTimeslots(ctx context.Context, filter application.TimeslotFilter) ([]application.TimeSlot, error) {
	models, err := a.repo.ListTimeslots(ctx, persistence.TimeslotFilter{ProjectID: filter.ProjectID, UserID: filter.UserID})
	if err != nil {
		return nil, err
	}
	slots := make([]application.TimeSlot, 0, len(models))
	for _, model := range models {
		slots = append(slots, toApplicationSlot(model))
	}
	return slots, nil
}

// fetchInOrder re-reads stored records and returns them in the requested id
// order so callers see the batch exactly as the write shaped it.
func (a *timeslotRepositoryAdapter) fetchInOrder(ctx context.Context, ids []string) ([]application.TimeSlot, error) {
	models, err := a.repo.GetTimeslots(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]persistence.TimeSlot, len(models))
	for _, model := range models {
		byID[model.ID] = model
	}
	slots := make([]application.TimeSlot, 0, len(ids))
	for _, id := range ids {
		model, ok := byID[id]
		if !ok {
			return nil, persistence.ErrNotFound
		}
		slots = append(slots, toApplicationSlot(model))
	}
	return slots, nil
}

func toPersistenceUser(user application.User) persistence.User {
	return persistence.User{
		ID:             user.ID,
		ExternalHandle: user.ExternalHandle,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		LanguageTag:    user.LanguageTag,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:             model.ID,
		ExternalHandle: model.ExternalHandle,
		FirstName:      model.FirstName,
		LastName:       model.LastName,
		LanguageTag:    model.LanguageTag,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

func toPersistenceProject(project application.Project) persistence.Project {
	var description *string
	if project.Description != "" {
		value := project.Description
		description = &value
	}
	return persistence.Project{
		ID:          project.ID,
		Name:        project.Name,
		Description: description,
		MemberIDs:   append([]string(nil), project.MemberIDs...),
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

func toApplicationProject(model persistence.Project) application.Project {
	description := ""
	if model.Description != nil {
		description = *model.Description
	}
	return application.Project{
		ID:          model.ID,
		Name:        model.Name,
		Description: description,
		MemberIDs:   append([]string(nil), model.MemberIDs...),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceSlot(slot application.TimeSlot) persistence.TimeSlot {
	var notes, label *string
	if slot.Notes != "" {
		value := slot.Notes
		notes = &value
	}
	if slot.Label != "" {
		value := slot.Label
		label = &value
	}
	return persistence.TimeSlot{
		ID:        slot.ID,
		ProjectID: slot.ProjectID,
		UserID:    slot.UserID,
		CreatedBy: slot.CreatedBy,
		Start:     slot.Start,
		End:       slot.End,
		Status:    string(slot.Status),
		Notes:     notes,
		Label:     label,
		Color:     slot.Color,
		IsLocked:  slot.IsLocked,
		CreatedAt: slot.CreatedAt,
		UpdatedAt: slot.UpdatedAt,
	}
}

func toApplicationSlot(model persistence.TimeSlot) application.TimeSlot {
	notes := ""
	if model.Notes != nil {
		notes = *model.Notes
	}
	label := ""
	if model.Label != nil {
		label = *model.Label
	}
	return application.TimeSlot{
		ID:        model.ID,
		ProjectID: model.ProjectID,
		UserID:    model.UserID,
		CreatedBy: model.CreatedBy,
		Start:     model.Start,
		End:       model.End,
		Status:    application.SlotStatus(model.Status),
		Notes:     notes,
		Label:     label,
		Color:     model.Color,
		IsLocked:  model.IsLocked,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}
