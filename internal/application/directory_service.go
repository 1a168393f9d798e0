package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/slotsync/internal/persistence"
)

// UserDirectoryRepository captures the persistence interactions needed for
// identity resolution.
type UserDirectoryRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByHandle(ctx context.Context, externalHandle string) (User, error)
}

// ProjectDirectoryRepository captures the persistence interactions needed
// for project lookup and registration.
type ProjectDirectoryRepository interface {
	CreateProject(ctx context.Context, project Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]Project, error)
	AddMember(ctx context.Context, projectID, userID string) error
}

// DirectoryService resolves external user handles to internal records and
// groups users into projects.
type DirectoryService struct {
	users       UserDirectoryRepository
	projects    ProjectDirectoryRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDirectoryService wires dependencies for identity and project lookup.
func NewDirectoryService(users UserDirectoryRepository, projects ProjectDirectoryRepository, idGenerator func() string, now func() time.Time) *DirectoryService {
	return NewDirectoryServiceWithLogger(users, projects, idGenerator, now, nil)
}

// NewDirectoryServiceWithLogger wires dependencies including a base logger.
func NewDirectoryServiceWithLogger(users UserDirectoryRepository, projects ProjectDirectoryRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *DirectoryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{
		users:       users,
		projects:    projects,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// ResolveUser returns the internal user for an external handle, registering
// the user on first sight. Registration is idempotent: a lost race against a
// concurrent first contact falls back to the winner's record. Display and
// preference fields are refreshed when the provider reports new values.
func (s *DirectoryService) ResolveUser(ctx context.Context, params RegisterUserParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("DirectoryService is nil")
	}

	handle := strings.TrimSpace(params.ExternalHandle)
	if handle == "" {
		vErr := &ValidationError{}
		vErr.add("external_handle", "external handle is required")
		return User{}, vErr
	}

	existing, err := s.users.GetUserByHandle(ctx, handle)
	switch {
	case err == nil:
		return s.refreshProfile(ctx, existing, params)
	case errors.Is(err, persistence.ErrNotFound):
		// first contact, fall through to registration
	default:
		return User{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := s.now()
	user := User{
		ID:             s.idGenerator(),
		ExternalHandle: handle,
		FirstName:      params.FirstName,
		LastName:       params.LastName,
		LanguageTag:    params.LanguageTag,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			winner, getErr := s.users.GetUserByHandle(ctx, handle)
			if getErr == nil {
				return winner, nil
			}
		}
		return User{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	serviceLogger(ctx, s.logger, "directory", "resolve_user").InfoContext(ctx, "registered user", "user_id", created.ID)
	return created, nil
}

func (s *DirectoryService) refreshProfile(ctx context.Context, existing User, params RegisterUserParams) (User, error) {
	changed := false
	if params.FirstName != "" && params.FirstName != existing.FirstName {
		existing.FirstName = params.FirstName
		changed = true
	}
	if params.LastName != "" && params.LastName != existing.LastName {
		existing.LastName = params.LastName
		changed = true
	}
	if params.LanguageTag != "" && params.LanguageTag != existing.LanguageTag {
		existing.LanguageTag = params.LanguageTag
		changed = true
	}
	if !changed {
		return existing, nil
	}

	existing.UpdatedAt = s.now()
	updated, err := s.users.UpdateUser(ctx, existing)
	if err != nil {
		// Profile refresh is best-effort; the stale record still identifies
		// the user.
		serviceLogger(ctx, s.logger, "directory", "resolve_user").WarnContext(ctx, "profile refresh failed", "user_id", existing.ID, "error", err)
		return existing, nil
	}
	return updated, nil
}

// GetUser retrieves a user by internal id.
func (s *DirectoryService) GetUser(ctx context.Context, id string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("DirectoryService is nil")
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return User{}, &NotFoundError{Resource: "user", IDs: []string{id}}
		}
		return User{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return user, nil
}

// ResolveProject retrieves a project by id.
func (s *DirectoryService) ResolveProject(ctx context.Context, id string) (Project, error) {
	if s == nil {
		return Project{}, fmt.Errorf("DirectoryService is nil")
	}
	project, err := s.projects.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Project{}, &NotFoundError{Resource: "project", IDs: []string{id}}
		}
		return Project{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return project, nil
}

// ListProjects enumerates the projects the user is a member of.
func (s *DirectoryService) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	if s == nil {
		return nil, fmt.Errorf("DirectoryService is nil")
	}
	projects, err := s.projects.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return projects, nil
}

// CreateProject registers a named project with the owner as first member.
func (s *DirectoryService) CreateProject(ctx context.Context, params CreateProjectParams) (Project, error) {
	if s == nil {
		return Project{}, fmt.Errorf("DirectoryService is nil")
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		return Project{}, vErr
	}
	if _, err := s.users.GetUser(ctx, params.OwnerUserID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Project{}, &NotFoundError{Resource: "user", IDs: []string{params.OwnerUserID}}
		}
		return Project{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := s.now()
	project := Project{
		ID:          s.idGenerator(),
		Name:        name,
		Description: params.Description,
		MemberIDs:   []string{params.OwnerUserID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.projects.CreateProject(ctx, project)
	if err != nil {
		return Project{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return created, nil
}

// EnsureDefaultProject returns the user's first project, creating a starter
// project when the user has none. Used once per new user.
func (s *DirectoryService) EnsureDefaultProject(ctx context.Context, user User) (Project, error) {
	if s == nil {
		return Project{}, fmt.Errorf("DirectoryService is nil")
	}

	projects, err := s.projects.ListProjectsForUser(ctx, user.ID)
	if err != nil {
		return Project{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if len(projects) > 0 {
		return projects[0], nil
	}

	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = "My"
	}
	return s.CreateProject(ctx, CreateProjectParams{
		Name:        name + " project",
		Description: "Starter project",
		OwnerUserID: user.ID,
	})
}
