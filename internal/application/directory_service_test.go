package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/slotsync/internal/persistence"
)

type userRepoStub struct {
	byID       map[string]User
	byHandle   map[string]User
	createErr  error
	updateErr  error
	updateSeen *User
}

func newUserRepoStub(users ...User) *userRepoStub {
	stub := &userRepoStub{byID: make(map[string]User), byHandle: make(map[string]User)}
	for _, user := range users {
		stub.byID[user.ID] = user
		stub.byHandle[user.ExternalHandle] = user
	}
	return stub
}

func (s *userRepoStub) CreateUser(ctx context.Context, user User) (User, error) {
	if s.createErr != nil {
		return User{}, s.createErr
	}
	if _, ok := s.byHandle[user.ExternalHandle]; ok {
		return User{}, persistence.ErrDuplicate
	}
	s.byID[user.ID] = user
	s.byHandle[user.ExternalHandle] = user
	return user, nil
}

func (s *userRepoStub) UpdateUser(ctx context.Context, user User) (User, error) {
	if s.updateErr != nil {
		return User{}, s.updateErr
	}
	s.updateSeen = &user
	s.byID[user.ID] = user
	s.byHandle[user.ExternalHandle] = user
	return user, nil
}

func (s *userRepoStub) GetUser(ctx context.Context, id string) (User, error) {
	user, ok := s.byID[id]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (s *userRepoStub) GetUserByHandle(ctx context.Context, handle string) (User, error) {
	user, ok := s.byHandle[handle]
	if !ok {
		return User{}, persistence.ErrNotFound
	}
	return user, nil
}

type projectRepoStub struct {
	projects  map[string]Project
	byUser    map[string][]Project
	createErr error
}

func newProjectRepoStub() *projectRepoStub {
	return &projectRepoStub{projects: make(map[string]Project), byUser: make(map[string][]Project)}
}

func (s *projectRepoStub) CreateProject(ctx context.Context, project Project) (Project, error) {
	if s.createErr != nil {
		return Project{}, s.createErr
	}
	s.projects[project.ID] = project
	for _, member := range project.MemberIDs {
		s.byUser[member] = append(s.byUser[member], project)
	}
	return project, nil
}

func (s *projectRepoStub) GetProject(ctx context.Context, id string) (Project, error) {
	project, ok := s.projects[id]
	if !ok {
		return Project{}, persistence.ErrNotFound
	}
	return project, nil
}

func (s *projectRepoStub) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	return s.byUser[userID], nil
}

func (s *projectRepoStub) AddMember(ctx context.Context, projectID, userID string) error {
	project, ok := s.projects[projectID]
	if !ok {
		return persistence.ErrNotFound
	}
	project.MemberIDs = append(project.MemberIDs, userID)
	s.projects[projectID] = project
	s.byUser[userID] = append(s.byUser[userID], project)
	return nil
}

func newDirectoryService(users UserDirectoryRepository, projects *projectRepoStub) *DirectoryService {
	counter := 0
	idGen := func() string {
		counter++
		return map[int]string{1: "gen-1", 2: "gen-2", 3: "gen-3"}[counter]
	}
	now := func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return NewDirectoryService(users, projects, idGen, now)
}

func TestResolveUserRegistersOnFirstSight(t *testing.T) {
	users := newUserRepoStub()
	service := newDirectoryService(users, newProjectRepoStub())

	user, err := service.ResolveUser(context.Background(), RegisterUserParams{
		ExternalHandle: "chat:42",
		FirstName:      "Ada",
		LanguageTag:    "en",
	})
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if user.ID != "gen-1" || user.ExternalHandle != "chat:42" {
		t.Fatalf("unexpected user %+v", user)
	}

	again, err := service.ResolveUser(context.Background(), RegisterUserParams{ExternalHandle: "chat:42"})
	if err != nil {
		t.Fatalf("second ResolveUser: %v", err)
	}
	if again.ID != user.ID {
		t.Fatalf("resolution must be idempotent: %s vs %s", again.ID, user.ID)
	}
}

func TestResolveUserRefreshesProfileFields(t *testing.T) {
	existing := User{ID: "u1", ExternalHandle: "chat:42", FirstName: "Ada"}
	users := newUserRepoStub(existing)
	service := newDirectoryService(users, newProjectRepoStub())

	user, err := service.ResolveUser(context.Background(), RegisterUserParams{
		ExternalHandle: "chat:42",
		FirstName:      "Ada",
		LastName:       "Lovelace",
	})
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if user.LastName != "Lovelace" {
		t.Fatalf("profile not refreshed: %+v", user)
	}
	if users.updateSeen == nil {
		t.Fatal("expected an update call")
	}
}

func TestResolveUserSurvivesRegistrationRace(t *testing.T) {
	winner := User{ID: "other", ExternalHandle: "chat:42"}
	service := newDirectoryService(&raceUserRepo{inner: newUserRepoStub(), winner: winner}, newProjectRepoStub())

	user, err := service.ResolveUser(context.Background(), RegisterUserParams{ExternalHandle: "chat:42"})
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if user.ID != "other" {
		t.Fatalf("lost race must resolve to winner, got %+v", user)
	}
}

// raceUserRepo simulates a concurrent registration: the handle is absent on
// the first lookup but present once the create collides.
type raceUserRepo struct {
	inner   *userRepoStub
	winner  User
	lookups int
}

func (r *raceUserRepo) CreateUser(ctx context.Context, user User) (User, error) {
	return User{}, persistence.ErrDuplicate
}

func (r *raceUserRepo) UpdateUser(ctx context.Context, user User) (User, error) {
	return r.inner.UpdateUser(ctx, user)
}

func (r *raceUserRepo) GetUser(ctx context.Context, id string) (User, error) {
	return r.inner.GetUser(ctx, id)
}

func (r *raceUserRepo) GetUserByHandle(ctx context.Context, handle string) (User, error) {
	r.lookups++
	if r.lookups == 1 {
		return User{}, persistence.ErrNotFound
	}
	return r.winner, nil
}

func TestResolveUserRequiresHandle(t *testing.T) {
	service := newDirectoryService(newUserRepoStub(), newProjectRepoStub())

	_, err := service.ResolveUser(context.Background(), RegisterUserParams{ExternalHandle: "  "})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestResolveProjectNotFound(t *testing.T) {
	service := newDirectoryService(newUserRepoStub(), newProjectRepoStub())

	_, err := service.ResolveProject(context.Background(), "missing")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Resource != "project" {
		t.Fatalf("expected project NotFoundError, got %v", err)
	}
}

func TestEnsureDefaultProjectCreatesOnce(t *testing.T) {
	users := newUserRepoStub(User{ID: "u1", ExternalHandle: "chat:42", FirstName: "Ada"})
	projects := newProjectRepoStub()
	service := newDirectoryService(users, projects)

	user := User{ID: "u1", FirstName: "Ada"}
	first, err := service.EnsureDefaultProject(context.Background(), user)
	if err != nil {
		t.Fatalf("EnsureDefaultProject: %v", err)
	}
	if first.Name != "Ada project" {
		t.Fatalf("starter project name = %q", first.Name)
	}
	if len(first.MemberIDs) != 1 || first.MemberIDs[0] != "u1" {
		t.Fatalf("owner must be first member: %+v", first)
	}

	second, err := service.EnsureDefaultProject(context.Background(), user)
	if err != nil {
		t.Fatalf("second EnsureDefaultProject: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("default project must be stable: %s vs %s", second.ID, first.ID)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	users := newUserRepoStub(User{ID: "u1", ExternalHandle: "chat:42"})
	service := newDirectoryService(users, newProjectRepoStub())

	_, err := service.CreateProject(context.Background(), CreateProjectParams{Name: " ", OwnerUserID: "u1"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateProjectRequiresOwner(t *testing.T) {
	service := newDirectoryService(newUserRepoStub(), newProjectRepoStub())

	_, err := service.CreateProject(context.Background(), CreateProjectParams{Name: "Team", OwnerUserID: "ghost"})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Resource != "user" {
		t.Fatalf("expected user NotFoundError, got %v", err)
	}
}
