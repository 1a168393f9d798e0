package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/example/slotsync/internal/persistence"
)

// Storage provides a mutex-guarded in-memory implementation of every
// repository interface. It backs the test fixtures and serves as a storage
// fallback when no SQLite DSN is configured.
type Storage struct {
	mu       sync.RWMutex
	users    map[string]persistence.User
	projects map[string]persistence.Project
	slots    map[string]persistence.TimeSlot
}

// Open returns an empty Storage instance.
func Open() *Storage {
	return &Storage{
		users:    make(map[string]persistence.User),
		projects: make(map[string]persistence.Project),
		slots:    make(map[string]persistence.TimeSlot),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user, enforcing handle uniqueness.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.ExternalHandle == user.ExternalHandle {
			return persistence.ErrDuplicate
		}
	}

	s.users[user.ID] = user
	return nil
}

// UpdateUser updates an existing user.
func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return persistence.ErrNotFound
	}
	for id, existing := range s.users {
		if id != user.ID && existing.ExternalHandle == user.ExternalHandle {
			return persistence.ErrDuplicate
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by internal id.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByHandle retrieves a user by its external handle.
func (s *Storage) GetUserByHandle(ctx context.Context, externalHandle string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.ExternalHandle == externalHandle {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// --- ProjectRepository implementation ---

// CreateProject stores a new project together with its initial members.
func (s *Storage) CreateProject(ctx context.Context, project persistence.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.projects[project.ID] = cloneProject(project)
	return nil
}

// GetProject retrieves a project by id.
func (s *Storage) GetProject(ctx context.Context, id string) (persistence.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[id]
	if !ok {
		return persistence.Project{}, persistence.ErrNotFound
	}
	return cloneProject(project), nil
}

// ListProjectsForUser returns all projects the user is a member of, ordered
// by CreatedAt ascending with id as the tie-break.
func (s *Storage) ListProjectsForUser(ctx context.Context, userID string) ([]persistence.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]persistence.Project, 0)
	for _, project := range s.projects {
		for _, member := range project.MemberIDs {
			if member == userID {
				projects = append(projects, cloneProject(project))
				break
			}
		}
	}

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

// AddMember associates a user with a project. Adding an existing member is a no-op.
func (s *Storage) AddMember(ctx context.Context, projectID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[projectID]
	if !ok {
		return persistence.ErrNotFound
	}
	if _, ok := s.users[userID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	for _, member := range project.MemberIDs {
		if member == userID {
			return nil
		}
	}
	project.MemberIDs = append(append([]string(nil), project.MemberIDs...), userID)
	s.projects[projectID] = project
	return nil
}

// --- TimeslotRepository implementation ---

// CreateTimeslots stores the supplied slots as one commit.
func (s *Storage) CreateTimeslots(ctx context.Context, slots []persistence.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range slots {
		if _, ok := s.slots[slot.ID]; ok {
			return persistence.ErrDuplicate
		}
		if _, ok := s.projects[slot.ProjectID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
	}
	for _, slot := range slots {
		s.slots[slot.ID] = cloneSlot(slot)
	}
	return nil
}

// GetTimeslots returns the subset of the requested ids that exist.
func (s *Storage) GetTimeslots(ctx context.Context, ids []string) ([]persistence.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]persistence.TimeSlot, 0, len(ids))
	for _, id := range ids {
		if slot, ok := s.slots[id]; ok {
			found = append(found, cloneSlot(slot))
		}
	}
	return found, nil
}

// UpdateTimeslots overwrites the supplied slots as one commit. Every slot
// must already exist.
func (s *Storage) UpdateTimeslots(ctx context.Context, slots []persistence.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range slots {
		if _, ok := s.slots[slot.ID]; !ok {
			return persistence.ErrNotFound
		}
	}
	for _, slot := range slots {
		s.slots[slot.ID] = cloneSlot(slot)
	}
	return nil
}

// DeleteTimeslots removes the named slots as one commit and reports how many
// records were removed.
func (s *Storage) DeleteTimeslots(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.slots[id]; !ok {
			return 0, persistence.ErrNotFound
		}
	}
	for _, id := range ids {
		delete(s.slots, id)
	}
	return len(ids), nil
}

// ReplaceTimeslots removes the named slots and inserts the merged record as
// a single commit.
func (s *Storage) ReplaceTimeslots(ctx context.Context, removeIDs []string, merged persistence.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range removeIDs {
		if _, ok := s.slots[id]; !ok {
			return persistence.ErrNotFound
		}
	}
	if _, ok := s.projects[merged.ProjectID]; !ok {
		return persistence.ErrForeignKeyViolation
	}
	for _, id := range removeIDs {
		delete(s.slots, id)
	}
	s.slots[merged.ID] = cloneSlot(merged)
	return nil
}

// ListTimeslots returns slots matching the filter ordered by Start ascending
// with id as the tie-break.
func (s *Storage) ListTimeslots(ctx context.Context, filter persistence.TimeslotFilter) ([]persistence.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]persistence.TimeSlot, 0)
	for _, slot := range s.slots {
		if filter.ProjectID != "" && slot.ProjectID != filter.ProjectID {
			continue
		}
		if filter.UserID != "" && slot.UserID != filter.UserID {
			continue
		}
		slots = append(slots, cloneSlot(slot))
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start.Equal(slots[j].Start) {
			return strings.Compare(slots[i].ID, slots[j].ID) < 0
		}
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots, nil
}

func cloneProject(project persistence.Project) persistence.Project {
	clone := project
	clone.MemberIDs = append([]string(nil), project.MemberIDs...)
	clone.Description = cloneString(project.Description)
	return clone
}

func cloneSlot(slot persistence.TimeSlot) persistence.TimeSlot {
	clone := slot
	clone.Notes = cloneString(slot.Notes)
	clone.Label = cloneString(slot.Label)
	return clone
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
