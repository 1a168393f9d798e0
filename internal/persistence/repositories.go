package persistence

import "context"

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByHandle(ctx context.Context, externalHandle string) (User, error)
}

// ProjectRepository stores projects and their memberships.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]Project, error)
	AddMember(ctx context.Context, projectID, userID string) error
}

// TimeslotFilter narrows time-slot queries.
type TimeslotFilter struct {
	ProjectID string
	UserID    string
}

// TimeslotRepository stores time-slot records. The batch write methods must
// apply all of their writes as one commit: a concurrent reader sees either
// none of the batch or all of it.
type TimeslotRepository interface {
	CreateTimeslots(ctx context.Context, slots []TimeSlot) error
	// GetTimeslots returns the subset of the requested ids that exist, in no
	// particular order. Missing ids are not an error.
	GetTimeslots(ctx context.Context, ids []string) ([]TimeSlot, error)
	UpdateTimeslots(ctx context.Context, slots []TimeSlot) error
	DeleteTimeslots(ctx context.Context, ids []string) (int, error)
	// ReplaceTimeslots removes the named records and inserts the merged
	// record as a single commit.
	ReplaceTimeslots(ctx context.Context, removeIDs []string, merged TimeSlot) error
	ListTimeslots(ctx context.Context, filter TimeslotFilter) ([]TimeSlot, error)
}
