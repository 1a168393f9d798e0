package persistence

import "time"

// User represents a registered collaborator resolved from an external handle.
type User struct {
	ID             string
	ExternalHandle string
	FirstName      string
	LastName       string
	LanguageTag    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Project represents a collaboration scope grouping users and time slots.
type Project struct {
	ID          string
	Name        string
	Description *string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TimeSlot represents an availability or busy span stored in persistence.
type TimeSlot struct {
	ID        string
	ProjectID string
	UserID    string
	CreatedBy string
	Start     time.Time
	End       time.Time
	Status    string
	Notes     *string
	Label     *string
	Color     string
	IsLocked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
