package application

import "time"

// SlotStatus enumerates the two states a time slot can describe.
type SlotStatus string

const (
	// StatusAvailable marks a span the owning user is free.
	StatusAvailable SlotStatus = "available"
	// StatusBusy marks a span the owning user is occupied.
	StatusBusy SlotStatus = "busy"
)

// Valid reports whether the status is one of the two allowed values.
func (s SlotStatus) Valid() bool {
	return s == StatusAvailable || s == StatusBusy
}

// Toggle returns the opposite status.
func (s SlotStatus) Toggle() SlotStatus {
	if s == StatusAvailable {
		return StatusBusy
	}
	return StatusAvailable
}

// ParseSlotStatus converts a wire value into a SlotStatus.
func ParseSlotStatus(value string) (SlotStatus, bool) {
	status := SlotStatus(value)
	return status, status.Valid()
}

// User represents a collaborator resolved from an external identity handle.
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
	Description string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TimeSlot represents an availability or busy span within a project.
//
// UserID identifies whose calendar the slot describes; CreatedBy identifies
// who caused the record to exist. The two differ when one user schedules on
// behalf of another.
type TimeSlot struct {
	ID        string
	ProjectID string
	UserID    string
	CreatedBy string
	Start     time.Time
	End       time.Time
	Status    SlotStatus
	Notes     string
	Label     string
	Color     string
	IsLocked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeslotInput captures caller provided fields for a new time slot.
type TimeslotInput struct {
	Start    time.Time
	End      time.Time
	Status   SlotStatus
	Notes    string
	Label    string
	Color    string
	IsLocked bool
}

// TimeslotUpdate captures a partial update for an existing slot. Nil fields
// retain their prior value.
type TimeslotUpdate struct {
	ID       string
	Start    *time.Time
	End      *time.Time
	Status   *SlotStatus
	Notes    *string
	Label    *string
	Color    *string
	IsLocked *bool
}

// AddTimeslotsParams wraps the data required to create a batch of slots.
type AddTimeslotsParams struct {
	ProjectID string
	ForUserID string
	// CreatedByID identifies the acting user when scheduling on behalf of
	// ForUserID. Empty means the owner created the slots themselves.
	CreatedByID string
	Items       []TimeslotInput
}

// UpdateTimeslotsParams wraps the data required to update a batch of slots.
type UpdateTimeslotsParams struct {
	ProjectID     string
	RequestUserID string
	Updates       []TimeslotUpdate
}

// DeleteTimeslotsParams wraps the data required to delete a batch of slots.
type DeleteTimeslotsParams struct {
	ProjectID     string
	RequestUserID string
	IDs           []string
}

// MergeTimeslotsParams wraps the data required to merge a batch of slots
// into one spanning record.
type MergeTimeslotsParams struct {
	ProjectID     string
	RequestUserID string
	IDs           []string
	MergedNotes   *string
}

// RegisterUserParams carries the identity attributes supplied by the
// upstream identity provider on first contact.
type RegisterUserParams struct {
	ExternalHandle string
	FirstName      string
	LastName       string
	LanguageTag    string
}

// CreateProjectParams wraps the data required to create a named project.
type CreateProjectParams struct {
	Name        string
	Description string
	OwnerUserID string
}
