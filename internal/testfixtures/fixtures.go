package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/persistence"
)

var (
	userCounter    uint64
	projectCounter uint64
	slotCounter    uint64
)

var referenceTime = time.Date(2024, time.May, 6, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID             string
	ExternalHandle string
	FirstName      string
	LastName       string
	LanguageTag    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:             fmt.Sprintf("user-%03d", idx),
		ExternalHandle: fmt.Sprintf("handle-%03d", idx),
		FirstName:      fmt.Sprintf("First%03d", idx),
		LastName:       fmt.Sprintf("Last%03d", idx),
		LanguageTag:    "en",
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserHandle overrides the generated external handle.
func WithUserHandle(handle string) UserOption {
	return func(f *UserFixture) {
		f.ExternalHandle = handle
	}
}

// WithUserName overrides the generated first and last names.
func WithUserName(first, last string) UserOption {
	return func(f *UserFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithUserLanguage overrides the generated language tag.
func WithUserLanguage(tag string) UserOption {
	return func(f *UserFixture) {
		f.LanguageTag = tag
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:             f.ID,
		ExternalHandle: f.ExternalHandle,
		FirstName:      f.FirstName,
		LastName:       f.LastName,
		LanguageTag:    f.LanguageTag,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:             f.ID,
		ExternalHandle: f.ExternalHandle,
		FirstName:      f.FirstName,
		LastName:       f.LastName,
		LanguageTag:    f.LanguageTag,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// RegisterParams returns the fixture as registration parameters.
func (f UserFixture) RegisterParams() application.RegisterUserParams {
	return application.RegisterUserParams{
		ExternalHandle: f.ExternalHandle,
		FirstName:      f.FirstName,
		LastName:       f.LastName,
		LanguageTag:    f.LanguageTag,
	}
}

// ---------------------------- Project fixtures ----------------------------

// ProjectFixture represents a deterministic project record.
type ProjectFixture struct {
	ID          string
	Name        string
	Description string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectOption configures the generated project fixture.
type ProjectOption func(*ProjectFixture)

// NewProjectFixture returns a deterministic project fixture with optional
// overrides.
func NewProjectFixture(opts ...ProjectOption) ProjectFixture {
	idx := atomic.AddUint64(&projectCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := ProjectFixture{
		ID:        fmt.Sprintf("project-%03d", idx),
		Name:      fmt.Sprintf("Project %03d", idx),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProjectID overrides the generated project ID.
func WithProjectID(id string) ProjectOption {
	return func(f *ProjectFixture) {
		f.ID = id
	}
}

// WithProjectName overrides the generated project name.
func WithProjectName(name string) ProjectOption {
	return func(f *ProjectFixture) {
		f.Name = name
	}
}

// WithProjectDescription sets the description on the fixture.
func WithProjectDescription(description string) ProjectOption {
	return func(f *ProjectFixture) {
		f.Description = description
	}
}

// WithProjectMembers sets the member ids on the fixture.
func WithProjectMembers(memberIDs ...string) ProjectOption {
	return func(f *ProjectFixture) {
		f.MemberIDs = append([]string(nil), memberIDs...)
	}
}

// Application returns the fixture as an application.Project value.
func (f ProjectFixture) Application() application.Project {
	return application.Project{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		MemberIDs:   append([]string(nil), f.MemberIDs...),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Project value.
func (f ProjectFixture) Persistence() persistence.Project {
	var description *string
	if f.Description != "" {
		value := f.Description
		description = &value
	}
	return persistence.Project{
		ID:          f.ID,
		Name:        f.Name,
		Description: description,
		MemberIDs:   append([]string(nil), f.MemberIDs...),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ---------------------------- Time-slot fixtures ----------------------------

// TimeSlotFixture represents a deterministic time-slot record.
type TimeSlotFixture struct {
	ID        string
	ProjectID string
	UserID    string
	CreatedBy string
	Start     time.Time
	End       time.Time
	Status    application.SlotStatus
	Notes     string
	Label     string
	Color     string
	IsLocked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeSlotOption configures the generated time-slot fixture.
type TimeSlotOption func(*TimeSlotFixture)

// NewTimeSlotFixture returns a deterministic time-slot fixture. Consecutive
// fixtures occupy consecutive days so they never overlap unless a test asks
// for it.
func NewTimeSlotFixture(opts ...TimeSlotOption) TimeSlotFixture {
	idx := atomic.AddUint64(&slotCounter, 1)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	fixture := TimeSlotFixture{
		ID:        fmt.Sprintf("slot-%03d", idx),
		ProjectID: "project-001",
		UserID:    "user-001",
		CreatedBy: "user-001",
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    application.StatusAvailable,
		Color:     application.DefaultColor("user-001"),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSlotID overrides the generated slot ID.
func WithSlotID(id string) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.ID = id
	}
}

// WithSlotProject overrides the owning project.
func WithSlotProject(projectID string) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.ProjectID = projectID
	}
}

// WithSlotUser sets the calendar owner and creator to the same user.
func WithSlotUser(userID string) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.UserID = userID
		f.CreatedBy = userID
	}
}

// WithSlotCreator overrides only the creating user.
func WithSlotCreator(userID string) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.CreatedBy = userID
	}
}

// WithSlotSpan overrides the slot's start and end instants.
func WithSlotSpan(start, end time.Time) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.Start = start
		f.End = end
	}
}

// WithSlotStatus overrides the generated status.
func WithSlotStatus(status application.SlotStatus) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.Status = status
	}
}

// WithSlotNotes sets the notes text on the fixture.
func WithSlotNotes(notes string) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.Notes = notes
	}
}

// WithSlotLabel sets the label text on the fixture.
func WithSlotLabel(label string) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.Label = label
	}
}

// WithSlotColor overrides the generated display color.
func WithSlotColor(color string) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.Color = color
	}
}

// WithSlotLocked sets the lock flag on the fixture.
func WithSlotLocked(locked bool) TimeSlotOption {
	return func(f *TimeSlotFixture) {
		f.IsLocked = locked
	}
}

// Application returns the fixture as an application.TimeSlot value.
func (f TimeSlotFixture) Application() application.TimeSlot {
	return application.TimeSlot{
		ID:        f.ID,
		ProjectID: f.ProjectID,
		UserID:    f.UserID,
		CreatedBy: f.CreatedBy,
		Start:     f.Start,
		End:       f.End,
		Status:    f.Status,
		Notes:     f.Notes,
		Label:     f.Label,
		Color:     f.Color,
		IsLocked:  f.IsLocked,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.TimeSlot value.
func (f TimeSlotFixture) Persistence() persistence.TimeSlot {
	var notes, label *string
	if f.Notes != "" {
		value := f.Notes
		notes = &value
	}
	if f.Label != "" {
		value := f.Label
		label = &value
	}
	return persistence.TimeSlot{
		ID:        f.ID,
		ProjectID: f.ProjectID,
		UserID:    f.UserID,
		CreatedBy: f.CreatedBy,
		Start:     f.Start,
		End:       f.End,
		Status:    string(f.Status),
		Notes:     notes,
		Label:     label,
		Color:     f.Color,
		IsLocked:  f.IsLocked,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Input returns the fixture as caller supplied creation input.
func (f TimeSlotFixture) Input() application.TimeslotInput {
	return application.TimeslotInput{
		Start:    f.Start,
		End:      f.End,
		Status:   f.Status,
		Notes:    f.Notes,
		Label:    f.Label,
		Color:    f.Color,
		IsLocked: f.IsLocked,
	}
}
