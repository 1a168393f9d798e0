package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/slotsync/internal/persistence"
)

// TimeslotFilter narrows queries issued to the time-slot repository.
type TimeslotFilter struct {
	ProjectID string
	UserID    string
}

// TimeslotRepository captures the persistence interactions needed by the
// store. The batch write methods must apply as one commit.
type TimeslotRepository interface {
	CreateTimeslots(ctx context.Context, slots []TimeSlot) ([]TimeSlot, error)
	GetTimeslots(ctx context.Context, ids []string) ([]TimeSlot, error)
	UpdateTimeslots(ctx context.Context, slots []TimeSlot) ([]TimeSlot, error)
	DeleteTimeslots(ctx context.Context, ids []string) (int, error)
	ReplaceTimeslots(ctx context.Context, removeIDs []string, merged TimeSlot) (TimeSlot, error)
	ListTimeslots(ctx context.Context, filter TimeslotFilter) ([]TimeSlot, error)
}

// DirectoryLookup exposes the existence checks the store needs against the
// identity and project directory.
type DirectoryLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
	ProjectExists(ctx context.Context, id string) (bool, error)
}

// Notifier receives one event per committed mutation. Implementations must
// not block and must never fail the mutation.
type Notifier interface {
	// TimeslotsUpdated announces a change to a project's slot collection.
	// userID is set only for additions.
	TimeslotsUpdated(ctx context.Context, projectID, userID string)
}

// TimeslotService owns the canonical time-slot collection. Every mutation
// validates the whole batch before writing anything; a per-project lock held
// across the validate+write span keeps concurrent batches from interleaving.
type TimeslotService struct {
	slots       TimeslotRepository
	directory   DirectoryLookup
	notifier    Notifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	lockMu       sync.Mutex
	projectLocks map[string]*sync.Mutex
}

// NewTimeslotService wires dependencies for time-slot operations.
func NewTimeslotService(slots TimeslotRepository, directory DirectoryLookup, notifier Notifier, idGenerator func() string, now func() time.Time) *TimeslotService {
	return NewTimeslotServiceWithLogger(slots, directory, notifier, idGenerator, now, nil)
}

// NewTimeslotServiceWithLogger wires dependencies including a base logger.
func NewTimeslotServiceWithLogger(slots TimeslotRepository, directory DirectoryLookup, notifier Notifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TimeslotService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TimeslotService{
		slots:        slots,
		directory:    directory,
		notifier:     notifier,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
		projectLocks: make(map[string]*sync.Mutex),
	}
}

// lockProject serialises batch mutations per project. Disjoint projects
// proceed in parallel.
func (s *TimeslotService) lockProject(projectID string) func() {
	s.lockMu.Lock()
	lock, ok := s.projectLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.projectLocks[projectID] = lock
	}
	s.lockMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// AddTimeslots creates a batch of slots for one user within a project. The
// whole call fails when the project or either user does not resolve; nothing
// is persisted on failure.
func (s *TimeslotService) AddTimeslots(ctx context.Context, params AddTimeslotsParams) ([]TimeSlot, error) {
	if s == nil {
		return nil, fmt.Errorf("TimeslotService is nil")
	}

	if len(params.Items) == 0 {
		vErr := &ValidationError{}
		vErr.add("timeslots", "at least one timeslot is required")
		return nil, vErr
	}

	vErr := &ValidationError{}
	for i, item := range params.Items {
		validateSlotInput(i, item, vErr)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	unlock := s.lockProject(params.ProjectID)
	defer unlock()

	if err := s.ensureProjectExists(ctx, params.ProjectID); err != nil {
		return nil, err
	}
	if err := s.ensureUserExists(ctx, params.ForUserID); err != nil {
		return nil, err
	}
	createdBy := params.CreatedByID
	if createdBy == "" {
		createdBy = params.ForUserID
	} else if createdBy != params.ForUserID {
		if err := s.ensureUserExists(ctx, createdBy); err != nil {
			return nil, err
		}
	}

	now := s.now()
	slots := make([]TimeSlot, 0, len(params.Items))
	for _, item := range params.Items {
		color := item.Color
		if color == "" {
			color = DefaultColor(params.ForUserID)
		}
		slots = append(slots, TimeSlot{
			ID:        s.idGenerator(),
			ProjectID: params.ProjectID,
			UserID:    params.ForUserID,
			CreatedBy: createdBy,
			Start:     item.Start,
			End:       item.End,
			Status:    item.Status,
			Notes:     item.Notes,
			Label:     item.Label,
			Color:     color,
			IsLocked:  item.IsLocked,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	created, err := s.slots.CreateTimeslots(context.WithoutCancel(ctx), slots)
	if err != nil {
		return nil, mapSlotRepoError(err)
	}

	s.notify(ctx, params.ProjectID, params.ForUserID)
	serviceLogger(ctx, s.logger, "timeslots", "add", "project_id", params.ProjectID).
		InfoContext(ctx, "created timeslots", "count", len(created))
	return created, nil
}

// UpdateTimeslots applies partial updates to a batch of existing slots.
// Every id must exist, belong to the stated project and pass the lock
// policy before any field changes.
func (s *TimeslotService) UpdateTimeslots(ctx context.Context, params UpdateTimeslotsParams) ([]TimeSlot, error) {
	if s == nil {
		return nil, fmt.Errorf("TimeslotService is nil")
	}

	if len(params.Updates) == 0 {
		vErr := &ValidationError{}
		vErr.add("timeslots", "at least one update is required")
		return nil, vErr
	}

	vErr := &ValidationError{}
	ids := make([]string, 0, len(params.Updates))
	for i, update := range params.Updates {
		if update.ID == "" {
			vErr.add(fmt.Sprintf("timeslots[%d].id", i), "id is required")
		}
		if update.Status != nil && !update.Status.Valid() {
			vErr.add(fmt.Sprintf("timeslots[%d].status", i), "status must be available or busy")
		}
		ids = append(ids, update.ID)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	unlock := s.lockProject(params.ProjectID)
	defer unlock()

	existing, err := s.validateBatch(ctx, params.ProjectID, ids, params.RequestUserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updated := make([]TimeSlot, 0, len(params.Updates))
	for _, update := range params.Updates {
		slot := existing[update.ID]
		applyUpdate(&slot, update)
		slot.UpdatedAt = now
		existing[update.ID] = slot
		updated = append(updated, slot)
	}

	persisted, err := s.slots.UpdateTimeslots(context.WithoutCancel(ctx), updated)
	if err != nil {
		return nil, mapSlotRepoError(err)
	}

	s.notify(ctx, params.ProjectID, "")
	serviceLogger(ctx, s.logger, "timeslots", "update", "project_id", params.ProjectID).
		InfoContext(ctx, "updated timeslots", "count", len(persisted))
	return persisted, nil
}

// DeleteTimeslots removes a batch of slots after the same existence,
// cross-project and authorization checks as update. Returns the number of
// removed records.
func (s *TimeslotService) DeleteTimeslots(ctx context.Context, params DeleteTimeslotsParams) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("TimeslotService is nil")
	}

	ids := uniqueIDs(params.IDs)
	if len(ids) == 0 {
		vErr := &ValidationError{}
		vErr.add("timeslot_ids", "at least one timeslot id is required")
		return 0, vErr
	}

	unlock := s.lockProject(params.ProjectID)
	defer unlock()

	if _, err := s.validateBatch(ctx, params.ProjectID, ids, params.RequestUserID); err != nil {
		return 0, err
	}

	count, err := s.slots.DeleteTimeslots(context.WithoutCancel(ctx), ids)
	if err != nil {
		return 0, mapSlotRepoError(err)
	}

	s.notify(ctx, params.ProjectID, "")
	serviceLogger(ctx, s.logger, "timeslots", "delete", "project_id", params.ProjectID).
		InfoContext(ctx, "deleted timeslots", "count", count)
	return count, nil
}

// MergeTimeslots collapses a batch of slots into one spanning record. The
// originals disappear and the merged record appears as a single commit.
func (s *TimeslotService) MergeTimeslots(ctx context.Context, params MergeTimeslotsParams) (TimeSlot, error) {
	if s == nil {
		return TimeSlot{}, fmt.Errorf("TimeslotService is nil")
	}

	ids := uniqueIDs(params.IDs)
	if len(ids) == 0 {
		vErr := &ValidationError{}
		vErr.add("timeslot_ids", "at least one timeslot id is required")
		return TimeSlot{}, vErr
	}

	unlock := s.lockProject(params.ProjectID)
	defer unlock()

	existing, err := s.validateBatch(ctx, params.ProjectID, ids, params.RequestUserID)
	if err != nil {
		return TimeSlot{}, err
	}

	slots := make([]TimeSlot, 0, len(existing))
	for _, slot := range existing {
		slots = append(slots, slot)
	}
	merged := MergeSlots(slots, params.RequestUserID, s.idGenerator(), params.MergedNotes, s.now())

	persisted, err := s.slots.ReplaceTimeslots(context.WithoutCancel(ctx), ids, merged)
	if err != nil {
		return TimeSlot{}, mapSlotRepoError(err)
	}

	s.notify(ctx, params.ProjectID, "")
	serviceLogger(ctx, s.logger, "timeslots", "merge", "project_id", params.ProjectID).
		InfoContext(ctx, "merged timeslots", "source_count", len(ids), "merged_id", persisted.ID)
	return persisted, nil
}

// GetUserTimeslots lists one user's slots within a project, ordered by
// start time ascending. Internal failures degrade to an empty listing and
// are logged; no error reaches the caller.
func (s *TimeslotService) GetUserTimeslots(ctx context.Context, projectID, userID string) []TimeSlot {
	if s == nil || s.slots == nil {
		return []TimeSlot{}
	}

	slots, err := s.slots.ListTimeslots(ctx, TimeslotFilter{ProjectID: projectID, UserID: userID})
	if err != nil {
		serviceLogger(ctx, s.logger, "timeslots", "list", "project_id", projectID).
			ErrorContext(ctx, "listing failed", "error", err)
		return []TimeSlot{}
	}

	ordered := make([]TimeSlot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})
	return ordered
}

// GetProjectTimeslots lists every slot within a project, ordered by start
// time ascending, with the same degrade-to-empty policy as GetUserTimeslots.
func (s *TimeslotService) GetProjectTimeslots(ctx context.Context, projectID string) []TimeSlot {
	if s == nil || s.slots == nil {
		return []TimeSlot{}
	}

	slots, err := s.slots.ListTimeslots(ctx, TimeslotFilter{ProjectID: projectID})
	if err != nil {
		serviceLogger(ctx, s.logger, "timeslots", "list_project", "project_id", projectID).
			ErrorContext(ctx, "listing failed", "error", err)
		return []TimeSlot{}
	}

	ordered := make([]TimeSlot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})
	return ordered
}

// validateBatch runs the shared existence, cross-project and authorization
// checks for update/delete/merge. It returns the targeted slots keyed by id.
func (s *TimeslotService) validateBatch(ctx context.Context, projectID string, ids []string, requestUserID string) (map[string]TimeSlot, error) {
	if err := s.ensureProjectExists(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.ensureUserExists(ctx, requestUserID); err != nil {
		return nil, err
	}

	found, err := s.slots.GetTimeslots(ctx, ids)
	if err != nil {
		return nil, mapSlotRepoError(err)
	}

	byID := make(map[string]TimeSlot, len(found))
	for _, slot := range found {
		byID[slot.ID] = slot
	}

	var missing []string
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{Resource: "timeslot", IDs: missing}
	}

	var foreign []string
	for _, id := range ids {
		if byID[id].ProjectID != projectID {
			foreign = append(foreign, id)
		}
	}
	if len(foreign) > 0 {
		return nil, &CrossProjectError{ProjectID: projectID, IDs: foreign}
	}

	ordered := make([]TimeSlot, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, byID[id])
	}
	if refused := refusedSlotIDs(ordered, requestUserID); len(refused) > 0 {
		return nil, &ForbiddenError{RequestUserID: requestUserID, SlotIDs: refused}
	}

	return byID, nil
}

func (s *TimeslotService) ensureProjectExists(ctx context.Context, projectID string) error {
	if s.directory == nil {
		return nil
	}
	exists, err := s.directory.ProjectExists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !exists {
		return &NotFoundError{Resource: "project", IDs: []string{projectID}}
	}
	return nil
}

func (s *TimeslotService) ensureUserExists(ctx context.Context, userID string) error {
	if s.directory == nil {
		return nil
	}
	exists, err := s.directory.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !exists {
		return &NotFoundError{Resource: "user", IDs: []string{userID}}
	}
	return nil
}

// notify announces a committed mutation. Fan-out failures never surface here.
func (s *TimeslotService) notify(ctx context.Context, projectID, userID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.TimeslotsUpdated(context.WithoutCancel(ctx), projectID, userID)
}

func validateSlotInput(index int, item TimeslotInput, vErr *ValidationError) {
	field := func(name string) string { return fmt.Sprintf("timeslots[%d].%s", index, name) }

	if item.Start.IsZero() {
		vErr.add(field("start"), "start is required")
	}
	if item.End.IsZero() {
		vErr.add(field("end"), "end is required")
	}
	// An inverted span (start after end) is accepted; only absent
	// timestamps are malformed.
	if !item.Status.Valid() {
		vErr.add(field("status"), "status must be available or busy")
	}
}

func applyUpdate(slot *TimeSlot, update TimeslotUpdate) {
	if update.Start != nil {
		slot.Start = *update.Start
	}
	if update.End != nil {
		slot.End = *update.End
	}
	if update.Status != nil {
		slot.Status = *update.Status
	}
	if update.Notes != nil {
		slot.Notes = *update.Notes
	}
	if update.Label != nil {
		slot.Label = *update.Label
	}
	if update.Color != nil {
		slot.Color = *update.Color
	}
	if update.IsLocked != nil {
		slot.IsLocked = *update.IsLocked
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func mapSlotRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return &NotFoundError{Resource: "timeslot"}
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return &NotFoundError{Resource: "project"}
	}
	if errors.Is(err, persistence.ErrDuplicate) || errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("timeslots", "stored record rejected by a constraint")
		return vErr
	}
	return fmt.Errorf("%w: %v", ErrInternal, err)
}
