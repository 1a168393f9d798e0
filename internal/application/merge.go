package application

import (
	"sort"
	"strings"
	"time"
)

// MergeSlots collapses a validated, non-empty set of slots into one spanning
// record. The result is independent of input order:
//
//   - the merged span runs from the earliest start to the latest end
//   - the slot with the earliest start donates status, owner, label and
//     color (ties broken by lowest id)
//   - notes are the explicit mergedNotes when given, otherwise all non-empty
//     original notes joined with "; " in ascending start order
//   - the merged slot is locked when any original was locked
//   - createdBy is the requesting user
//
// Slots with different owners or statuses are merged without complaint; the
// first slot simply wins. Callers must never pass an empty set: that is a
// precondition violation, not a runtime condition, and it panics.
func MergeSlots(slots []TimeSlot, requestUserID, newID string, mergedNotes *string, now time.Time) TimeSlot {
	if len(slots) == 0 {
		panic("application: MergeSlots called with empty slot set")
	}

	ordered := make([]TimeSlot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})

	first := ordered[0]
	merged := TimeSlot{
		ID:        newID,
		ProjectID: first.ProjectID,
		UserID:    first.UserID,
		CreatedBy: requestUserID,
		Start:     first.Start,
		End:       first.End,
		Status:    first.Status,
		Label:     first.Label,
		Color:     first.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	notes := make([]string, 0, len(ordered))
	for _, slot := range ordered {
		if slot.End.After(merged.End) {
			merged.End = slot.End
		}
		if slot.IsLocked {
			merged.IsLocked = true
		}
		if trimmed := strings.TrimSpace(slot.Notes); trimmed != "" {
			notes = append(notes, trimmed)
		}
	}

	if mergedNotes != nil {
		merged.Notes = *mergedNotes
	} else {
		merged.Notes = strings.Join(notes, "; ")
	}

	if merged.Color == "" {
		merged.Color = DefaultColor(merged.UserID)
	}

	return merged
}
