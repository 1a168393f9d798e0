package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slotsync/internal/application"
)

func day(d int) time.Time {
	return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC)
}

func existingSlot(id string, start, end time.Time, status application.SlotStatus, notes string) application.TimeSlot {
	return application.TimeSlot{
		ID:     id,
		Start:  start,
		End:    end,
		Status: status,
		Notes:  notes,
	}
}

func TestReconcileNoCandidates(t *testing.T) {
	decision := Reconcile(nil, nil)
	noAction, ok := decision.(NoAction)
	require.True(t, ok, "expected NoAction, got %T", decision)
	assert.NotEmpty(t, noAction.Reason)
}

func TestReconcileNewSlotsWhenNothingExists(t *testing.T) {
	candidates := []Candidate{{
		Start:  day(1).Add(9 * time.Hour),
		End:    day(1).Add(17 * time.Hour),
		Status: application.StatusAvailable,
	}}

	decision := Reconcile(candidates, nil)
	add, ok := decision.(AddSlots)
	require.True(t, ok, "expected AddSlots, got %T", decision)
	require.Len(t, add.Items, 1)
	assert.Equal(t, application.StatusAvailable, add.Items[0].Status)
}

func TestReconcileTogglesOverlappingSlot(t *testing.T) {
	existing := []application.TimeSlot{
		existingSlot("t1", day(1).Add(9*time.Hour), day(1).Add(17*time.Hour), application.StatusAvailable, ""),
	}
	candidates := []Candidate{{
		Start:  day(1).Add(9 * time.Hour),
		End:    day(1).Add(17 * time.Hour),
		Status: application.StatusAvailable,
	}}

	decision := Reconcile(candidates, existing)
	toggle, ok := decision.(ToggleSlots)
	require.True(t, ok, "expected ToggleSlots, got %T", decision)
	require.Len(t, toggle.Updates, 1)
	assert.Equal(t, "t1", toggle.Updates[0].ID)
	require.NotNil(t, toggle.Updates[0].Status)
	assert.Equal(t, application.StatusBusy, *toggle.Updates[0].Status)
}

func TestReconcileExplicitTargetStatusWins(t *testing.T) {
	existing := []application.TimeSlot{
		existingSlot("t1", day(1).Add(9*time.Hour), day(1).Add(17*time.Hour), application.StatusBusy, ""),
	}
	busy := application.StatusBusy
	candidates := []Candidate{{
		Start:        day(1).Add(9 * time.Hour),
		End:          day(1).Add(17 * time.Hour),
		Status:       busy,
		TargetStatus: &busy,
	}}

	decision := Reconcile(candidates, existing)
	toggle, ok := decision.(ToggleSlots)
	require.True(t, ok, "expected ToggleSlots, got %T", decision)
	assert.Equal(t, busy, *toggle.Updates[0].Status, "explicit status must not flip")
}

func TestReconcileExplicitIDMatch(t *testing.T) {
	existing := []application.TimeSlot{
		existingSlot("t1", day(1), day(2), application.StatusAvailable, ""),
	}
	candidates := []Candidate{{ID: "t1"}}

	decision := Reconcile(candidates, existing)
	toggle, ok := decision.(ToggleSlots)
	require.True(t, ok, "expected ToggleSlots, got %T", decision)
	assert.Equal(t, "t1", toggle.Updates[0].ID)
}

func TestReconcileTextMatch(t *testing.T) {
	existing := []application.TimeSlot{
		existingSlot("t1", day(1).Add(9*time.Hour), day(1).Add(10*time.Hour), application.StatusBusy, "dentist appointment downtown"),
	}
	candidates := []Candidate{{
		Notes: "dentist appointment downtown",
	}}

	decision := Reconcile(candidates, existing)
	toggle, ok := decision.(ToggleSlots)
	require.True(t, ok, "expected ToggleSlots for matching text, got %T", decision)
	assert.Equal(t, "t1", toggle.Updates[0].ID)
}

func TestReconcileLowConfidenceFallsBackToAdd(t *testing.T) {
	existing := []application.TimeSlot{
		existingSlot("t1", day(1).Add(9*time.Hour), day(1).Add(17*time.Hour), application.StatusAvailable, "office"),
	}
	// Barely touching span, unrelated text: below threshold.
	candidates := []Candidate{{
		Start:  day(1).Add(16 * time.Hour),
		End:    day(2).Add(16 * time.Hour),
		Status: application.StatusBusy,
		Notes:  "conference travel",
	}}

	decision := Reconcile(candidates, existing)
	_, ok := decision.(AddSlots)
	require.True(t, ok, "expected AddSlots, got %T", decision)
}

func TestReconcileCoalescesContiguousDays(t *testing.T) {
	// Three uniform days stated separately become one spanning input.
	candidates := []Candidate{
		{Start: day(1), End: day(1).Add(24*time.Hour - time.Second), Status: application.StatusAvailable},
		{Start: day(2), End: day(2).Add(24*time.Hour - time.Second), Status: application.StatusAvailable},
		{Start: day(3), End: day(3).Add(24*time.Hour - time.Second), Status: application.StatusAvailable},
	}

	decision := Reconcile(candidates, nil)
	add, ok := decision.(AddSlots)
	require.True(t, ok, "expected AddSlots, got %T", decision)
	require.Len(t, add.Items, 1)
	assert.Equal(t, day(1), add.Items[0].Start)
	assert.Equal(t, day(3).Add(24*time.Hour-time.Second), add.Items[0].End)
}

func TestReconcileKeepsDistinctStatusRunsApart(t *testing.T) {
	candidates := []Candidate{
		{Start: day(1), End: day(2), Status: application.StatusAvailable},
		{Start: day(2), End: day(3), Status: application.StatusBusy},
	}

	decision := Reconcile(candidates, nil)
	add, ok := decision.(AddSlots)
	require.True(t, ok, "expected AddSlots, got %T", decision)
	require.Len(t, add.Items, 2)
	assert.Equal(t, application.StatusAvailable, add.Items[0].Status)
	assert.Equal(t, application.StatusBusy, add.Items[1].Status)
}

func TestReconcileSeparatedSpansStayApart(t *testing.T) {
	candidates := []Candidate{
		{Start: day(1), End: day(1).Add(8 * time.Hour), Status: application.StatusAvailable},
		{Start: day(5), End: day(5).Add(8 * time.Hour), Status: application.StatusAvailable},
	}

	decision := Reconcile(candidates, nil)
	add, ok := decision.(AddSlots)
	require.True(t, ok, "expected AddSlots, got %T", decision)
	assert.Len(t, add.Items, 2)
}

func TestReconcileDuplicateReferencesCollapse(t *testing.T) {
	existing := []application.TimeSlot{
		existingSlot("t1", day(1).Add(9*time.Hour), day(1).Add(17*time.Hour), application.StatusAvailable, ""),
	}
	candidates := []Candidate{
		{Start: day(1).Add(9 * time.Hour), End: day(1).Add(12 * time.Hour)},
		{Start: day(1).Add(13 * time.Hour), End: day(1).Add(17 * time.Hour)},
	}

	decision := Reconcile(candidates, existing)
	toggle, ok := decision.(ToggleSlots)
	require.True(t, ok, "expected ToggleSlots, got %T", decision)
	assert.Len(t, toggle.Updates, 1, "two references to one slot collapse into one update")
}

func TestMatchConfidenceBounds(t *testing.T) {
	slot := existingSlot("t1", day(1), day(2), application.StatusAvailable, "team sync")

	perfect := MatchConfidence(Candidate{ID: "t1"}, slot)
	assert.Equal(t, 1.0, perfect)

	contained := MatchConfidence(Candidate{Start: day(1).Add(2 * time.Hour), End: day(1).Add(4 * time.Hour)}, slot)
	assert.InDelta(t, 0.9, contained, 0.0001)

	none := MatchConfidence(Candidate{Start: day(3), End: day(4)}, slot)
	assert.Equal(t, 0.0, none)
}
