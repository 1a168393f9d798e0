// Package reconcile decides whether candidate time-slot descriptors produced
// by natural-language extraction represent new entries to add or a request to
// change the status of existing entries.
//
// The package is deliberately heuristic and best-effort: it never returns an
// error. Ambiguous input yields NoAction and the caller falls back to
// reporting that nothing actionable was identified.
package reconcile

import (
	"strings"
	"time"

	"github.com/example/slotsync/internal/application"
)

// MatchThreshold is the minimum confidence required to treat candidates as
// references to existing slots rather than new entries.
const MatchThreshold = 0.7

// coalesceGap is the largest gap between two same-status candidates that
// still counts as one contiguous span. It absorbs day boundaries like
// 23:59:59 -> 00:00:00.
const coalesceGap = time.Minute

// Candidate is one extracted time-slot descriptor. It carries the same shape
// as an add item, optionally referencing an existing slot by id, and a
// target status when the source text named one explicitly.
type Candidate struct {
	ID           string
	Start        time.Time
	End          time.Time
	Status       application.SlotStatus
	Notes        string
	Label        string
	TargetStatus *application.SlotStatus
}

// Decision is the closed set of reconciliation outcomes.
type Decision interface {
	isDecision()
}

// NoAction reports that nothing actionable was identified.
type NoAction struct {
	Reason string
}

// AddSlots carries new entries to pass through to the store.
type AddSlots struct {
	Items []application.TimeslotInput
}

// ToggleSlots carries status changes for existing slots.
type ToggleSlots struct {
	Updates []application.TimeslotUpdate
}

func (NoAction) isDecision()    {}
func (AddSlots) isDecision()    {}
func (ToggleSlots) isDecision() {}

// Reconcile classifies the candidates against the acting user's existing
// slots.
//
// When every candidate confidently references an existing slot the decision
// is ToggleSlots: slots whose candidate named a target status are set to it,
// the rest have their current status flipped. Otherwise the candidates are
// treated as new entries, with consecutive same-status spans collapsed into
// the longest contiguous interval.
func Reconcile(candidates []Candidate, existing []application.TimeSlot) Decision {
	if len(candidates) == 0 {
		return NoAction{Reason: "no candidate slots extracted"}
	}

	matches := make(map[string]application.TimeslotUpdate)
	allMatched := len(existing) > 0
	for _, candidate := range candidates {
		slot, confidence := bestMatch(candidate, existing)
		if confidence < MatchThreshold {
			allMatched = false
			break
		}
		target := candidate.TargetStatus
		if target == nil {
			toggled := slot.Status.Toggle()
			target = &toggled
		}
		// Two candidates referencing the same slot collapse into one update;
		// the later candidate wins.
		update := application.TimeslotUpdate{ID: slot.ID, Status: target}
		matches[slot.ID] = update
	}

	if allMatched && len(matches) > 0 {
		updates := make([]application.TimeslotUpdate, 0, len(matches))
		for _, slot := range existing {
			if update, ok := matches[slot.ID]; ok {
				updates = append(updates, update)
			}
		}
		return ToggleSlots{Updates: updates}
	}

	items := coalesce(candidates)
	if len(items) == 0 {
		return NoAction{Reason: "candidates carried no usable time spans"}
	}
	return AddSlots{Items: items}
}

// MatchConfidence scores how strongly a candidate refers to an existing
// slot, on a 0-1 scale. Exported so callers can surface the score.
func MatchConfidence(candidate Candidate, slot application.TimeSlot) float64 {
	if candidate.ID != "" && candidate.ID == slot.ID {
		return 1.0
	}

	score := 0.9 * overlapRatio(candidate, slot)
	if text := 0.8 * textSimilarity(candidate, slot); text > score {
		score = text
	}
	return score
}

func bestMatch(candidate Candidate, existing []application.TimeSlot) (application.TimeSlot, float64) {
	var best application.TimeSlot
	bestScore := 0.0
	for _, slot := range existing {
		if score := MatchConfidence(candidate, slot); score > bestScore {
			best = slot
			bestScore = score
		}
	}
	return best, bestScore
}

// overlapRatio returns the overlap between the candidate span and the slot
// span as a fraction of the shorter of the two.
func overlapRatio(candidate Candidate, slot application.TimeSlot) float64 {
	start := candidate.Start
	if slot.Start.After(start) {
		start = slot.Start
	}
	end := candidate.End
	if slot.End.Before(end) {
		end = slot.End
	}
	overlap := end.Sub(start)
	if overlap <= 0 {
		return 0
	}

	shorter := candidate.End.Sub(candidate.Start)
	if other := slot.End.Sub(slot.Start); other < shorter {
		shorter = other
	}
	if shorter <= 0 {
		return 0
	}
	ratio := float64(overlap) / float64(shorter)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// textSimilarity compares the candidate's free text against the slot's notes
// and label using word-set overlap.
func textSimilarity(candidate Candidate, slot application.TimeSlot) float64 {
	candidateWords := wordSet(candidate.Notes + " " + candidate.Label)
	slotWords := wordSet(slot.Notes + " " + slot.Label)
	if len(candidateWords) == 0 || len(slotWords) == 0 {
		return 0
	}

	shared := 0
	for word := range candidateWords {
		if _, ok := slotWords[word]; ok {
			shared++
		}
	}
	union := len(candidateWords) + len(slotWords) - shared
	return float64(shared) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:")
		if word != "" {
			set[word] = struct{}{}
		}
	}
	return set
}

// coalesce converts candidates into add inputs, collapsing consecutive
// same-status candidates that touch (within coalesceGap) into one spanning
// input. A range stated as several uniform days becomes a single interval.
func coalesce(candidates []Candidate) []application.TimeslotInput {
	usable := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Start.IsZero() || candidate.End.IsZero() {
			continue
		}
		usable = append(usable, candidate)
	}
	if len(usable) == 0 {
		return nil
	}

	ordered := make([]Candidate, len(usable))
	copy(ordered, usable)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Start.Before(ordered[j-1].Start); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	items := make([]application.TimeslotInput, 0, len(ordered))
	current := toInput(ordered[0])
	for _, candidate := range ordered[1:] {
		sameStatus := candidate.Status == current.Status
		touches := !candidate.Start.After(current.End.Add(coalesceGap))
		if sameStatus && touches {
			if candidate.End.After(current.End) {
				current.End = candidate.End
			}
			if current.Notes == "" {
				current.Notes = candidate.Notes
			}
			if current.Label == "" {
				current.Label = candidate.Label
			}
			continue
		}
		items = append(items, current)
		current = toInput(candidate)
	}
	items = append(items, current)
	return items
}

func toInput(candidate Candidate) application.TimeslotInput {
	return application.TimeslotInput{
		Start:  candidate.Start,
		End:    candidate.End,
		Status: candidate.Status,
		Notes:  candidate.Notes,
		Label:  candidate.Label,
	}
}
