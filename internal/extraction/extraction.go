// Package extraction calls the external intent-extraction service that turns
// free-form scheduling text into candidate time-slot descriptors.
package extraction

import (
	"context"
	"time"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/reconcile"
)

// Operation names one of the four time-slot store operations an extraction
// response can request. The set is closed; unknown wire names parse to
// OperationNone and the caller falls back to reconciliation.
type Operation int

const (
	OperationNone Operation = iota
	OperationAdd
	OperationUpdate
	OperationDelete
	OperationMerge
)

// ParseOperation maps a wire operation name onto the closed Operation set.
func ParseOperation(name string) (Operation, bool) {
	switch name {
	case "":
		return OperationNone, true
	case "add_timeslots":
		return OperationAdd, true
	case "update_timeslots":
		return OperationUpdate, true
	case "delete_timeslots":
		return OperationDelete, true
	case "merge_timeslots":
		return OperationMerge, true
	default:
		return OperationNone, false
	}
}

// String returns the wire name of the operation.
func (o Operation) String() string {
	switch o {
	case OperationAdd:
		return "add_timeslots"
	case OperationUpdate:
		return "update_timeslots"
	case OperationDelete:
		return "delete_timeslots"
	case OperationMerge:
		return "merge_timeslots"
	default:
		return "none"
	}
}

// Request carries the user's message and enough calendar context for the
// service to ground its answer.
type Request struct {
	Text          string
	LanguageTag   string
	ReferenceTime time.Time
	ExistingSlots []application.TimeSlot
}

// Result is the service's answer: a human-readable response plus zero or
// more candidate descriptors, optionally tagged with a requested operation.
type Result struct {
	ResponseText string
	Operation    Operation
	Candidates   []reconcile.Candidate
	SlotIDs      []string
}

// Extractor is the boundary the conversation layer depends on.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Result, error)
}
