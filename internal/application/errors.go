package application

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInternal is returned when storage or a dependency fails unexpectedly.
	ErrInternal = errors.New("application: internal error")
)

// NotFoundError reports referenced records that do not exist. Resource names
// the entity kind ("project", "user", "timeslot").
type NotFoundError struct {
	Resource string
	IDs      []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.IDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, strings.Join(e.IDs, ", "))
}

// CrossProjectError reports slot ids that exist but belong to a different
// project than the caller stated.
type CrossProjectError struct {
	ProjectID string
	IDs       []string
}

// Error implements the error interface.
func (e *CrossProjectError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("timeslots do not belong to project %s: %s", e.ProjectID, strings.Join(e.IDs, ", "))
}

// ForbiddenError reports locked slots the requesting user may not mutate.
type ForbiddenError struct {
	RequestUserID string
	SlotIDs       []string
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("user %s may not mutate locked timeslots: %s", e.RequestUserID, strings.Join(e.SlotIDs, ", "))
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
