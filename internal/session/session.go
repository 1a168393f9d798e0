// Package session stores per-user conversation context behind a narrow keyed
// interface. Each external user has at most one session, looked up by their
// internal user id; there is no process-wide session registry.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/slotsync/internal/application"
)

// ErrNotFound reports that no session exists for the requested user.
var ErrNotFound = errors.New("session: not found")

// State is the closed set of conversation states. Each concrete state
// carries exactly the data that state needs.
type State interface {
	stateTag() string
}

// Idle is the resting state: the user has no project selected.
type Idle struct{}

// SelectingProject means the user was shown a numbered project list and the
// next message is expected to pick one.
type SelectingProject struct {
	// ChoiceIDs maps the offered ordinals (1-based, in order) to project ids.
	ChoiceIDs []string `json:"choice_ids"`
}

// InProject means the user is working inside a project and free-text
// scheduling messages apply to it.
type InProject struct {
	ProjectID string `json:"project_id"`
}

// AwaitingConfirmation means a mutation was proposed from extracted intent
// and is parked until the user confirms or cancels it.
type AwaitingConfirmation struct {
	ProjectID string        `json:"project_id"`
	Pending   PendingAction `json:"pending"`
}

// PendingAction is the parked mutation. Exactly one of the payload fields is
// populated, matching the store operation it will become.
type PendingAction struct {
	AddItems  []application.TimeslotInput  `json:"add_items,omitempty"`
	Updates   []application.TimeslotUpdate `json:"updates,omitempty"`
	DeleteIDs []string                     `json:"delete_ids,omitempty"`
	MergeIDs  []string                     `json:"merge_ids,omitempty"`
	Summary   string                       `json:"summary,omitempty"`
}

func (Idle) stateTag() string                 { return "idle" }
func (SelectingProject) stateTag() string     { return "selecting_project" }
func (InProject) stateTag() string            { return "in_project" }
func (AwaitingConfirmation) stateTag() string { return "awaiting_confirmation" }

// Session is one user's conversation context.
type Session struct {
	UserID    string
	State     State
	UpdatedAt time.Time
}

type envelope struct {
	UserID    string          `json:"user_id"`
	State     string          `json:"state"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MarshalJSON encodes the session with an explicit state tag so the payload
// can be decoded back into the right concrete state.
func (s Session) MarshalJSON() ([]byte, error) {
	state := s.State
	if state == nil {
		state = Idle{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		UserID:    s.UserID,
		State:     state.stateTag(),
		Data:      data,
		UpdatedAt: s.UpdatedAt,
	})
}

// UnmarshalJSON decodes the tagged envelope. An unknown tag is an error so a
// corrupted or future record never silently becomes Idle.
func (s *Session) UnmarshalJSON(raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}

	var state State
	switch env.State {
	case "idle", "":
		state = Idle{}
	case "selecting_project":
		var concrete SelectingProject
		if err := json.Unmarshal(env.Data, &concrete); err != nil {
			return err
		}
		state = concrete
	case "in_project":
		var concrete InProject
		if err := json.Unmarshal(env.Data, &concrete); err != nil {
			return err
		}
		state = concrete
	case "awaiting_confirmation":
		var concrete AwaitingConfirmation
		if err := json.Unmarshal(env.Data, &concrete); err != nil {
			return err
		}
		state = concrete
	default:
		return fmt.Errorf("session: unknown state tag %q", env.State)
	}

	s.UserID = env.UserID
	s.State = state
	s.UpdatedAt = env.UpdatedAt
	return nil
}

// Store is the keyed session store the conversation layer depends on.
// Implementations expire entries after their configured TTL.
type Store interface {
	Get(ctx context.Context, userID string) (Session, error)
	Put(ctx context.Context, session Session) error
	Delete(ctx context.Context, userID string) error
	// Prune removes expired entries eagerly and reports how many went away.
	Prune(ctx context.Context) (int, error)
	Close() error
}
