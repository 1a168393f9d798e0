// Package chat drives the conversational front-end: it resolves the sender,
// walks their conversation state machine, and translates messages into
// time-slot store operations.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/slotsync/internal/application"
	"github.com/example/slotsync/internal/extraction"
	"github.com/example/slotsync/internal/reconcile"
	"github.com/example/slotsync/internal/session"
)

// Directory is the identity surface the conversation needs.
type Directory interface {
	ResolveUser(ctx context.Context, params application.RegisterUserParams) (application.User, error)
	EnsureDefaultProject(ctx context.Context, user application.User) (application.Project, error)
	ListProjects(ctx context.Context, userID string) ([]application.Project, error)
	ResolveProject(ctx context.Context, id string) (application.Project, error)
	CreateProject(ctx context.Context, params application.CreateProjectParams) (application.Project, error)
}

// SlotStore is the mutation surface the conversation needs.
type SlotStore interface {
	AddTimeslots(ctx context.Context, params application.AddTimeslotsParams) ([]application.TimeSlot, error)
	UpdateTimeslots(ctx context.Context, params application.UpdateTimeslotsParams) ([]application.TimeSlot, error)
	DeleteTimeslots(ctx context.Context, params application.DeleteTimeslotsParams) (int, error)
	MergeTimeslots(ctx context.Context, params application.MergeTimeslotsParams) (application.TimeSlot, error)
	GetUserTimeslots(ctx context.Context, projectID, userID string) []application.TimeSlot
}

// Service is the conversation handler. One instance serves all users; per
// user context lives in the session store.
type Service struct {
	directory Directory
	slots     SlotStore
	sessions  session.Store
	extractor extraction.Extractor
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the conversation handler.
func NewService(directory Directory, slots SlotStore, sessions session.Store, extractor extraction.Extractor, now func() time.Time) *Service {
	return NewServiceWithLogger(directory, slots, sessions, extractor, now, nil)
}

// NewServiceWithLogger wires the conversation handler with a custom logger.
func NewServiceWithLogger(directory Directory, slots SlotStore, sessions session.Store, extractor extraction.Extractor, now func() time.Time, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		directory: directory,
		slots:     slots,
		sessions:  sessions,
		extractor: extractor,
		logger:    logger,
		now:       now,
	}
}

// Message is one inbound chat message together with the sender identity
// attributes supplied by the transport.
type Message struct {
	Identity application.RegisterUserParams
	Text     string
}

// HandleMessage processes one message and returns the reply text. Domain
// failures become human replies; the returned error is reserved for
// infrastructure faults where no sensible reply exists.
func (s *Service) HandleMessage(ctx context.Context, msg Message) (string, error) {
	if s == nil {
		return "", fmt.Errorf("chat: service is nil")
	}

	user, err := s.directory.ResolveUser(ctx, msg.Identity)
	if err != nil {
		return "", fmt.Errorf("chat: resolve user: %w", err)
	}

	current, err := s.sessions.Get(ctx, user.ID)
	if errors.Is(err, session.ErrNotFound) {
		current = session.Session{UserID: user.ID, State: session.Idle{}}
	} else if err != nil {
		return "", fmt.Errorf("chat: load session: %w", err)
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		return s.handleCommand(ctx, user, current, text)
	}
	return s.handleText(ctx, user, current, text)
}

func (s *Service) handleCommand(ctx context.Context, user application.User, current session.Session, text string) (string, error) {
	command, argument, _ := strings.Cut(text, " ")
	argument = strings.TrimSpace(argument)

	switch strings.ToLower(command) {
	case "/start":
		return s.startConversation(ctx, user)
	case "/projects":
		return s.offerProjects(ctx, user)
	case "/new":
		return s.createProject(ctx, user, argument)
	case "/list":
		return s.listSlots(ctx, user, current)
	case "/cancel":
		return s.cancelPending(ctx, user, current)
	case "/help":
		return helpText, nil
	default:
		return fmt.Sprintf("I don't know %s. %s", command, helpText), nil
	}
}

func (s *Service) startConversation(ctx context.Context, user application.User) (string, error) {
	project, err := s.directory.EnsureDefaultProject(ctx, user)
	if err != nil {
		s.logger.Error("default project bootstrap failed",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
		return replyForError(err), nil
	}

	projects, err := s.directory.ListProjects(ctx, user.ID)
	if err != nil || len(projects) <= 1 {
		if err := s.enterProject(ctx, user.ID, project.ID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Hi %s! You're in %q. Tell me when you're available or busy, or send /help.", displayName(user), project.Name), nil
	}
	return s.offerProjectList(ctx, user, projects)
}

func (s *Service) offerProjects(ctx context.Context, user application.User) (string, error) {
	projects, err := s.directory.ListProjects(ctx, user.ID)
	if err != nil {
		return replyForError(err), nil
	}
	if len(projects) == 0 {
		return "You have no projects yet. Send /start to create one.", nil
	}
	return s.offerProjectList(ctx, user, projects)
}

func (s *Service) offerProjectList(ctx context.Context, user application.User, projects []application.Project) (string, error) {
	choices := make([]string, 0, len(projects))
	var b strings.Builder
	b.WriteString("Which project?\n")
	for i, project := range projects {
		choices = append(choices, project.ID)
		fmt.Fprintf(&b, "%d. %s\n", i+1, project.Name)
	}
	b.WriteString("Reply with a number or a name.")

	err := s.saveState(ctx, user.ID, session.SelectingProject{ChoiceIDs: choices})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Service) createProject(ctx context.Context, user application.User, name string) (string, error) {
	if name == "" {
		return "Give the project a name: /new Weekend trip", nil
	}
	project, err := s.directory.CreateProject(ctx, application.CreateProjectParams{
		Name:        name,
		OwnerUserID: user.ID,
	})
	if err != nil {
		return replyForError(err), nil
	}
	if err := s.enterProject(ctx, user.ID, project.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created %q and switched to it.", project.Name), nil
}

func (s *Service) listSlots(ctx context.Context, user application.User, current session.Session) (string, error) {
	projectID, ok := currentProjectID(current.State)
	if !ok {
		return "Pick a project first: send /start.", nil
	}
	slots := s.slots.GetUserTimeslots(ctx, projectID, user.ID)
	return renderSlots(slots), nil
}

func (s *Service) cancelPending(ctx context.Context, user application.User, current session.Session) (string, error) {
	switch state := current.State.(type) {
	case session.AwaitingConfirmation:
		if err := s.enterProject(ctx, user.ID, state.ProjectID); err != nil {
			return "", err
		}
		return "Cancelled. Nothing was changed.", nil
	case session.SelectingProject:
		if err := s.saveState(ctx, user.ID, session.Idle{}); err != nil {
			return "", err
		}
		return "Okay. Send /start when you're ready.", nil
	default:
		return "Nothing to cancel.", nil
	}
}

func (s *Service) handleText(ctx context.Context, user application.User, current session.Session, text string) (string, error) {
	switch state := current.State.(type) {
	case session.SelectingProject:
		return s.selectProject(ctx, user, state, text)
	case session.AwaitingConfirmation:
		return s.resolveConfirmation(ctx, user, state, text)
	case session.InProject:
		return s.handleScheduling(ctx, user, state.ProjectID, text)
	default:
		return "Send /start to begin.", nil
	}
}

func (s *Service) selectProject(ctx context.Context, user application.User, state session.SelectingProject, text string) (string, error) {
	projectID := ""
	if ordinal, err := strconv.Atoi(text); err == nil {
		if ordinal >= 1 && ordinal <= len(state.ChoiceIDs) {
			projectID = state.ChoiceIDs[ordinal-1]
		}
	} else {
		for _, id := range state.ChoiceIDs {
			project, err := s.directory.ResolveProject(ctx, id)
			if err != nil {
				continue
			}
			if strings.EqualFold(project.Name, text) {
				projectID = id
				break
			}
		}
	}
	if projectID == "" {
		return "I couldn't match that to a project. Reply with a number from the list or its exact name.", nil
	}

	project, err := s.directory.ResolveProject(ctx, projectID)
	if err != nil {
		return replyForError(err), nil
	}
	if err := s.enterProject(ctx, user.ID, project.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("You're in %q now. Tell me when you're available or busy.", project.Name), nil
}

func (s *Service) resolveConfirmation(ctx context.Context, user application.User, state session.AwaitingConfirmation, text string) (string, error) {
	switch parseConfirmation(text) {
	case confirmYes:
		reply := s.commitPending(ctx, user.ID, state.ProjectID, state.Pending)
		if err := s.enterProject(ctx, user.ID, state.ProjectID); err != nil {
			return "", err
		}
		return reply, nil
	case confirmNo:
		if err := s.enterProject(ctx, user.ID, state.ProjectID); err != nil {
			return "", err
		}
		return "Cancelled. Nothing was changed.", nil
	default:
		return "Please reply yes to apply the change or no to cancel.", nil
	}
}

func (s *Service) handleScheduling(ctx context.Context, user application.User, projectID, text string) (string, error) {
	if text == "" {
		return "Tell me when you're available or busy, or send /help.", nil
	}

	existing := s.slots.GetUserTimeslots(ctx, projectID, user.ID)
	result, err := s.extractor.Extract(ctx, extraction.Request{
		Text:          text,
		LanguageTag:   user.LanguageTag,
		ReferenceTime: s.now(),
		ExistingSlots: existing,
	})
	if err != nil {
		s.logger.Warn("extraction unavailable",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
		return "I couldn't understand that right now. Try again in a moment.", nil
	}

	pending, ok := buildPending(result, existing)
	if !ok {
		if result.ResponseText != "" {
			return result.ResponseText, nil
		}
		return "I didn't find anything actionable in that.", nil
	}

	err = s.saveState(ctx, user.ID, session.AwaitingConfirmation{ProjectID: projectID, Pending: pending})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if result.ResponseText != "" {
		b.WriteString(result.ResponseText)
		b.WriteString("\n")
	}
	b.WriteString(pending.Summary)
	b.WriteString("\nReply yes to apply or no to cancel.")
	return b.String(), nil
}

// commitPending runs the parked mutation. Exactly one payload field is set;
// the first populated one wins.
func (s *Service) commitPending(ctx context.Context, userID, projectID string, pending session.PendingAction) string {
	switch {
	case len(pending.AddItems) > 0:
		created, err := s.slots.AddTimeslots(ctx, application.AddTimeslotsParams{
			ProjectID: projectID,
			ForUserID: userID,
			Items:     pending.AddItems,
		})
		if err != nil {
			return replyForError(err)
		}
		return fmt.Sprintf("Done, added %s.", countNoun(len(created), "slot"))
	case len(pending.Updates) > 0:
		updated, err := s.slots.UpdateTimeslots(ctx, application.UpdateTimeslotsParams{
			ProjectID:     projectID,
			RequestUserID: userID,
			Updates:       pending.Updates,
		})
		if err != nil {
			return replyForError(err)
		}
		return fmt.Sprintf("Done, changed %s.", countNoun(len(updated), "slot"))
	case len(pending.DeleteIDs) > 0:
		removed, err := s.slots.DeleteTimeslots(ctx, application.DeleteTimeslotsParams{
			ProjectID:     projectID,
			RequestUserID: userID,
			IDs:           pending.DeleteIDs,
		})
		if err != nil {
			return replyForError(err)
		}
		return fmt.Sprintf("Done, removed %s.", countNoun(removed, "slot"))
	case len(pending.MergeIDs) > 0:
		merged, err := s.slots.MergeTimeslots(ctx, application.MergeTimeslotsParams{
			ProjectID:     projectID,
			RequestUserID: userID,
			IDs:           pending.MergeIDs,
		})
		if err != nil {
			return replyForError(err)
		}
		return fmt.Sprintf("Done, merged them into one slot from %s to %s.",
			formatTime(merged.Start), formatTime(merged.End))
	default:
		return "Nothing was pending."
	}
}

// buildPending maps an extraction result onto a parked store operation. The
// operation set is closed; every member is handled here.
func buildPending(result extraction.Result, existing []application.TimeSlot) (session.PendingAction, bool) {
	switch result.Operation {
	case extraction.OperationAdd:
		items := addItems(result.Candidates)
		if len(items) == 0 {
			return session.PendingAction{}, false
		}
		return session.PendingAction{AddItems: items, Summary: summarizeAdd(items)}, true
	case extraction.OperationUpdate:
		updates := statusUpdates(result.Candidates)
		if len(updates) == 0 {
			return session.PendingAction{}, false
		}
		return session.PendingAction{Updates: updates, Summary: summarizeUpdates(updates)}, true
	case extraction.OperationDelete:
		if len(result.SlotIDs) == 0 {
			return session.PendingAction{}, false
		}
		return session.PendingAction{
			DeleteIDs: result.SlotIDs,
			Summary:   fmt.Sprintf("This removes %s.", countNoun(len(result.SlotIDs), "slot")),
		}, true
	case extraction.OperationMerge:
		if len(result.SlotIDs) < 2 {
			return session.PendingAction{}, false
		}
		return session.PendingAction{
			MergeIDs: result.SlotIDs,
			Summary:  fmt.Sprintf("This merges %s into one.", countNoun(len(result.SlotIDs), "slot")),
		}, true
	case extraction.OperationNone:
		return pendingFromDecision(reconcile.Reconcile(result.Candidates, existing))
	default:
		return session.PendingAction{}, false
	}
}

func pendingFromDecision(decision reconcile.Decision) (session.PendingAction, bool) {
	switch concrete := decision.(type) {
	case reconcile.AddSlots:
		return session.PendingAction{
			AddItems: concrete.Items,
			Summary:  summarizeAdd(concrete.Items),
		}, true
	case reconcile.ToggleSlots:
		return session.PendingAction{
			Updates: concrete.Updates,
			Summary: summarizeUpdates(concrete.Updates),
		}, true
	default:
		return session.PendingAction{}, false
	}
}

func addItems(candidates []reconcile.Candidate) []application.TimeslotInput {
	items := make([]application.TimeslotInput, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Start.IsZero() || candidate.End.IsZero() {
			continue
		}
		status := candidate.Status
		if !status.Valid() {
			status = application.StatusBusy
		}
		items = append(items, application.TimeslotInput{
			Start:  candidate.Start,
			End:    candidate.End,
			Status: status,
			Notes:  candidate.Notes,
			Label:  candidate.Label,
		})
	}
	return items
}

func statusUpdates(candidates []reconcile.Candidate) []application.TimeslotUpdate {
	updates := make([]application.TimeslotUpdate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == "" || candidate.TargetStatus == nil {
			continue
		}
		status := *candidate.TargetStatus
		updates = append(updates, application.TimeslotUpdate{ID: candidate.ID, Status: &status})
	}
	return updates
}

func (s *Service) enterProject(ctx context.Context, userID, projectID string) error {
	return s.saveState(ctx, userID, session.InProject{ProjectID: projectID})
}

func (s *Service) saveState(ctx context.Context, userID string, state session.State) error {
	err := s.sessions.Put(ctx, session.Session{
		UserID:    userID,
		State:     state,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("chat: save session: %w", err)
	}
	return nil
}

func currentProjectID(state session.State) (string, bool) {
	switch concrete := state.(type) {
	case session.InProject:
		return concrete.ProjectID, true
	case session.AwaitingConfirmation:
		return concrete.ProjectID, true
	default:
		return "", false
	}
}

type confirmation int

const (
	confirmUnclear confirmation = iota
	confirmYes
	confirmNo
)

func parseConfirmation(text string) confirmation {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "ok", "confirm", "sure":
		return confirmYes
	case "no", "n", "cancel", "stop":
		return confirmNo
	default:
		return confirmUnclear
	}
}

func displayName(user application.User) string {
	if user.FirstName != "" {
		return user.FirstName
	}
	return user.ExternalHandle
}
