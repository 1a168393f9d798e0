package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/slotsync/internal/application"
)

const helpText = "Commands: /start, /projects, /new <name>, /list, /cancel, /help. " +
	"Or just tell me when you're available or busy."

const timeLayout = "Mon 2 Jan 15:04"

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// replyForError turns a store error into a reply the user can act on.
func replyForError(err error) string {
	var validation *application.ValidationError
	if errors.As(err, &validation) {
		fields := make([]string, 0, len(validation.FieldErrors))
		for field, message := range validation.FieldErrors {
			fields = append(fields, field+": "+message)
		}
		sort.Strings(fields)
		if len(fields) == 0 {
			return "That doesn't look right; nothing was changed."
		}
		return "That doesn't look right (" + strings.Join(fields, "; ") + "); nothing was changed."
	}
	var notFound *application.NotFoundError
	if errors.As(err, &notFound) {
		return "I couldn't find some of those entries anymore; nothing was changed. Send /list to see what's there."
	}
	var crossProject *application.CrossProjectError
	if errors.As(err, &crossProject) {
		return "Those entries belong to a different project; nothing was changed."
	}
	var forbidden *application.ForbiddenError
	if errors.As(err, &forbidden) {
		return "Some of those entries are locked by their owner; nothing was changed."
	}
	return "Something went wrong on my side. Nothing was changed, please try again."
}

func renderSlots(slots []application.TimeSlot) string {
	if len(slots) == 0 {
		return "No time slots yet. Tell me when you're available or busy."
	}
	var b strings.Builder
	b.WriteString("Your time slots:\n")
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s to %s, %s", i+1, formatTime(slot.Start), formatTime(slot.End), slot.Status)
		if slot.IsLocked {
			b.WriteString(" (locked)")
		}
		if slot.Notes != "" {
			b.WriteString(" - " + slot.Notes)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func summarizeAdd(items []application.TimeslotInput) string {
	if len(items) == 1 {
		item := items[0]
		return fmt.Sprintf("This adds a %s slot from %s to %s.",
			item.Status, formatTime(item.Start), formatTime(item.End))
	}
	return fmt.Sprintf("This adds %s.", countNoun(len(items), "slot"))
}

func summarizeUpdates(updates []application.TimeslotUpdate) string {
	if len(updates) == 1 && updates[0].Status != nil {
		return fmt.Sprintf("This marks 1 existing slot as %s.", *updates[0].Status)
	}
	return fmt.Sprintf("This changes %s.", countNoun(len(updates), "existing slot"))
}

func countNoun(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
