package console

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/practice-sem-2/chat-client/internal/models"
	usecase "github.com/practice-sem-2/chat-client/internal/usecases"
)

// Clean strips terminal escape sequences and control characters from
// server-provided text before it is written to the terminal.
func Clean(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

func AttachmentLabel(a models.Attachment) string {
	kind := "file"
	if a.IsImage() {
		kind = "image"
	}
	return fmt.Sprintf("[%s: %s <%s>]", kind, Clean(a.Name), Clean(a.URL))
}

func EntryCommands(e usecase.Entry) []string {
	var out []string
	if e.Actions.Edit {
		out = append(out, fmt.Sprintf("/edit %d", e.Message.ID))
	}
	if e.Actions.Delete {
		out = append(out, fmt.Sprintf("/delete %d", e.Message.ID))
	}
	return out
}

func MenuCommands(menu models.ActionMenu) []string {
	var out []string
	if menu.Ban {
		out = append(out, "/ban [reason]")
	}
	if menu.Unban {
		out = append(out, "/unban")
	}
	if menu.Promote {
		out = append(out, "/promote")
	}
	if menu.Demote {
		out = append(out, "/demote")
	}
	return out
}

func RosterLine(e models.RosterEntry) string {
	var badges []string
	if e.IsAdmin {
		badges = append(badges, "admin")
	}
	if e.IsModerator {
		badges = append(badges, "moderator")
	}
	if e.IsBanned {
		badges = append(badges, "banned")
	}
	line := fmt.Sprintf("  %d %s", e.UserID, Clean(e.Username))
	if len(badges) > 0 {
		line += " [" + strings.Join(badges, ", ") + "]"
	}
	return line
}

// errorText maps errors the engine returns without notifying the user.
// Backend failures are already shown as notices, so they map to "".
func errorText(err error) string {
	errorMapper := []struct {
		from error
		to   string
	}{
		{usecase.ErrEmptyMessage, "nothing to send"},
		{usecase.ErrSendInFlight, "a message is already being sent"},
		{usecase.ErrConversationGone, "this conversation has been deleted"},
		{usecase.ErrRoomClosed, "this conversation is closed"},
		{usecase.ErrMessageNotInView, "no such message"},
		{usecase.ErrEditInFlight, "the edit is still being saved"},
		{usecase.ErrSessionClosed, "no edit in progress"},
		{usecase.ErrNoSelection, "select a user first with /select <id>"},
		{usecase.ErrUnknownUser, "no such user, try /users"},
		{usecase.ErrNotAllowed, "that action is not available for this user"},
		{errUsage, ""},
	}

	if err == nil {
		return ""
	}

	for _, mapping := range errorMapper {
		if errors.Is(err, mapping.from) {
			if mapping.to == "" {
				return err.Error()
			}
			return mapping.to
		}
	}
	return ""
}
