package usecases

import "github.com/practice-sem-2/chat-client/internal/models"

type Entry struct {
	Message models.Message
	Actions models.MessageActions
}

// MessageActionsFor is the only place deciding whether edit and delete
// controls are shown. It is advisory: the backend re-checks every call.
func MessageActionsFor(m models.Message, viewer string, caps models.Capabilities) models.MessageActions {
	own := viewer != "" && m.Author == viewer
	return models.MessageActions{
		Edit:   own && caps.CanEditOwn,
		Delete: (own && caps.CanDeleteOwn) || caps.CanModerate,
	}
}

func EntriesFor(messages []models.Message, viewer string, caps models.Capabilities) []Entry {
	entries := make([]Entry, len(messages))
	for i, m := range messages {
		entries[i] = Entry{Message: m, Actions: MessageActionsFor(m, viewer, caps)}
	}
	return entries
}

func ModerationPanelVisible(caps models.Capabilities) bool {
	return caps.CanModerate
}

// ActionMenuFor computes the controls offered for a selected roster entry.
// Viewers who can't moderate get none. Ban and unban are exclusive on the
// target's flag; role changes need an admin viewer.
func ActionMenuFor(target models.RosterEntry, caps models.Capabilities) models.ActionMenu {
	menu := models.ActionMenu{
		UserID:   target.UserID,
		Username: target.Username,
	}
	if !ModerationPanelVisible(caps) {
		return menu
	}
	menu.Ban = !target.IsBanned
	menu.Unban = target.IsBanned
	if !caps.IsAdmin {
		return menu
	}

	switch {
	case target.IsAdmin:
	case target.IsModerator:
		menu.Demote = true
	default:
		menu.Promote = true
	}
	return menu
}
