package usecases

import (
	"context"
	"time"

	"github.com/practice-sem-2/chat-client/internal/models"
)

type MessagesStore interface {
	List(ctx context.Context, scope models.Scope) ([]models.Message, error)
	Send(ctx context.Context, scope models.Scope, text string, file *models.Upload) (*models.Message, error)
	Edit(ctx context.Context, messageID int64, text string) error
	Delete(ctx context.Context, messageID int64) error
}

type RosterStore interface {
	List(ctx context.Context, salon string) ([]models.RosterEntry, error)
	Moderate(ctx context.Context, salon string, action models.ModerationAction, req models.ModerationRequest) (string, error)
}

// Presenter renders the conversation. It never decides which controls are
// visible: every entry arrives with its actions already computed.
type Presenter interface {
	RenderMessages(entries []Entry)
	AppendMessage(entry Entry)
	RemoveMessage(messageID int64)
	OpenEditor(messageID int64, draft string)
	CloseEditor(messageID int64, display string)
	Notify(notice models.Notice)
	SetSendBusy(busy bool)
	DisableSend()
	Confirm(prompt string) bool
	RenderRoster(entries []models.RosterEntry)
	RenderActions(menu models.ActionMenu)
}

type Resyncer interface {
	SyncAfter(delay time.Duration)
}
