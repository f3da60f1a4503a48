package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/practice-sem-2/chat-client/internal/metrics"
	"github.com/practice-sem-2/chat-client/internal/models"
	"github.com/sirupsen/logrus"
)

type ConversationConfig struct {
	Scope       models.Scope
	Viewer      string
	Sync        SyncConfig
	ResyncDelay time.Duration
}

// Conversation wires the engine of one conversation view. Its scope is fixed
// for its whole life.
type Conversation struct {
	Room       *Room
	Resolver   *PermissionResolver
	Sync       *SyncLoop
	Messages   *MessagesCoordinator
	Moderation *ModerationController
}

func NewConversation(
	cfg ConversationConfig,
	messages MessagesStore,
	roster RosterStore,
	presenter Presenter,
	validate *validator.Validate,
	m *metrics.Metrics,
	logger *logrus.Logger,
) (*Conversation, error) {
	if err := validate.Struct(cfg.Scope); err != nil {
		return nil, fmt.Errorf("invalid conversation scope %q: %w", cfg.Scope.String(), err)
	}

	room := NewRoom(cfg.Scope, cfg.Viewer, presenter, logger)
	resolver := NewPermissionResolver(roster, cfg.Viewer, logger)
	loop := NewSyncLoop(room, messages, resolver, m, cfg.Sync, logger)

	return &Conversation{
		Room:       room,
		Resolver:   resolver,
		Sync:       loop,
		Messages:   NewMessagesCoordinator(room, messages, loop, cfg.ResyncDelay, m, logger),
		Moderation: NewModerationController(room, roster, resolver, validate, m, logger),
	}, nil
}

// Open starts syncing. Stopping the returned handle tears the view down.
func (c *Conversation) Open(ctx context.Context) (*SyncHandle, error) {
	return c.Sync.Start(ctx)
}
