package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/practice-sem-2/chat-client/internal/metrics"
	"github.com/practice-sem-2/chat-client/internal/models"
	storage "github.com/practice-sem-2/chat-client/internal/storages"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyMessage     = errors.New("message has neither text nor attachment")
	ErrSendInFlight     = errors.New("a message is already being sent")
	ErrMessageNotInView = errors.New("message is not in the view")
	ErrSessionClosed    = errors.New("edit session is closed")
	ErrEditInFlight     = fmt.Errorf("%w: a commit is already in flight", ErrSessionClosed)
)

// EditSession is the transient draft of one in-place edit. The stored message
// is never touched while the session is open.
type EditSession struct {
	MessageID int64

	mu        sync.Mutex
	original  string
	draft     string
	committed string
	state     models.EditState
	outcome   models.EditState
	inFlight  bool
}

func (s *EditSession) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *EditSession) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.EditOpen {
		s.draft = text
	}
}

func (s *EditSession) Original() string {
	return s.original
}

// State is either EditOpen or EditClosed.
func (s *EditSession) State() models.EditState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome tells how a closed session ended: EditCommitted or EditAborted.
func (s *EditSession) Outcome() models.EditState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

// Display is what the message region shows for this session right now.
func (s *EditSession) Display() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == models.EditOpen:
		return s.draft
	case s.outcome == models.EditCommitted:
		return s.committed
	default:
		return s.original
	}
}

type MessagesCoordinator struct {
	room        *Room
	store       MessagesStore
	resync      Resyncer
	resyncDelay time.Duration
	metrics     *metrics.Metrics
	logger      *logrus.Entry

	sending  atomic.Bool
	mu       sync.Mutex
	sessions map[int64]*EditSession
}

func NewMessagesCoordinator(room *Room, store MessagesStore, resync Resyncer, resyncDelay time.Duration, m *metrics.Metrics, logger *logrus.Logger) *MessagesCoordinator {
	return &MessagesCoordinator{
		room:        room,
		store:       store,
		resync:      resync,
		resyncDelay: resyncDelay,
		metrics:     m,
		sessions:    make(map[int64]*EditSession),
		logger: logger.WithFields(logrus.Fields{
			"component": "messages",
			"salon":     room.Scope().Salon,
			"channel":   room.Scope().Channel,
		}),
	}
}

// Send posts the draft. The draft is only cleared once the backend accepted it,
// so a failed send can be retried as is.
func (c *MessagesCoordinator) Send(ctx context.Context, draft *models.Draft) (*models.Message, error) {
	if draft == nil || draft.IsEmpty() {
		c.metrics.Mutations.WithLabelValues("send", metrics.OutcomeRejected).Inc()
		return nil, ErrEmptyMessage
	}
	if err := c.room.checkActive(); err != nil {
		return nil, err
	}
	if !c.sending.CompareAndSwap(false, true) {
		return nil, ErrSendInFlight
	}
	defer c.sending.Store(false)

	c.room.setSendBusy(true)
	defer c.room.setSendBusy(false)

	msg, err := c.store.Send(ctx, c.room.Scope(), draft.Trimmed(), draft.File)
	if err != nil {
		c.metrics.Mutations.WithLabelValues("send", metrics.OutcomeError).Inc()
		c.logger.WithError(err).Warn("send failed")

		var apiErr *storage.APIError
		switch {
		case errors.Is(err, storage.ErrAuthRequired):
			c.room.notify(warning(textLoginToSend))
		case errors.Is(err, storage.ErrNotFound):
			c.room.MarkGone()
		case errors.As(err, &apiErr) && apiErr.Message == "":
			c.room.notify(danger(fmt.Sprintf("Could not send the message (%d).", apiErr.Status)))
		default:
			c.room.notify(danger(failureText(err, "Could not send the message.")))
		}
		return nil, err
	}

	c.metrics.Mutations.WithLabelValues("send", metrics.OutcomeOK).Inc()
	draft.Reset()
	if c.room.IsClosed() {
		return msg, nil
	}

	c.room.appendMessage(*msg)
	c.metrics.ViewMessages.Set(float64(c.room.View().Len()))
	// The optimistic append may briefly duplicate or misorder against
	// concurrent sends; one extra sync shortly after settles it.
	c.resync.SyncAfter(c.resyncDelay)
	return msg, nil
}

// OpenEdit starts an edit session pre-filled with the current content. Opening
// a message that already has a session returns that session.
func (c *MessagesCoordinator) OpenEdit(messageID int64) (*EditSession, error) {
	if err := c.room.checkActive(); err != nil {
		return nil, err
	}
	msg, ok := c.room.View().Get(messageID)
	if !ok {
		return nil, ErrMessageNotInView
	}

	c.mu.Lock()
	s, exists := c.sessions[messageID]
	if !exists {
		s = &EditSession{
			MessageID: messageID,
			original:  msg.Body,
			draft:     msg.Body,
			state:     models.EditOpen,
		}
		c.sessions[messageID] = s
	}
	c.mu.Unlock()

	if !exists && !c.room.IsClosed() {
		c.room.presenter.OpenEditor(messageID, s.Draft())
	}
	return s, nil
}

// Session returns the open session of a message, if any.
func (c *MessagesCoordinator) Session(messageID int64) (*EditSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[messageID]
	return s, ok
}

// CommitEdit sends the draft. An empty or unchanged draft aborts without a
// request. On failure the session stays open with its draft.
func (c *MessagesCoordinator) CommitEdit(ctx context.Context, s *EditSession) (models.EditState, error) {
	s.mu.Lock()
	if s.state != models.EditOpen {
		defer s.mu.Unlock()
		return s.outcomeLocked(), ErrSessionClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return models.EditOpen, ErrEditInFlight
	}
	content := strings.TrimSpace(s.draft)
	if content == "" || content == s.original {
		s.mu.Unlock()
		c.AbortEdit(s)
		return models.EditAborted, nil
	}
	s.inFlight = true
	s.mu.Unlock()

	if err := c.room.checkActive(); err != nil {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
		return models.EditOpen, err
	}

	err := c.store.Edit(ctx, s.MessageID, content)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		s.mu.Unlock()
		c.metrics.Mutations.WithLabelValues("edit", metrics.OutcomeError).Inc()
		c.logger.WithError(err).WithField("message_id", s.MessageID).Warn("edit failed")
		c.room.notify(danger(failureText(err, textEditFailed)))
		return models.EditOpen, err
	}
	s.state = models.EditClosed
	s.outcome = models.EditCommitted
	s.committed = content
	s.mu.Unlock()

	c.forget(s)
	c.metrics.Mutations.WithLabelValues("edit", metrics.OutcomeOK).Inc()
	c.room.View().Update(s.MessageID, content)
	if !c.room.IsClosed() {
		c.room.presenter.CloseEditor(s.MessageID, content)
		c.room.notify(success(textEdited))
	}
	return models.EditCommitted, nil
}

// AbortEdit discards the draft and restores the original content.
func (c *MessagesCoordinator) AbortEdit(s *EditSession) models.EditState {
	s.mu.Lock()
	if s.state != models.EditOpen || s.inFlight {
		defer s.mu.Unlock()
		return s.outcomeLocked()
	}
	s.state = models.EditClosed
	s.outcome = models.EditAborted
	s.draft = s.original
	s.mu.Unlock()

	c.forget(s)
	if !c.room.IsClosed() {
		c.room.presenter.CloseEditor(s.MessageID, s.original)
	}
	return models.EditAborted
}

// HandleKey maps the editor keystrokes: accept commits, cancel aborts.
func (c *MessagesCoordinator) HandleKey(ctx context.Context, s *EditSession, key models.Key) (models.EditState, error) {
	switch key {
	case models.KeyAccept:
		return c.CommitEdit(ctx, s)
	case models.KeyCancel:
		return c.AbortEdit(s), nil
	}
	return s.State(), nil
}

// Delete asks the presenter for confirmation first; without it no request is made.
func (c *MessagesCoordinator) Delete(ctx context.Context, messageID int64) (bool, error) {
	if err := c.room.checkActive(); err != nil {
		return false, err
	}
	if !c.room.presenter.Confirm(textDeletePrompt) {
		return false, nil
	}

	if err := c.store.Delete(ctx, messageID); err != nil {
		c.metrics.Mutations.WithLabelValues("delete", metrics.OutcomeError).Inc()
		c.logger.WithError(err).WithField("message_id", messageID).Warn("delete failed")
		c.room.notify(danger(failureText(err, textDeleteFailed)))
		return false, err
	}

	c.metrics.Mutations.WithLabelValues("delete", metrics.OutcomeOK).Inc()
	if s, ok := c.Session(messageID); ok {
		c.AbortEdit(s)
	}
	c.room.View().Remove(messageID)
	c.metrics.ViewMessages.Set(float64(c.room.View().Len()))
	if !c.room.IsClosed() {
		c.room.presenter.RemoveMessage(messageID)
		c.room.notify(success(textDeleted))
	}
	return true, nil
}

func (c *MessagesCoordinator) forget(s *EditSession) {
	c.mu.Lock()
	if c.sessions[s.MessageID] == s {
		delete(c.sessions, s.MessageID)
	}
	c.mu.Unlock()
}

func (s *EditSession) outcomeLocked() models.EditState {
	if s.state == models.EditOpen {
		return models.EditOpen
	}
	return s.outcome
}
