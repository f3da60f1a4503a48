package usecases

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/practice-sem-2/chat-client/internal/models"
	storage "github.com/practice-sem-2/chat-client/internal/storages"
	"github.com/sirupsen/logrus"
)

var (
	ErrConversationGone = errors.New("conversation was deleted")
	ErrRoomClosed       = errors.New("conversation view is closed")
)

// Room is the state shared by the sync loop and the coordinators of one
// conversation: the view, the viewer's capabilities and the terminal flags.
// Once gone or closed, nothing is rendered anymore.
type Room struct {
	id        string
	scope     models.Scope
	viewer    string
	view      *storage.MessageView
	presenter Presenter
	logger    *logrus.Entry

	mu   sync.RWMutex
	caps models.Capabilities

	gone      chan struct{}
	goneOnce  sync.Once
	closed    chan struct{}
	closeOnce sync.Once
}

func NewRoom(scope models.Scope, viewer string, presenter Presenter, logger *logrus.Logger) *Room {
	id := uuid.NewString()
	return &Room{
		id:        id,
		scope:     scope,
		viewer:    viewer,
		view:      storage.NewMessageView(),
		presenter: presenter,
		caps:      models.DefaultCapabilities(),
		gone:      make(chan struct{}),
		closed:    make(chan struct{}),
		logger: logger.WithFields(logrus.Fields{
			"room":    id,
			"salon":   scope.Salon,
			"channel": scope.Channel,
		}),
	}
}

func (r *Room) Scope() models.Scope {
	return r.scope
}

func (r *Room) Viewer() string {
	return r.viewer
}

func (r *Room) View() *storage.MessageView {
	return r.view
}

func (r *Room) Capabilities() models.Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps
}

func (r *Room) SetCapabilities(caps models.Capabilities) {
	r.mu.Lock()
	r.caps = caps
	r.mu.Unlock()
}

func (r *Room) Gone() <-chan struct{} {
	return r.gone
}

func (r *Room) Closed() <-chan struct{} {
	return r.closed
}

func (r *Room) IsGone() bool {
	select {
	case <-r.gone:
		return true
	default:
		return false
	}
}

func (r *Room) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

// MarkGone moves the conversation to its terminal state. Only the first call
// has an effect; it reports whether this call was the one.
func (r *Room) MarkGone() bool {
	first := false
	r.goneOnce.Do(func() {
		first = true
		close(r.gone)
		r.logger.Warn("conversation was deleted on the server")
		if !r.IsClosed() {
			r.presenter.Notify(warning(textGone))
			r.presenter.DisableSend()
		}
	})
	return first
}

// Close tears the view down. Late responses are ignored from then on.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.closed)
		r.logger.Debug("conversation view closed")
	})
}

func (r *Room) checkActive() error {
	switch {
	case r.IsClosed():
		return ErrRoomClosed
	case r.IsGone():
		return ErrConversationGone
	}
	return nil
}

func (r *Room) render() {
	if r.IsClosed() {
		return
	}
	r.presenter.RenderMessages(EntriesFor(r.view.Snapshot(), r.viewer, r.Capabilities()))
}

func (r *Room) appendMessage(m models.Message) {
	r.view.InsertOne(m)
	if r.IsClosed() {
		return
	}
	r.presenter.AppendMessage(Entry{Message: m, Actions: MessageActionsFor(m, r.viewer, r.Capabilities())})
}

func (r *Room) notify(n models.Notice) {
	if r.IsClosed() {
		return
	}
	r.presenter.Notify(n)
}

func (r *Room) setSendBusy(busy bool) {
	if r.IsClosed() || r.IsGone() {
		return
	}
	r.presenter.SetSendBusy(busy)
}
