package storage

import (
	"sync"

	"github.com/practice-sem-2/chat-client/internal/models"
)

// MessageView is the ordered local mirror of one conversation's messages.
// Entries are only changed by a wholesale replace, an append after a confirmed
// send, or a patch after a confirmed edit or delete.
type MessageView struct {
	mu       sync.RWMutex
	messages []models.Message
}

func NewMessageView() *MessageView {
	return &MessageView{}
}

func (v *MessageView) ReplaceAll(messages []models.Message) {
	next := make([]models.Message, len(messages))
	copy(next, messages)

	v.mu.Lock()
	v.messages = next
	v.mu.Unlock()
}

// InsertOne appends without de-duplication; the next ReplaceAll corrects any overlap.
func (v *MessageView) InsertOne(message models.Message) {
	v.mu.Lock()
	v.messages = append(v.messages, message)
	v.mu.Unlock()
}

func (v *MessageView) Update(messageID int64, body string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	found := false
	for i := range v.messages {
		if v.messages[i].ID == messageID {
			v.messages[i].Body = body
			found = true
		}
	}
	return found
}

func (v *MessageView) Remove(messageID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	kept := v.messages[:0:0]
	for _, m := range v.messages {
		if m.ID != messageID {
			kept = append(kept, m)
		}
	}
	removed := len(kept) != len(v.messages)
	v.messages = kept
	return removed
}

func (v *MessageView) Get(messageID int64) (models.Message, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, m := range v.messages {
		if m.ID == messageID {
			return m, true
		}
	}
	return models.Message{}, false
}

func (v *MessageView) Snapshot() []models.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]models.Message, len(v.messages))
	copy(out, v.messages)
	return out
}

func (v *MessageView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.messages)
}
