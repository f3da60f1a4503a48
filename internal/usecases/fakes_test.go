package usecases

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/practice-sem-2/chat-client/internal/models"
	"github.com/sirupsen/logrus"
)

type fakeMessages struct {
	mu       sync.Mutex
	listFn   func(ctx context.Context, scope models.Scope) ([]models.Message, error)
	sendFn   func(ctx context.Context, text string, file *models.Upload) (*models.Message, error)
	editFn   func(ctx context.Context, id int64, text string) error
	deleteFn func(ctx context.Context, id int64) error

	lists, sends, edits, deletes int
	edited                       []string
}

func (f *fakeMessages) List(ctx context.Context, scope models.Scope) ([]models.Message, error) {
	f.mu.Lock()
	f.lists++
	fn := f.listFn
	f.mu.Unlock()
	if fn == nil {
		return []models.Message{}, nil
	}
	return fn(ctx, scope)
}

func (f *fakeMessages) Send(ctx context.Context, _ models.Scope, text string, file *models.Upload) (*models.Message, error) {
	f.mu.Lock()
	f.sends++
	fn := f.sendFn
	f.mu.Unlock()
	if fn == nil {
		return &models.Message{ID: 100, Author: "me", Body: text}, nil
	}
	return fn(ctx, text, file)
}

func (f *fakeMessages) Edit(ctx context.Context, id int64, text string) error {
	f.mu.Lock()
	f.edits++
	f.edited = append(f.edited, text)
	fn := f.editFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, id, text)
}

func (f *fakeMessages) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	f.deletes++
	fn := f.deleteFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, id)
}

func (f *fakeMessages) counts() (lists, sends, edits, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists, f.sends, f.edits, f.deletes
}

type moderationCall struct {
	Action  models.ModerationAction
	Request models.ModerationRequest
}

type fakeRoster struct {
	mu         sync.Mutex
	entries    []models.RosterEntry
	err        error
	moderateFn func(action models.ModerationAction, req models.ModerationRequest) (string, error)

	lists int
	calls []moderationCall
}

func (f *fakeRoster) set(entries []models.RosterEntry, err error) {
	f.mu.Lock()
	f.entries, f.err = entries, err
	f.mu.Unlock()
}

func (f *fakeRoster) List(_ context.Context, _ string) ([]models.RosterEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.RosterEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeRoster) Moderate(_ context.Context, _ string, action models.ModerationAction, req models.ModerationRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, moderationCall{Action: action, Request: req})
	fn := f.moderateFn
	f.mu.Unlock()
	if fn == nil {
		return "", nil
	}
	return fn(action, req)
}

func (f *fakeRoster) moderationCalls() []moderationCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]moderationCall(nil), f.calls...)
}

type recordingPresenter struct {
	mu       sync.Mutex
	confirm  bool
	rendered [][]Entry
	appended []Entry
	removed  []int64
	notices  []models.Notice
	busy     []bool
	disabled int
	opened   map[int64]string
	closed   map[int64]string
	rosters  [][]models.RosterEntry
	menus    []models.ActionMenu
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{
		confirm: true,
		opened:  make(map[int64]string),
		closed:  make(map[int64]string),
	}
}

func (p *recordingPresenter) RenderMessages(entries []Entry) {
	p.mu.Lock()
	p.rendered = append(p.rendered, entries)
	p.mu.Unlock()
}

func (p *recordingPresenter) AppendMessage(entry Entry) {
	p.mu.Lock()
	p.appended = append(p.appended, entry)
	p.mu.Unlock()
}

func (p *recordingPresenter) RemoveMessage(id int64) {
	p.mu.Lock()
	p.removed = append(p.removed, id)
	p.mu.Unlock()
}

func (p *recordingPresenter) OpenEditor(id int64, draft string) {
	p.mu.Lock()
	p.opened[id] = draft
	p.mu.Unlock()
}

func (p *recordingPresenter) CloseEditor(id int64, display string) {
	p.mu.Lock()
	p.closed[id] = display
	p.mu.Unlock()
}

func (p *recordingPresenter) Notify(n models.Notice) {
	p.mu.Lock()
	p.notices = append(p.notices, n)
	p.mu.Unlock()
}

func (p *recordingPresenter) SetSendBusy(busy bool) {
	p.mu.Lock()
	p.busy = append(p.busy, busy)
	p.mu.Unlock()
}

func (p *recordingPresenter) DisableSend() {
	p.mu.Lock()
	p.disabled++
	p.mu.Unlock()
}

func (p *recordingPresenter) Confirm(string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.confirm
}

func (p *recordingPresenter) RenderRoster(entries []models.RosterEntry) {
	p.mu.Lock()
	p.rosters = append(p.rosters, entries)
	p.mu.Unlock()
}

func (p *recordingPresenter) RenderActions(menu models.ActionMenu) {
	p.mu.Lock()
	p.menus = append(p.menus, menu)
	p.mu.Unlock()
}

func (p *recordingPresenter) lastRender() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rendered) == 0 {
		return nil
	}
	return p.rendered[len(p.rendered)-1]
}

func (p *recordingPresenter) noticeList() []models.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Notice(nil), p.notices...)
}

func (p *recordingPresenter) disabledCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disabled
}

type fakeResyncer struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *fakeResyncer) SyncAfter(d time.Duration) {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
