package usecases

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/practice-sem-2/chat-client/internal/metrics"
	"github.com/practice-sem-2/chat-client/internal/models"
	storage "github.com/practice-sem-2/chat-client/internal/storages"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrStaleSync   = errors.New("sync response superseded by a newer tick")
	ErrLoopStarted = errors.New("sync loop already started")
)

type SyncState int

const (
	StateIdle SyncState = iota
	StateLoading
	StateLoaded
	StateGone
	StateError
)

func (s SyncState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateGone:
		return "gone"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

type SyncConfig struct {
	Interval time.Duration
	// Jitter spreads ticks by up to ±Jitter*Interval.
	Jitter float64
}

// SyncLoop refreshes the room on a timer. Every attempt is numbered and only
// the latest issued attempt may touch the view.
type SyncLoop struct {
	room     *Room
	messages MessagesStore
	resolver *PermissionResolver
	metrics  *metrics.Metrics
	logger   *logrus.Entry
	cfg      SyncConfig

	mu      sync.Mutex
	state   SyncState
	issued  uint64
	started bool
	baseCtx context.Context
}

func NewSyncLoop(room *Room, messages MessagesStore, resolver *PermissionResolver, m *metrics.Metrics, cfg SyncConfig, logger *logrus.Logger) *SyncLoop {
	return &SyncLoop{
		room:     room,
		messages: messages,
		resolver: resolver,
		metrics:  m,
		cfg:      cfg,
		baseCtx:  context.Background(),
		logger: logger.WithFields(logrus.Fields{
			"component": "sync",
			"salon":     room.Scope().Salon,
			"channel":   room.Scope().Channel,
		}),
	}
}

func (l *SyncLoop) State() SyncState {
	if l.room.IsGone() {
		return StateGone
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Sync runs one full refresh: message list and roster, fetched in parallel.
// Failures other than a deleted conversation are logged and left for the next tick.
func (l *SyncLoop) Sync(ctx context.Context) (SyncState, error) {
	if err := l.room.checkActive(); err != nil {
		l.metrics.SyncTicks.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return l.State(), err
	}

	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.state = StateLoading
	l.mu.Unlock()

	var (
		list []models.Message
		caps models.Capabilities
	)
	scope := l.room.Scope()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = l.messages.List(gctx, scope)
		return err
	})
	g.Go(func() error {
		caps = l.resolver.Resolve(gctx, scope)
		return nil
	})
	err := g.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.issued {
		l.metrics.StaleSyncs.Inc()
		l.logger.WithField("seq", seq).Debug("discarding superseded sync response")
		return l.state, ErrStaleSync
	}
	if l.room.IsClosed() {
		return l.state, ErrRoomClosed
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		l.state = StateGone
		l.room.MarkGone()
		l.metrics.SyncTicks.WithLabelValues(metrics.OutcomeGone).Inc()
		return StateGone, nil
	case err != nil:
		l.state = StateError
		l.metrics.SyncTicks.WithLabelValues(metrics.OutcomeError).Inc()
		l.logger.WithError(err).Warn("sync failed, retrying on next tick")
		return StateError, err
	}

	l.room.View().ReplaceAll(list)
	l.room.SetCapabilities(caps)
	l.room.render()
	l.state = StateLoaded
	l.metrics.SyncTicks.WithLabelValues(metrics.OutcomeOK).Inc()
	l.metrics.ViewMessages.Set(float64(len(list)))
	return StateLoaded, nil
}

// Start performs the initial load and keeps syncing until the handle is
// stopped or the conversation is gone. A loop can only be started once.
func (l *SyncLoop) Start(ctx context.Context) (*SyncHandle, error) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return nil, ErrLoopStarted
	}
	l.started = true
	l.baseCtx = ctx
	l.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	h := &SyncHandle{
		cancel: cancel,
		done:   make(chan struct{}),
		room:   l.room,
	}
	go l.run(loopCtx, ctx, h)
	return h, nil
}

// run owns the timer. Ticks are fired without waiting for the previous one:
// a slow response is simply superseded by the next.
func (l *SyncLoop) run(loopCtx, reqCtx context.Context, h *SyncHandle) {
	defer close(h.done)

	l.spawn(reqCtx)
	timer := time.NewTimer(l.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-loopCtx.Done():
			l.logger.Debug("sync loop stopped")
			return
		case <-l.room.Gone():
			l.logger.Info("conversation gone, sync loop halted")
			return
		case <-timer.C:
			l.spawn(reqCtx)
			timer.Reset(l.nextDelay())
		}
	}
}

func (l *SyncLoop) spawn(ctx context.Context) {
	go func() {
		_, _ = l.Sync(ctx)
	}()
}

// SyncAfter schedules one out-of-band sync, dropped if the room is gone or
// closed before it fires.
func (l *SyncLoop) SyncAfter(delay time.Duration) {
	l.mu.Lock()
	ctx := l.baseCtx
	l.mu.Unlock()

	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()

		select {
		case <-t.C:
			_, _ = l.Sync(ctx)
		case <-ctx.Done():
		case <-l.room.Gone():
		case <-l.room.Closed():
		}
	}()
}

func (l *SyncLoop) nextDelay() time.Duration {
	d := l.cfg.Interval
	if l.cfg.Jitter <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * l.cfg.Jitter
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// SyncHandle is returned by Start and owns the loop's timer.
type SyncHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	room   *Room
	once   sync.Once
}

// Stop halts the timer and closes the room. Requests already in flight are
// not cancelled; their results are ignored.
func (h *SyncHandle) Stop() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
		h.room.Close()
	})
}

// Done is closed once the loop has halted, by Stop or because the conversation is gone.
func (h *SyncHandle) Done() <-chan struct{} {
	return h.done
}
