package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/practice-sem-2/chat-client/internal/metrics"
	"github.com/practice-sem-2/chat-client/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoSelection = errors.New("no roster entry is selected")
	ErrUnknownUser = errors.New("user is not in the roster")
	ErrNotAllowed  = errors.New("action is not offered for the selected user")
)

var moderationDefaults = map[models.ModerationAction]struct{ ok, failed string }{
	models.ActionBan:     {"User banned.", "Could not ban the user."},
	models.ActionUnban:   {"User unbanned.", "Could not unban the user."},
	models.ActionPromote: {"User promoted to moderator.", "Could not promote the user."},
	models.ActionDemote:  {"User demoted.", "Could not demote the user."},
}

// ModerationController drives the roster panel. The roster is replaced
// wholesale on every fetch and a selection only keeps the user identifier.
type ModerationController struct {
	room     *Room
	roster   RosterStore
	resolver *PermissionResolver
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *logrus.Entry

	mu       sync.Mutex
	entries  []models.RosterEntry
	selected int64
	menu     *models.ActionMenu
}

func NewModerationController(room *Room, roster RosterStore, resolver *PermissionResolver, validate *validator.Validate, m *metrics.Metrics, logger *logrus.Logger) *ModerationController {
	return &ModerationController{
		room:     room,
		roster:   roster,
		resolver: resolver,
		validate: validate,
		metrics:  m,
		logger: logger.WithFields(logrus.Fields{
			"component": "moderation",
			"salon":     room.Scope().Salon,
		}),
	}
}

// LoadRoster fetches the roster, recomputes the viewer's capabilities from it
// and refreshes the open action menu, if any.
func (c *ModerationController) LoadRoster(ctx context.Context) ([]models.RosterEntry, error) {
	if err := c.room.checkActive(); err != nil {
		return nil, err
	}
	entries, err := c.roster.List(ctx, c.room.Scope().Salon)
	if err != nil {
		c.logger.WithError(err).Warn("roster fetch failed")
		return nil, err
	}

	caps := CapabilitiesFor(c.room.Viewer(), entries)
	c.room.SetCapabilities(caps)

	c.mu.Lock()
	c.entries = entries
	var menu *models.ActionMenu
	if c.menu != nil {
		if target, ok := findEntry(entries, c.selected); ok {
			m := ActionMenuFor(target, caps)
			menu = &m
		}
		c.menu = menu
		if menu == nil {
			c.selected = 0
		}
	}
	c.mu.Unlock()

	if c.room.IsClosed() {
		return entries, nil
	}
	c.room.presenter.RenderRoster(entries)
	c.room.render()
	if menu != nil && ModerationPanelVisible(caps) {
		c.room.presenter.RenderActions(*menu)
	}
	return entries, nil
}

// Entries returns the last fetched roster.
func (c *ModerationController) Entries() []models.RosterEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.RosterEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Select captures a user and builds its action menu. The viewer's own
// capabilities are resolved again here since their role may have changed.
// The menu is only rendered for viewers who can moderate.
func (c *ModerationController) Select(ctx context.Context, userID int64) (models.ActionMenu, error) {
	c.mu.Lock()
	target, ok := findEntry(c.entries, userID)
	c.mu.Unlock()
	if !ok {
		return models.ActionMenu{}, ErrUnknownUser
	}

	caps := c.resolver.Resolve(ctx, c.room.Scope())
	c.room.SetCapabilities(caps)
	menu := ActionMenuFor(target, caps)

	c.mu.Lock()
	c.selected = userID
	c.menu = &menu
	c.mu.Unlock()

	if !c.room.IsClosed() && ModerationPanelVisible(caps) {
		c.room.presenter.RenderActions(menu)
	}
	return menu, nil
}

func (c *ModerationController) Menu() (models.ActionMenu, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.menu == nil {
		return models.ActionMenu{}, false
	}
	return *c.menu, true
}

func (c *ModerationController) Ban(ctx context.Context, reason string) (string, error) {
	return c.act(ctx, models.ActionBan, func(r *models.ModerationRequest) { r.Reason = reason })
}

func (c *ModerationController) Unban(ctx context.Context) (string, error) {
	return c.act(ctx, models.ActionUnban, nil)
}

func (c *ModerationController) Promote(ctx context.Context) (string, error) {
	return c.act(ctx, models.ActionPromote, func(r *models.ModerationRequest) { r.Role = "moderator" })
}

func (c *ModerationController) Demote(ctx context.Context) (string, error) {
	return c.act(ctx, models.ActionDemote, nil)
}

func (c *ModerationController) act(ctx context.Context, action models.ModerationAction, fill func(*models.ModerationRequest)) (string, error) {
	if err := c.room.checkActive(); err != nil {
		return "", err
	}

	c.mu.Lock()
	menu := c.menu
	c.mu.Unlock()
	if menu == nil {
		return "", ErrNoSelection
	}
	if !offered(*menu, action) {
		c.metrics.Moderation.WithLabelValues(string(action), metrics.OutcomeRejected).Inc()
		return "", fmt.Errorf("%w: %s %s", ErrNotAllowed, action, menu.Username)
	}

	req := models.ModerationRequest{UserID: menu.UserID}
	if fill != nil {
		fill(&req)
	}
	if err := c.validate.Struct(req); err != nil {
		c.metrics.Moderation.WithLabelValues(string(action), metrics.OutcomeRejected).Inc()
		return "", err
	}

	log := c.logger.WithFields(logrus.Fields{"action": action, "user_id": req.UserID})
	texts := moderationDefaults[action]

	msg, err := c.roster.Moderate(ctx, c.room.Scope().Salon, action, req)
	if err != nil {
		c.metrics.Moderation.WithLabelValues(string(action), metrics.OutcomeError).Inc()
		log.WithError(err).Warn("moderation action failed")
		c.room.notify(danger(failureText(err, texts.failed)))
		return "", err
	}

	c.metrics.Moderation.WithLabelValues(string(action), metrics.OutcomeOK).Inc()
	log.Info("moderation action applied")
	if msg == "" {
		msg = texts.ok
	}
	c.room.notify(success(msg))

	if _, err = c.LoadRoster(ctx); err != nil {
		log.WithError(err).Debug("roster refresh after moderation failed")
	}
	return msg, nil
}

func offered(menu models.ActionMenu, action models.ModerationAction) bool {
	switch action {
	case models.ActionBan:
		return menu.Ban
	case models.ActionUnban:
		return menu.Unban
	case models.ActionPromote:
		return menu.Promote
	case models.ActionDemote:
		return menu.Demote
	}
	return false
}

func findEntry(entries []models.RosterEntry, userID int64) (models.RosterEntry, bool) {
	for _, e := range entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return models.RosterEntry{}, false
}
