package usecases

import (
	"context"

	"github.com/practice-sem-2/chat-client/internal/models"
	"github.com/sirupsen/logrus"
)

// PermissionResolver derives the viewer's capabilities from the salon roster.
// Any failure yields the default set: own-message actions stay available
// (fail-open) while moderation stays off (fail-closed).
type PermissionResolver struct {
	roster RosterStore
	viewer string
	logger *logrus.Entry
}

func NewPermissionResolver(roster RosterStore, viewer string, logger *logrus.Logger) *PermissionResolver {
	return &PermissionResolver{
		roster: roster,
		viewer: viewer,
		logger: logger.WithField("component", "permissions"),
	}
}

func (r *PermissionResolver) Resolve(ctx context.Context, scope models.Scope) models.Capabilities {
	caps, _, _ := r.ResolveWithRoster(ctx, scope)
	return caps
}

// ResolveWithRoster also returns the roster it resolved from. The error is
// informational only, the capabilities are always usable.
func (r *PermissionResolver) ResolveWithRoster(ctx context.Context, scope models.Scope) (models.Capabilities, []models.RosterEntry, error) {
	entries, err := r.roster.List(ctx, scope.Salon)
	if err != nil {
		r.logger.WithError(err).Debug("roster lookup failed, using default capabilities")
		return models.DefaultCapabilities(), nil, err
	}
	return CapabilitiesFor(r.viewer, entries), entries, nil
}

func CapabilitiesFor(viewer string, roster []models.RosterEntry) models.Capabilities {
	for _, entry := range roster {
		if viewer == "" || entry.Username != viewer {
			continue
		}
		return models.Capabilities{
			CanEditOwn:   true,
			CanDeleteOwn: true,
			CanModerate:  entry.IsModerator || entry.IsAdmin,
			IsAdmin:      entry.IsAdmin,
			IsModerator:  entry.IsModerator,
			IsBanned:     entry.IsBanned,
		}
	}
	return models.DefaultCapabilities()
}
