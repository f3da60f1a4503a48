package storage

import (
	"fmt"
	"net/url"

	"github.com/practice-sem-2/chat-client/internal/models"
)

func scopePrefix(scope models.Scope) string {
	if scope.IsChannel() {
		return fmt.Sprintf("api/salon/%s/%s/", url.PathEscape(scope.Salon), url.PathEscape(scope.Channel))
	}
	return fmt.Sprintf("api/salon/%s/", url.PathEscape(scope.Salon))
}

func MessagesPath(scope models.Scope) string {
	return scopePrefix(scope) + "messages/"
}

func SendPath(scope models.Scope) string {
	return scopePrefix(scope) + "messages/send/"
}

func EditPath(messageID int64) string {
	return fmt.Sprintf("api/messages/%d/edit/", messageID)
}

func DeletePath(messageID int64) string {
	return fmt.Sprintf("api/messages/%d/delete/", messageID)
}

// RosterPath is keyed by salon even for channel scopes: roles live on the salon.
func RosterPath(salon string) string {
	return fmt.Sprintf("api/salon/%s/users/", url.PathEscape(salon))
}

func ModerationPath(salon string, action models.ModerationAction) string {
	return fmt.Sprintf("api/salon/%s/%s/", url.PathEscape(salon), action)
}
