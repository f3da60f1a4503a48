package usecases

import (
	"errors"

	"github.com/practice-sem-2/chat-client/internal/models"
	storage "github.com/practice-sem-2/chat-client/internal/storages"
)

const (
	textGone         = "This conversation has been deleted."
	textLoginToSend  = "You must be logged in to send messages."
	textEdited       = "Message edited."
	textDeleted      = "Message deleted."
	textEditFailed   = "Could not edit the message."
	textDeleteFailed = "Could not delete the message."
	textDeletePrompt = "Delete this message?"
)

var failureMapper = []struct {
	from error
	text string
}{
	{storage.ErrUnavailable, "Network error, please retry."},
	{storage.ErrAuthRequired, "You must be logged in."},
	{storage.ErrMalformedResponse, "Unexpected response from the server."},
}

// failureText prefers the server's own message, then a per-kind text, then fallback.
func failureText(err error, fallback string) string {
	var apiErr *storage.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	for _, mapping := range failureMapper {
		if errors.Is(err, mapping.from) {
			return mapping.text
		}
	}
	return fallback
}

func danger(text string) models.Notice {
	return models.Notice{Level: models.NoticeDanger, Text: text}
}

func success(text string) models.Notice {
	return models.Notice{Level: models.NoticeSuccess, Text: text}
}

func warning(text string) models.Notice {
	return models.Notice{Level: models.NoticeWarning, Text: text}
}
