package storage

import (
	"context"
	"fmt"

	"github.com/practice-sem-2/chat-client/internal/models"
)

type RosterStorage struct {
	client *Client
}

func NewRosterStorage(c *Client) *RosterStorage {
	return &RosterStorage{
		client: c,
	}
}

func (s *RosterStorage) List(ctx context.Context, salon string) ([]models.RosterEntry, error) {
	resp, err := s.client.get(ctx, RosterPath(salon))
	if err != nil {
		return nil, err
	}
	if err = checkResponse(resp); err != nil {
		return nil, err
	}

	var body struct {
		Users *[]models.RosterEntry `json:"users"`
	}
	if err = decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	if body.Users == nil {
		return nil, fmt.Errorf("%w: users list is missing", ErrMalformedResponse)
	}
	return *body.Users, nil
}

// Moderate runs one role-management action and returns the server's success message.
func (s *RosterStorage) Moderate(ctx context.Context, salon string, action models.ModerationAction, req models.ModerationRequest) (string, error) {
	resp, err := s.client.postJSON(ctx, ModerationPath(salon, action), req)
	if err != nil {
		return "", err
	}
	if err = checkResponse(resp); err != nil {
		return "", err
	}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err = decodeJSON(resp, &body); err != nil {
		return "", err
	}
	if body.Error != "" {
		return "", &APIError{Status: resp.StatusCode, Message: body.Error}
	}
	return body.Message, nil
}
