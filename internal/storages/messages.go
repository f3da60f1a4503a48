package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/practice-sem-2/chat-client/internal/models"
)

var ErrEmptyPayload = errors.New("message needs a text or a file")

type MessagesStorage struct {
	client *Client
}

func NewMessagesStorage(c *Client) *MessagesStorage {
	return &MessagesStorage{
		client: c,
	}
}

func (s *MessagesStorage) List(ctx context.Context, scope models.Scope) ([]models.Message, error) {
	resp, err := s.client.get(ctx, MessagesPath(scope))
	if err != nil {
		return nil, err
	}
	if err = checkResponse(resp); err != nil {
		return nil, err
	}

	var body struct {
		Messages *[]models.Message `json:"messages"`
	}
	if err = decodeJSON(resp, &body); err != nil {
		return nil, err
	}
	if body.Messages == nil {
		return nil, fmt.Errorf("%w: messages list is missing", ErrMalformedResponse)
	}
	return *body.Messages, nil
}

// Send posts text as JSON, or as a multipart form when a file is attached.
func (s *MessagesStorage) Send(ctx context.Context, scope models.Scope, text string, file *models.Upload) (*models.Message, error) {
	if text == "" && file == nil {
		return nil, ErrEmptyPayload
	}

	var (
		resp *http.Response
		err  error
	)
	if file == nil {
		resp, err = s.client.postJSON(ctx, SendPath(scope), map[string]string{"contenu": text})
	} else {
		var (
			body        io.Reader
			contentType string
		)
		body, contentType, err = multipartBody(text, file)
		if err != nil {
			return nil, err
		}
		resp, err = s.client.do(ctx, http.MethodPost, SendPath(scope), body, contentType)
	}
	if err != nil {
		return nil, err
	}
	if err = checkResponse(resp); err != nil {
		return nil, err
	}

	msg := models.Message{}
	if err = decodeJSON(resp, &msg); err != nil {
		return nil, err
	}
	if msg.ID == 0 {
		return nil, fmt.Errorf("%w: created message has no id", ErrMalformedResponse)
	}
	return &msg, nil
}

func (s *MessagesStorage) Edit(ctx context.Context, messageID int64, text string) error {
	resp, err := s.client.postJSON(ctx, EditPath(messageID), map[string]string{"contenu": text})
	if err != nil {
		return err
	}
	if err = checkResponse(resp); err != nil {
		return err
	}
	drain(resp)
	return nil
}

func (s *MessagesStorage) Delete(ctx context.Context, messageID int64) error {
	resp, err := s.client.postJSON(ctx, DeletePath(messageID), nil)
	if err != nil {
		return err
	}
	if err = checkResponse(resp); err != nil {
		return err
	}
	drain(resp)
	return nil
}

func multipartBody(text string, file *models.Upload) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if text != "" {
		if err := w.WriteField("contenu", text); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("fichier", file.Name)
	if err != nil {
		return nil, "", err
	}
	if file.Content != nil {
		if _, err = io.Copy(part, file.Content); err != nil {
			return nil, "", fmt.Errorf("can't read attachment %q: %w", file.Name, err)
		}
	}

	if err = w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
