package console

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/practice-sem-2/chat-client/internal/models"
	usecase "github.com/practice-sem-2/chat-client/internal/usecases"
	"github.com/sirupsen/logrus"
)

var errUsage = errors.New("usage")

const helpText = `commands:
  <text>                 send a message
  /file <path> [text]    send a file, with optional text
  /retry                 send the last failed message again
  /edit <id>             edit a message, then type the new text (enter saves)
  /cancel                abort the current edit
  /delete <id>           delete a message
  /users                 list members
  /select <id>           pick a member for moderation
  /ban [reason] /unban /promote /demote
  /quit`

// Session turns input lines into engine calls for one conversation.
type Session struct {
	conv     *usecase.Conversation
	console  *Console
	validate *validator.Validate
	logger   *logrus.Entry

	draft   models.Draft
	editing *usecase.EditSession
}

func NewSession(conv *usecase.Conversation, c *Console, validate *validator.Validate, logger *logrus.Logger) *Session {
	return &Session{
		conv:     conv,
		console:  c,
		validate: validate,
		logger:   logger.WithField("component", "console"),
	}
}

// Run reads commands until input ends, /quit is entered or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	defer s.console.Close()
	lines := s.console.Lines()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if s.Handle(ctx, line) {
				return nil
			}
		}
	}
}

// Handle executes one input line and reports whether the session should end.
func (s *Session) Handle(ctx context.Context, line string) bool {
	quit, err := s.dispatch(ctx, line)
	if err != nil {
		s.logger.WithError(err).Debug("command failed")
		if text := s.explain(err); text != "" {
			s.console.Notify(models.Notice{Level: models.NoticeWarning, Text: text})
		}
	}
	return quit
}

func (s *Session) dispatch(ctx context.Context, line string) (bool, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		if s.editing != nil {
			return false, s.commitEdit(ctx, line)
		}
		s.draft.Text = line
		s.draft.File = nil
		_, err := s.conv.Messages.Send(ctx, &s.draft)
		return false, err
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		s.console.println(helpText)
		return false, nil
	case "/retry":
		if s.draft.IsEmpty() {
			return false, usecase.ErrEmptyMessage
		}
		_, err := s.conv.Messages.Send(ctx, &s.draft)
		return false, err
	case "/file":
		return false, s.sendFile(ctx, arg)
	case "/edit":
		return false, s.openEdit(arg)
	case "/cancel":
		if s.editing == nil {
			return false, usecase.ErrSessionClosed
		}
		_, err := s.conv.Messages.HandleKey(ctx, s.editing, models.KeyCancel)
		s.editing = nil
		return false, err
	case "/delete":
		id, err := parseID(arg)
		if err != nil {
			return false, err
		}
		_, err = s.conv.Messages.Delete(ctx, id)
		return false, err
	case "/users":
		_, err := s.conv.Moderation.LoadRoster(ctx)
		return false, err
	case "/select":
		id, err := parseID(arg)
		if err != nil {
			return false, err
		}
		_, err = s.conv.Moderation.Select(ctx, id)
		return false, err
	case "/ban":
		_, err := s.conv.Moderation.Ban(ctx, arg)
		return false, err
	case "/unban":
		_, err := s.conv.Moderation.Unban(ctx)
		return false, err
	case "/promote":
		_, err := s.conv.Moderation.Promote(ctx)
		return false, err
	case "/demote":
		_, err := s.conv.Moderation.Demote(ctx)
		return false, err
	}
	return false, fmt.Errorf("%w: unknown command %s, try /help", errUsage, cmd)
}

func (s *Session) openEdit(arg string) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	if s.editing != nil && s.editing.MessageID != id {
		// Only one edit is addressable from the prompt at a time.
		s.conv.Messages.AbortEdit(s.editing)
		s.editing = nil
	}
	session, err := s.conv.Messages.OpenEdit(id)
	if err != nil {
		return err
	}
	s.editing = session
	return nil
}

func (s *Session) commitEdit(ctx context.Context, line string) error {
	s.editing.SetDraft(line)
	state, err := s.conv.Messages.HandleKey(ctx, s.editing, models.KeyAccept)
	if state != models.EditOpen {
		s.editing = nil
	}
	return err
}

func (s *Session) sendFile(ctx context.Context, arg string) error {
	path, text, _ := strings.Cut(arg, " ")
	upload := &models.Upload{}
	if path != "" {
		upload.Name = filepath.Base(path)
	}
	if err := s.validate.Struct(upload); err != nil {
		return fmt.Errorf("%w: /file <path> [text]", errUsage)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	defer f.Close()

	upload.Content = f
	s.draft = models.Draft{Text: text, File: upload}
	_, err = s.conv.Messages.Send(ctx, &s.draft)
	if err != nil {
		// The reader is consumed, a retry has to reopen the file.
		s.draft.File = nil
	}
	return err
}

func (s *Session) explain(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return fmt.Sprintf("invalid %s", strings.ToLower(verrs[0].Field()))
	}
	return errorText(err)
}

// Editing returns the open edit session of this console, if any.
func (s *Session) Editing() *usecase.EditSession {
	return s.editing
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: expected a message or user id, got %q", errUsage, arg)
	}
	return id, nil
}
