package console

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/gorilla/mux"
	"github.com/practice-sem-2/chat-client/internal/metrics"
	"github.com/practice-sem-2/chat-client/internal/models"
	storage "github.com/practice-sem-2/chat-client/internal/storages"
	usecase "github.com/practice-sem-2/chat-client/internal/usecases"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ansi.Strip(b.buf.String())
}

// SessionTestSuite drives a console session against an in-process backend
// speaking the chat HTTP API.
type SessionTestSuite struct {
	suite.Suite
	router *mux.Router
	server *httptest.Server
	out    *syncBuffer

	mu       sync.Mutex
	requests map[string][]map[string]interface{}
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, &SessionTestSuite{})
}

func (s *SessionTestSuite) SetupTest() {
	s.router = mux.NewRouter()
	s.server = httptest.NewServer(s.router)
	s.out = &syncBuffer{}
	s.requests = make(map[string][]map[string]interface{})

	s.router.HandleFunc("/api/salon/general/messages/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": []map[string]interface{}{
			{"id": 1, "auteur": "alice", "contenu": "hi", "date_envoi": "2024-01-01T00:00:00Z"},
		}})
	}).Methods(http.MethodGet)
	s.router.HandleFunc("/api/salon/general/users/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"users": []map[string]interface{}{
			{"id": 1, "username": "alice", "is_admin": false, "is_moderator": false, "is_banned": false},
			{"id": 2, "username": "bob", "is_admin": true, "is_moderator": true, "is_banned": false},
			{"id": 4, "username": "erin", "is_admin": false, "is_moderator": false, "is_banned": false},
		}})
	}).Methods(http.MethodGet)
}

func (s *SessionTestSuite) TearDownTest() {
	s.server.Close()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// record stores the JSON body of a request under name and answers with reply.
func (s *SessionTestSuite) record(path, name string, status int, reply interface{}) {
	s.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(s.T(), "csrf-1", r.Header.Get(storage.CSRFHeader), "mutations carry the csrf token")
		body := map[string]interface{}{}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			_ = json.NewDecoder(r.Body).Decode(&body)
		} else if err := r.ParseMultipartForm(1 << 20); err == nil {
			body["contenu"] = r.FormValue("contenu")
			if _, header, err := r.FormFile("fichier"); err == nil {
				body["fichier"] = header.Filename
			}
		}
		s.mu.Lock()
		s.requests[name] = append(s.requests[name], body)
		s.mu.Unlock()
		writeJSON(w, status, reply)
	}).Methods(http.MethodPost)
}

func (s *SessionTestSuite) recorded(name string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[name]
}

func (s *SessionTestSuite) session(input string) (*Session, *usecase.Conversation) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := storage.NewClient(storage.ClientConfig{
		BaseURL:       s.server.URL,
		SessionCookie: "session-1",
		CSRFToken:     "csrf-1",
	}, logger)
	require.NoError(s.T(), err)
	registry := storage.NewRegistry(client)

	validate := usecase.NewValidator()
	c := New(strings.NewReader(input), s.out, "bob", "general")
	conv, err := usecase.NewConversation(usecase.ConversationConfig{
		Scope:       models.Scope{Salon: "general"},
		Viewer:      "bob",
		Sync:        usecase.SyncConfig{Interval: time.Hour},
		ResyncDelay: time.Hour,
	}, registry.GetMessagesStore(), registry.GetRosterStore(), c, validate,
		metrics.New(prometheus.NewRegistry()), logger)
	require.NoError(s.T(), err)
	s.T().Cleanup(conv.Room.Close)

	_, err = conv.Sync.Sync(context.Background())
	require.NoError(s.T(), err)
	return NewSession(conv, c, validate, logger), conv
}

func (s *SessionTestSuite) Test_SendThenEdit() {
	s.record("/api/salon/general/messages/send/", "send", http.StatusCreated,
		map[string]interface{}{"id": 2, "auteur": "bob", "contenu": "hello", "date_envoi": "2024-01-01T00:00:01Z"})
	s.record("/api/messages/2/edit/", "edit", http.StatusOK, map[string]interface{}{})
	sess, conv := s.session("")
	ctx := context.Background()

	assert.False(s.T(), sess.Handle(ctx, "hello"))
	require.Len(s.T(), s.recorded("send"), 1)
	assert.Equal(s.T(), "hello", s.recorded("send")[0]["contenu"])
	assert.Equal(s.T(), 2, conv.Room.View().Len())
	assert.Contains(s.T(), s.out.String(), "bob: hello (/edit 2, /delete 2)")

	sess.Handle(ctx, "/edit 2")
	require.NotNil(s.T(), sess.Editing())
	assert.Contains(s.T(), s.out.String(), "editing #2: hello")

	sess.Handle(ctx, "hello again")
	assert.Nil(s.T(), sess.Editing())
	require.Len(s.T(), s.recorded("edit"), 1)
	assert.Equal(s.T(), "hello again", s.recorded("edit")[0]["contenu"])
	assert.Contains(s.T(), s.out.String(), "Message edited.")

	msg, ok := conv.Room.View().Get(2)
	require.True(s.T(), ok)
	assert.Equal(s.T(), "hello again", msg.Body)
}

func (s *SessionTestSuite) Test_EditCancel() {
	s.record("/api/messages/1/edit/", "edit", http.StatusOK, map[string]interface{}{})
	sess, _ := s.session("")

	sess.Handle(context.Background(), "/edit 1")
	require.NotNil(s.T(), sess.Editing())
	sess.Handle(context.Background(), "/cancel")
	assert.Nil(s.T(), sess.Editing())
	assert.Empty(s.T(), s.recorded("edit"))

	sess.Handle(context.Background(), "/cancel")
	assert.Contains(s.T(), s.out.String(), "no edit in progress")
}

func (s *SessionTestSuite) Test_SendFile() {
	s.record("/api/salon/general/messages/send/", "send", http.StatusCreated,
		map[string]interface{}{"id": 3, "auteur": "bob", "contenu": "", "date_envoi": "x", "fichier_url": "/media/notes.txt", "fichier_nom": "notes.txt"})
	path := filepath.Join(s.T().TempDir(), "notes.txt")
	require.NoError(s.T(), os.WriteFile(path, []byte("notes"), 0o600))
	sess, _ := s.session("")

	sess.Handle(context.Background(), "/file "+path)
	require.Len(s.T(), s.recorded("send"), 1)
	assert.Equal(s.T(), "notes.txt", s.recorded("send")[0]["fichier"])
	assert.Contains(s.T(), s.out.String(), "[file: notes.txt </media/notes.txt>]")

	sess.Handle(context.Background(), "/file")
	assert.Contains(s.T(), s.out.String(), "/file <path> [text]")
}

func (s *SessionTestSuite) Test_SendFailureThenRetry() {
	failed := false
	s.router.HandleFunc("/api/salon/general/messages/send/", func(w http.ResponseWriter, r *http.Request) {
		if !failed {
			failed = true
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "slow down"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"id": 9, "auteur": "bob", "contenu": "again", "date_envoi": "x"})
	}).Methods(http.MethodPost)
	sess, conv := s.session("")

	sess.Handle(context.Background(), "again")
	assert.Contains(s.T(), s.out.String(), "[danger] slow down")
	assert.Equal(s.T(), 1, conv.Room.View().Len())

	sess.Handle(context.Background(), "/retry")
	assert.Equal(s.T(), 2, conv.Room.View().Len())

	sess.Handle(context.Background(), "/retry")
	assert.Contains(s.T(), s.out.String(), "nothing to send")
}

func (s *SessionTestSuite) Test_DeleteAsksFirst() {
	s.record("/api/messages/1/delete/", "delete", http.StatusForbidden, map[string]string{"error": "not authorized"})
	sess, conv := s.session("n\ny\n")

	sess.Handle(context.Background(), "/delete 1")
	assert.Empty(s.T(), s.recorded("delete"), "declined confirmation makes no call")

	sess.Handle(context.Background(), "/delete 1")
	assert.Len(s.T(), s.recorded("delete"), 1)
	assert.Equal(s.T(), 1, conv.Room.View().Len())
	assert.Contains(s.T(), s.out.String(), "[danger] not authorized")
}

func (s *SessionTestSuite) Test_Moderation() {
	s.record("/api/salon/general/ban/", "ban", http.StatusOK, map[string]string{"message": "erin has been banned."})
	sess, _ := s.session("")
	ctx := context.Background()

	sess.Handle(ctx, "/ban")
	assert.Contains(s.T(), s.out.String(), "select a user first")

	sess.Handle(ctx, "/users")
	assert.Contains(s.T(), s.out.String(), "2 bob [admin, moderator]")

	sess.Handle(ctx, "/select 4")
	assert.Contains(s.T(), s.out.String(), "erin: /ban [reason] /promote")

	sess.Handle(ctx, "/ban spamming links")
	bans := s.recorded("ban")
	require.Len(s.T(), bans, 1)
	assert.Equal(s.T(), float64(4), bans[0]["user_id"])
	assert.Equal(s.T(), "spamming links", bans[0]["reason"])
	assert.Contains(s.T(), s.out.String(), "[success] erin has been banned.")

	sess.Handle(ctx, "/select 99")
	assert.Contains(s.T(), s.out.String(), "no such user")
}

func (s *SessionTestSuite) Test_Run() {
	sess, _ := s.session("/help\n/nope\n/quit\nnever sent\n")

	require.NoError(s.T(), sess.Run(context.Background()))
	out := s.out.String()
	assert.Contains(s.T(), out, "commands:")
	assert.Contains(s.T(), out, "unknown command /nope")
}

func (s *SessionTestSuite) Test_Run_Cancelled() {
	sess, _ := s.session("")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sess.Run(ctx)
	assert.True(s.T(), err == nil || err == context.Canceled)
}

func (s *SessionTestSuite) Test_EditSwitchAbortsPrevious() {
	s.record("/api/salon/general/messages/send/", "send", http.StatusCreated,
		map[string]interface{}{"id": 2, "auteur": "bob", "contenu": "hello", "date_envoi": "x"})
	s.record("/api/messages/1/edit/", "edit", http.StatusOK, map[string]interface{}{})
	sess, conv := s.session("")
	ctx := context.Background()

	sess.Handle(ctx, "hello")
	sess.Handle(ctx, "/edit 2")
	first := sess.Editing()
	require.NotNil(s.T(), first)

	sess.Handle(ctx, "/edit 1")
	require.NotNil(s.T(), sess.Editing())
	assert.Equal(s.T(), int64(1), sess.Editing().MessageID)
	assert.Equal(s.T(), models.EditAborted, first.Outcome(), "the previous edit is abandoned")
	_, open := conv.Messages.Session(2)
	assert.False(s.T(), open)
	assert.Contains(s.T(), s.out.String(), "#2 hello")

	sess.Handle(ctx, "/edit 1")
	assert.Equal(s.T(), int64(1), sess.Editing().MessageID, "reopening the same message keeps the session")

	sess.Handle(ctx, "/cancel")
	assert.Nil(s.T(), sess.Editing())
	assert.Empty(s.T(), s.recorded("edit"))
}
