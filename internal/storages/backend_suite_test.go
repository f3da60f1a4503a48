package storage

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// BackendTestSuite runs the client against an in-process backend whose routes
// are registered per test.
type BackendTestSuite struct {
	suite.Suite
	router   *mux.Router
	server   *httptest.Server
	registry *DefaultRegistry
}

func (s *BackendTestSuite) SetupTest() {
	s.router = mux.NewRouter()
	s.server = httptest.NewServer(s.router)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewClient(ClientConfig{
		BaseURL:       s.server.URL,
		SessionCookie: "session-1",
		CSRFToken:     "csrf-1",
	}, logger)
	require.NoError(s.T(), err, "client should be created")
	s.registry = NewRegistry(client)
}

func (s *BackendTestSuite) TearDownTest() {
	s.server.Close()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
