package usecases

import (
	"time"

	"github.com/practice-sem-2/chat-client/internal/metrics"
	"github.com/practice-sem-2/chat-client/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testInterval = 20 * time.Millisecond

// EngineTestSuite wires a conversation for the viewer "bob" against
// in-memory stores and a presenter that records every call.
type EngineTestSuite struct {
	suite.Suite
	messages  *fakeMessages
	roster    *fakeRoster
	presenter *recordingPresenter
	metrics   *metrics.Metrics
	conv      *Conversation
}

func (s *EngineTestSuite) SetupTest() {
	s.messages = &fakeMessages{}
	s.roster = &fakeRoster{}
	s.presenter = newRecordingPresenter()
	s.metrics = metrics.New(prometheus.NewRegistry())

	conv, err := NewConversation(ConversationConfig{
		Scope:       models.Scope{Salon: "general"},
		Viewer:      "bob",
		Sync:        SyncConfig{Interval: testInterval},
		ResyncDelay: time.Hour,
	}, s.messages, s.roster, s.presenter, NewValidator(), s.metrics, discardLogger())
	require.NoError(s.T(), err, "conversation should be wired")
	s.conv = conv
}

func (s *EngineTestSuite) TearDownTest() {
	s.conv.Room.Close()
}

func (s *EngineTestSuite) seed(messages ...models.Message) {
	s.conv.Room.View().ReplaceAll(messages)
}

func (s *EngineTestSuite) lastNotice() models.Notice {
	notices := s.presenter.noticeList()
	require.NotEmpty(s.T(), notices, "a notice should be shown")
	return notices[len(notices)-1]
}
