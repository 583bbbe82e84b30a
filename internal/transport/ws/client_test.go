package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fibtrivia/internal/app"
	"fibtrivia/internal/domain"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) CreateRoom(ctx context.Context, conn app.ClientConnection) (*app.GameSession, error) {
	args := m.Called(ctx, conn)
	session, _ := args.Get(0).(*app.GameSession)
	return session, args.Error(1)
}

func (m *mockDispatcher) JoinRoom(conn app.ClientConnection, roomCode, name string) (*domain.Player, error) {
	args := m.Called(conn, roomCode, name)
	player, _ := args.Get(0).(*domain.Player)
	return player, args.Error(1)
}

func (m *mockDispatcher) RejoinRoom(conn app.ClientConnection, roomCode, playerID string) (*domain.Player, error) {
	args := m.Called(conn, roomCode, playerID)
	player, _ := args.Get(0).(*domain.Player)
	return player, args.Error(1)
}

func (m *mockDispatcher) StartGame(connID, roomCode string) error {
	return m.Called(connID, roomCode).Error(0)
}

func (m *mockDispatcher) SubmitAnswer(connID, roomCode, answer string) error {
	return m.Called(connID, roomCode, answer).Error(0)
}

func (m *mockDispatcher) SubmitVote(connID, roomCode, target string) error {
	return m.Called(connID, roomCode, target).Error(0)
}

func (m *mockDispatcher) NextQuestion(connID, roomCode string) error {
	return m.Called(connID, roomCode).Error(0)
}

func (m *mockDispatcher) ShowLeaderboard(connID, roomCode string) error {
	return m.Called(connID, roomCode).Error(0)
}

func (m *mockDispatcher) Disconnect(connID string) {
	m.Called(connID)
}

type wireMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp string          `json:"timestamp"`
}

func newTestClient(hub Dispatcher) *Client {
	return NewClient(nil, hub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// drain returns everything queued for the peer so far
func drain(t *testing.T, c *Client) []wireMessage {
	t.Helper()

	var out []wireMessage
	for {
		select {
		case data := <-c.send:
			var msg wireMessage
			require.NoError(t, json.Unmarshal(data, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func errorOf(t *testing.T, msg wireMessage) domain.ErrorPayload {
	t.Helper()
	require.Equal(t, string(domain.EventError), msg.Type)

	var p domain.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p
}

func TestErrorCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code string
	}{
		{domain.ErrNameTaken, ErrCodeNameTaken},
		{domain.ErrInvalidAnswer, ErrCodeInvalidAnswer},
		{domain.ErrLeaderboardNotReady, ErrCodeLeaderboardNotReady},
		{fmt.Errorf("vote: %w", domain.ErrSelfVote), ErrCodeSelfVote},
		{errors.New("disk on fire"), ErrCodeInternalError},
	}
	for _, tt := range tests {
		code, message := ErrorCode(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.NotEmpty(t, message)
	}

	for _, e := range errorCodes {
		code, _ := ErrorCode(e.err)
		assert.Equal(t, e.code, code, "every domain error has its own code")
	}
}

func TestClient_RoutesActions(t *testing.T) {
	t.Parallel()

	hub := &mockDispatcher{}
	c := newTestClient(hub)

	hub.On("StartGame", c.ID(), "ABCD").Return(nil).Once()
	hub.On("SubmitAnswer", c.ID(), "ABCD", "a lie").Return(nil).Once()
	hub.On("SubmitVote", c.ID(), "ABCD", "p1,p2").Return(nil).Once()
	hub.On("NextQuestion", c.ID(), "ABCD").Return(nil).Once()
	hub.On("ShowLeaderboard", c.ID(), "ABCD").Return(nil).Once()
	hub.On("RejoinRoom", c, "ABCD", "p1").Return(&domain.Player{ID: "p1"}, nil).Once()

	c.handleMessage([]byte(`{"type":"startGame","payload":{"roomCode":"ABCD"}}`))
	c.handleMessage([]byte(`{"type":"submitAnswer","payload":{"roomCode":"ABCD","answer":"a lie"}}`))
	c.handleMessage([]byte(`{"type":"submitVote","payload":{"roomCode":"ABCD","votedForId":"p1,p2"}}`))
	c.handleMessage([]byte(`{"type":"nextQuestion","payload":{"roomCode":"ABCD"}}`))
	c.handleMessage([]byte(`{"type":"showLeaderboard","payload":{"roomCode":"ABCD"}}`))
	c.handleMessage([]byte(`{"type":"rejoinRoom","payload":{"roomCode":"ABCD","playerId":"p1"}}`))

	hub.AssertExpectations(t)
	assert.Empty(t, drain(t, c), "successful actions are answered by room events, not replies")
}

func TestClient_CreateRoomHasDeadline(t *testing.T) {
	t.Parallel()

	hub := &mockDispatcher{}
	c := newTestClient(hub)

	hub.On("CreateRoom", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), c).Return(nil, domain.ErrNoQuestions).Once()

	c.handleMessage([]byte(`{"type":"createRoom"}`))

	hub.AssertExpectations(t)
	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, ErrCodeNoQuestions, errorOf(t, msgs[0]).Code)
}

func TestClient_RejectedActionRepliesWithCode(t *testing.T) {
	t.Parallel()

	hub := &mockDispatcher{}
	c := newTestClient(hub)
	hub.On("JoinRoom", c, "ABCD", "Alice").Return(nil, domain.ErrNameTaken).Once()

	c.handleMessage([]byte(`{"type":"joinRoom","payload":{"roomCode":"ABCD","playerName":"Alice"}}`))

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	p := errorOf(t, msgs[0])
	assert.Equal(t, ErrCodeNameTaken, p.Code)
	assert.Equal(t, "That name is already taken", p.Message)
	assert.NotEmpty(t, msgs[0].Timestamp)
}

func TestClient_InvalidMessages(t *testing.T) {
	t.Parallel()

	hub := &mockDispatcher{}
	c := newTestClient(hub)

	for _, raw := range []string{
		`not json`,
		`{"type":"launchRockets"}`,
		`{"type":"submitAnswer","payload":"oops"}`,
	} {
		c.handleMessage([]byte(raw))

		msgs := drain(t, c)
		require.Len(t, msgs, 1, raw)
		assert.Equal(t, ErrCodeInvalidMessage, errorOf(t, msgs[0]).Code, raw)
	}

	hub.AssertNotCalled(t, "SubmitAnswer", mock.Anything, mock.Anything, mock.Anything)
}

func TestClient_Ping(t *testing.T) {
	t.Parallel()

	c := newTestClient(&mockDispatcher{})
	c.handleMessage([]byte(`{"type":"ping"}`))

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, string(MsgPong), msgs[0].Type)
}

func TestClient_DropsStaleRevealSteps(t *testing.T) {
	t.Parallel()

	c := newTestClient(&mockDispatcher{})

	require.NoError(t, c.Send(domain.NewEvent("ABCD", domain.StartSequencePayload{SequenceTag: domain.Tag(1)})))
	require.NoError(t, c.Send(domain.NewEvent("ABCD", domain.StartSequencePayload{SequenceTag: domain.Tag(2)})))
	require.NoError(t, c.Send(domain.NewEvent("ABCD", domain.HighlightAnswerPayload{SequenceTag: domain.Tag(1), AnswerID: "p1"})))
	require.NoError(t, c.Send(domain.NewEvent("ABCD", domain.HighlightAnswerPayload{SequenceTag: domain.Tag(2), AnswerID: "p2"})))

	msgs := drain(t, c)
	require.Len(t, msgs, 3)
	assert.Equal(t, string(domain.EventHighlightAnswer), msgs[2].Type)

	var p domain.HighlightAnswerPayload
	require.NoError(t, json.Unmarshal(msgs[2].Payload, &p))
	assert.Equal(t, "p2", p.AnswerID)
	assert.Equal(t, int64(2), p.SequenceID)
}

func TestClient_CloseStopsDelivery(t *testing.T) {
	t.Parallel()

	c := newTestClient(&mockDispatcher{})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	require.NoError(t, c.Send(domain.NewEvent("ABCD", domain.TimerUpdatePayload{TimeRemaining: 3})))
	assert.Empty(t, drain(t, c))
}

func TestNewServerMessage(t *testing.T) {
	t.Parallel()

	event := domain.NewDirectEvent("ABCD", "conn-1", domain.TimerUpdatePayload{TimeRemaining: 7})
	data, err := json.Marshal(NewServerMessage(event))
	require.NoError(t, err)

	assert.JSONEq(t, fmt.Sprintf(
		`{"type":"timerUpdate","payload":{"timeRemaining":7},"timestamp":%q}`,
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	), string(data))
}
