package ws

import (
	"encoding/json"
	"errors"
	"time"

	"fibtrivia/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgCreateRoom      MessageType = "createRoom"
	MsgJoinRoom        MessageType = "joinRoom"
	MsgRejoinRoom      MessageType = "rejoinRoom"
	MsgStartGame       MessageType = "startGame"
	MsgSubmitAnswer    MessageType = "submitAnswer"
	MsgSubmitVote      MessageType = "submitVote"
	MsgNextQuestion    MessageType = "nextQuestion"
	MsgShowLeaderboard MessageType = "showLeaderboard"
	MsgPing            MessageType = "ping"
)

// MsgPong answers a ping
const MsgPong domain.EventType = "pong"

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      domain.EventType `json:"type"`
	Payload   domain.Payload   `json:"payload,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// NewServerMessage wraps a game event for the wire
func NewServerMessage(event *domain.GameEvent) *ServerMessage {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ServerMessage{
		Type:      event.Type,
		Payload:   event.Payload,
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
	}
}

// Client message payloads

// RoomPayload is the payload of actions that only name their room
type RoomPayload struct {
	RoomCode string `json:"roomCode"`
}

// JoinRoomPayload is the payload for joinRoom
type JoinRoomPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// RejoinRoomPayload is the payload for rejoinRoom
type RejoinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

// SubmitAnswerPayload is the payload for submitAnswer
type SubmitAnswerPayload struct {
	RoomCode string `json:"roomCode"`
	Answer   string `json:"answer"`
}

// SubmitVotePayload is the payload for submitVote
type SubmitVotePayload struct {
	RoomCode   string `json:"roomCode"`
	VotedForID string `json:"votedForId"`
}

type pongPayload struct{}

func (pongPayload) EventType() domain.EventType { return MsgPong }

// Error codes
const (
	ErrCodeInvalidMessage      = "INVALID_MESSAGE"
	ErrCodeRoomNotFound        = "ROOM_NOT_FOUND"
	ErrCodeRoomFull            = "ROOM_FULL"
	ErrCodeNameTaken           = "NAME_TAKEN"
	ErrCodeEmptyName           = "EMPTY_NAME"
	ErrCodeGameInProgress      = "GAME_IN_PROGRESS"
	ErrCodeNotHost             = "NOT_HOST"
	ErrCodeNotEnoughPlayers    = "NOT_ENOUGH_PLAYERS"
	ErrCodeWrongPhase          = "WRONG_PHASE"
	ErrCodeTimeExpired         = "TIME_EXPIRED"
	ErrCodeUnknownPlayer       = "UNKNOWN_PLAYER"
	ErrCodeEmptyAnswer         = "EMPTY_ANSWER"
	ErrCodeInvalidAnswer       = "INVALID_ANSWER"
	ErrCodeSelfVote            = "SELF_VOTE"
	ErrCodeAlreadyVoted        = "ALREADY_VOTED"
	ErrCodeTargetNotFound      = "TARGET_NOT_FOUND"
	ErrCodeNotInRoom           = "NOT_IN_ROOM"
	ErrCodeAlreadyInRoom       = "ALREADY_IN_ROOM"
	ErrCodeNoQuestions         = "NO_QUESTIONS"
	ErrCodeLeaderboardNotReady = "LEADERBOARD_NOT_READY"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

var errorCodes = []struct {
	err     error
	code    string
	message string
}{
	{domain.ErrRoomNotFound, ErrCodeRoomNotFound, "Room not found"},
	{domain.ErrRoomFull, ErrCodeRoomFull, "Room is full"},
	{domain.ErrNameTaken, ErrCodeNameTaken, "That name is already taken"},
	{domain.ErrEmptyName, ErrCodeEmptyName, "Name is required"},
	{domain.ErrGameInProgress, ErrCodeGameInProgress, "Game has already started"},
	{domain.ErrNotHost, ErrCodeNotHost, "Only the host can do that"},
	{domain.ErrNotEnoughPlayers, ErrCodeNotEnoughPlayers, "Not enough players to start"},
	{domain.ErrWrongPhase, ErrCodeWrongPhase, "Cannot do that right now"},
	{domain.ErrTimeExpired, ErrCodeTimeExpired, "Time is up"},
	{domain.ErrUnknownPlayer, ErrCodeUnknownPlayer, "Player not found"},
	{domain.ErrEmptyAnswer, ErrCodeEmptyAnswer, "Answer is required"},
	{domain.ErrInvalidAnswer, ErrCodeInvalidAnswer, "That's the real answer! Try to fool others with a fake answer."},
	{domain.ErrSelfVote, ErrCodeSelfVote, "You cannot vote for your own answer"},
	{domain.ErrAlreadyVoted, ErrCodeAlreadyVoted, "You have already voted"},
	{domain.ErrTargetNotFound, ErrCodeTargetNotFound, "That answer does not exist"},
	{domain.ErrNotInRoom, ErrCodeNotInRoom, "You are not in that room"},
	{domain.ErrAlreadyInRoom, ErrCodeAlreadyInRoom, "You are already in a room"},
	{domain.ErrNoQuestions, ErrCodeNoQuestions, "No questions available"},
	{domain.ErrLeaderboardNotReady, ErrCodeLeaderboardNotReady, "Results are still being revealed"},
}

// ErrorCode maps an action error onto its wire code and user-facing message
func ErrorCode(err error) (code, message string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.message
		}
	}
	return ErrCodeInternalError, "Internal server error"
}
