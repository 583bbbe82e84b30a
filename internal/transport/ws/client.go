package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fibtrivia/internal/app"
	"fibtrivia/internal/domain"
	"fibtrivia/internal/reveal"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256

	// Time allowed to load the questions of a new room
	createTimeout = 5 * time.Second
)

// Dispatcher is the part of the room registry a connection talks to
type Dispatcher interface {
	CreateRoom(ctx context.Context, conn app.ClientConnection) (*app.GameSession, error)
	JoinRoom(conn app.ClientConnection, roomCode, name string) (*domain.Player, error)
	RejoinRoom(conn app.ClientConnection, roomCode, playerID string) (*domain.Player, error)
	StartGame(connID, roomCode string) error
	SubmitAnswer(connID, roomCode, answer string) error
	SubmitVote(connID, roomCode, target string) error
	NextQuestion(connID, roomCode string) error
	ShowLeaderboard(connID, roomCode string) error
	Disconnect(connID string)
}

// Client represents a WebSocket client connection
type Client struct {
	id      string
	conn    *websocket.Conn
	hub     Dispatcher
	send    chan []byte
	done    chan struct{}
	logger  *slog.Logger
	tracker reveal.Tracker
	mu      sync.Mutex
	closed  bool
}

// NewClient creates a new WebSocket client with a fresh connection id
func NewClient(conn *websocket.Conn, hub Dispatcher, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With("connID", id),
	}
}

// ID implements app.ClientConnection interface
func (c *Client) ID() string {
	return c.id
}

// Send implements app.ClientConnection interface. Reveal steps of a
// sequence older than the last one started are dropped.
func (c *Client) Send(event *domain.GameEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	if !c.tracker.Accept(event.Payload) {
		c.logger.Debug("dropping stale reveal step", "type", event.Type)
		return nil
	}

	data, err := json.Marshal(NewServerMessage(event))
	if err != nil {
		return err
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped", "type", event.Type)
		return nil
	}
}

// Close implements app.ClientConnection interface
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c.id)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
// Every message is its own frame so clients can parse one JSON value per frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	switch msg.Type {
	case MsgCreateRoom:
		c.handleCreateRoom()
	case MsgJoinRoom:
		var p JoinRoomPayload
		if c.decode(msg.Payload, &p) {
			_, err := c.hub.JoinRoom(c, p.RoomCode, p.PlayerName)
			c.reply(msg.Type, err)
		}
	case MsgRejoinRoom:
		var p RejoinRoomPayload
		if c.decode(msg.Payload, &p) {
			_, err := c.hub.RejoinRoom(c, p.RoomCode, p.PlayerID)
			c.reply(msg.Type, err)
		}
	case MsgStartGame:
		var p RoomPayload
		if c.decode(msg.Payload, &p) {
			c.reply(msg.Type, c.hub.StartGame(c.id, p.RoomCode))
		}
	case MsgSubmitAnswer:
		var p SubmitAnswerPayload
		if c.decode(msg.Payload, &p) {
			c.reply(msg.Type, c.hub.SubmitAnswer(c.id, p.RoomCode, p.Answer))
		}
	case MsgSubmitVote:
		var p SubmitVotePayload
		if c.decode(msg.Payload, &p) {
			c.reply(msg.Type, c.hub.SubmitVote(c.id, p.RoomCode, p.VotedForID))
		}
	case MsgNextQuestion:
		var p RoomPayload
		if c.decode(msg.Payload, &p) {
			c.reply(msg.Type, c.hub.NextQuestion(c.id, p.RoomCode))
		}
	case MsgShowLeaderboard:
		var p RoomPayload
		if c.decode(msg.Payload, &p) {
			c.reply(msg.Type, c.hub.ShowLeaderboard(c.id, p.RoomCode))
		}
	case MsgPing:
		c.Send(domain.NewEvent("", pongPayload{}))
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

// handleCreateRoom handles a createRoom message
func (c *Client) handleCreateRoom() {
	ctx, cancel := context.WithTimeout(context.Background(), createTimeout)
	defer cancel()

	_, err := c.hub.CreateRoom(ctx, c)
	c.reply(MsgCreateRoom, err)
}

// decode unmarshals an action payload, answering INVALID_MESSAGE on failure
func (c *Client) decode(raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return false
	}
	return true
}

// reply reports a failed action back to this connection only
func (c *Client) reply(action MessageType, err error) {
	if err == nil {
		return
	}

	code, message := ErrorCode(err)
	if code == ErrCodeInternalError {
		c.logger.Error("action failed", "action", action, "error", err)
	} else {
		c.logger.Debug("action rejected", "action", action, "code", code)
	}
	c.sendError(code, message)
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	c.Send(domain.NewEvent("", domain.ErrorPayload{
		Code:    code,
		Message: message,
	}))
}
