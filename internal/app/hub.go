package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fibtrivia/internal/domain"
	"fibtrivia/internal/reveal"
)

const (
	// DefaultRoomCodeLength is the default length for room codes
	DefaultRoomCodeLength = 4

	// StaleGameTimeout is how long before an empty room is cleaned up
	StaleGameTimeout = 2 * time.Hour
)

// RoomCodeChars are characters used for room codes
const RoomCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// binding ties a connection to its room and, for players, to its player
type binding struct {
	roomCode string
	playerID string
}

// GameHub is the room registry. It indexes sessions by room code and
// connections by connection id, and routes inbound actions to the right
// session.
type GameHub struct {
	sessions     map[string]*GameSession
	conns        map[string]binding
	mu           sync.RWMutex
	settings     Settings
	bank         QuestionBank
	sequencer    *reveal.Sequencer
	orchestrator RevealRunner
	logger       *slog.Logger
	done         chan struct{}
	closeOnce    sync.Once
}

// NewGameHub creates a new game hub
func NewGameHub(settings Settings, bank QuestionBank, logger *slog.Logger) *GameHub {
	settings = settings.normalize()

	hub := &GameHub{
		sessions:     make(map[string]*GameSession),
		conns:        make(map[string]binding),
		settings:     settings,
		bank:         bank,
		sequencer:    reveal.NewSequencer(nil),
		orchestrator: reveal.NewOrchestrator(settings.Timings, logger),
		logger:       logger,
		done:         make(chan struct{}),
	}

	// Start cleanup goroutine
	go hub.cleanupLoop()

	return hub
}

// CreateRoom opens a new room hosted by conn
func (h *GameHub) CreateRoom(ctx context.Context, conn ClientConnection) (*GameSession, error) {
	if h.isBound(conn.ID()) {
		return nil, domain.ErrAlreadyInRoom
	}

	rng := newRand()
	questions, err := pickQuestions(ctx, h.bank, h.settings.QuestionsPerGame, rng)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()

	// Generate unique room code
	var roomCode string
	for attempts := 0; attempts < 10; attempts++ {
		roomCode = h.generateRoomCode()
		if _, exists := h.sessions[roomCode]; !exists {
			break
		}
	}

	if _, exists := h.sessions[roomCode]; exists {
		h.mu.Unlock()
		return nil, fmt.Errorf("failed to generate unique room code")
	}

	room := domain.NewRoom(roomCode, conn.ID(), questions, h.settings.Rules, time.Now, rng)
	session := NewGameSession(room, SessionDeps{
		Settings:     h.settings,
		Orchestrator: h.orchestrator,
		Sequencer:    h.sequencer,
		Rand:         rng,
		Logger:       h.logger,
	})
	h.sessions[roomCode] = session
	h.conns[conn.ID()] = binding{roomCode: roomCode}
	h.mu.Unlock()

	session.AttachHost(conn)

	h.logger.Info("room created",
		"roomCode", roomCode,
		"questions", room.QuestionIDs(),
	)

	return session, nil
}

// JoinRoom adds conn to a room as a new player
func (h *GameHub) JoinRoom(conn ClientConnection, roomCode, name string) (*domain.Player, error) {
	if h.isBound(conn.ID()) {
		return nil, domain.ErrAlreadyInRoom
	}

	session, err := h.GetSession(roomCode)
	if err != nil {
		return nil, err
	}

	player, err := session.Join(uuid.NewString(), name, conn)
	if err != nil {
		return nil, err
	}

	h.bind(conn.ID(), binding{roomCode: session.Code(), playerID: player.ID})
	return player, nil
}

// RejoinRoom reattaches conn to a player kept after a disconnect
func (h *GameHub) RejoinRoom(conn ClientConnection, roomCode, playerID string) (*domain.Player, error) {
	if h.isBound(conn.ID()) {
		return nil, domain.ErrAlreadyInRoom
	}

	session, err := h.GetSession(roomCode)
	if err != nil {
		return nil, err
	}

	player, err := session.Rejoin(playerID, conn)
	if err != nil {
		return nil, err
	}

	h.bind(conn.ID(), binding{roomCode: session.Code(), playerID: player.ID})
	return player, nil
}

// StartGame routes a start request
func (h *GameHub) StartGame(connID, roomCode string) error {
	session, err := h.route(connID, roomCode)
	if err != nil {
		return err
	}
	return session.StartGame(connID)
}

// SubmitAnswer routes an answer submission
func (h *GameHub) SubmitAnswer(connID, roomCode, answer string) error {
	session, err := h.route(connID, roomCode)
	if err != nil {
		return err
	}
	return session.SubmitAnswer(connID, answer)
}

// SubmitVote routes a vote
func (h *GameHub) SubmitVote(connID, roomCode, target string) error {
	session, err := h.route(connID, roomCode)
	if err != nil {
		return err
	}
	return session.SubmitVote(connID, target)
}

// NextQuestion routes a next-question request
func (h *GameHub) NextQuestion(connID, roomCode string) error {
	session, err := h.route(connID, roomCode)
	if err != nil {
		return err
	}
	return session.NextQuestion(connID)
}

// ShowLeaderboard routes a leaderboard request
func (h *GameHub) ShowLeaderboard(connID, roomCode string) error {
	session, err := h.route(connID, roomCode)
	if err != nil {
		return err
	}
	return session.ShowLeaderboard(connID)
}

// Disconnect unbinds a closed connection and evicts its room once empty
func (h *GameHub) Disconnect(connID string) {
	h.mu.Lock()
	b, ok := h.conns[connID]
	delete(h.conns, connID)
	session := h.sessions[b.roomCode]
	h.mu.Unlock()

	if !ok || session == nil {
		return
	}

	if empty := session.Leave(connID); empty {
		h.evictIfEmpty(b.roomCode)
	}
}

// GetSession returns a game session by room code
func (h *GameHub) GetSession(roomCode string) (*GameSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[NormalizeRoomCode(roomCode)]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return session, nil
}

// GetSessionCount returns the number of active sessions
func (h *GameHub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetTotalPlayerCount returns the total number of players across all sessions
func (h *GameHub) GetTotalPlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.GetPlayerCount()
	}
	return total
}

// Close shuts down the hub and all sessions
func (h *GameHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		session.Close()
	}
	h.sessions = make(map[string]*GameSession)
	h.conns = make(map[string]binding)
}

// NormalizeRoomCode upper-cases and trims a user-typed room code
func NormalizeRoomCode(roomCode string) string {
	return strings.ToUpper(strings.TrimSpace(roomCode))
}

// route resolves the session of a bound connection, checking that the
// action names the connection's own room
func (h *GameHub) route(connID, roomCode string) (*GameSession, error) {
	h.mu.RLock()
	b, ok := h.conns[connID]
	session := h.sessions[b.roomCode]
	h.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotInRoom
	}
	if roomCode != "" && NormalizeRoomCode(roomCode) != b.roomCode {
		return nil, domain.ErrNotInRoom
	}
	if session == nil {
		return nil, domain.ErrRoomNotFound
	}
	return session, nil
}

func (h *GameHub) isBound(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[connID]
	return ok
}

func (h *GameHub) bind(connID string, b binding) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = b
}

func (h *GameHub) evictIfEmpty(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if session, ok := h.sessions[roomCode]; ok && session.IsEmpty() {
		h.deleteLocked(roomCode)
	}
}

func (h *GameHub) deleteLocked(roomCode string) {
	session, ok := h.sessions[roomCode]
	if !ok {
		return
	}

	session.Close()
	delete(h.sessions, roomCode)
	for connID, b := range h.conns {
		if b.roomCode == roomCode {
			delete(h.conns, connID)
		}
	}
	h.logger.Info("room deleted", "roomCode", roomCode)
}

// generateRoomCode generates a random room code
func (h *GameHub) generateRoomCode() string {
	chars := h.settings.RoomCodeChars
	b := make([]byte, h.settings.RoomCodeLength)
	rand.Read(b)

	code := make([]byte, h.settings.RoomCodeLength)
	for i := range code {
		code[i] = chars[int(b[i])%len(chars)]
	}

	return string(code)
}

// cleanupLoop periodically cleans up stale games
func (h *GameHub) cleanupLoop() {
	ticker := time.NewTicker(h.settings.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupStaleGames()
		}
	}
}

// cleanupStaleGames removes rooms that have had no players for too long
func (h *GameHub) cleanupStaleGames() {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for roomCode, session := range h.sessions {
		if session.GetPlayerCount() == 0 && now.Sub(session.GetCreatedAt()) > h.settings.StaleRoomTimeout {
			h.deleteLocked(roomCode)
		}
	}
}

func newRand() *mrand.Rand {
	return mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
}
