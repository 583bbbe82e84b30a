package app

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"fibtrivia/internal/domain"
	"fibtrivia/internal/reveal"
)

// ClientConnection represents a connected view: a host screen or a player
type ClientConnection interface {
	Send(event *domain.GameEvent) error
	ID() string
	Close() error
}

// RevealRunner plays a reveal plan step by step through emit
type RevealRunner interface {
	Run(ctx context.Context, plan *reveal.Plan, emit reveal.Emitter) error
}

// SessionDeps are the collaborators a session shares with its hub
type SessionDeps struct {
	Settings     Settings
	Orchestrator RevealRunner
	Sequencer    *reveal.Sequencer
	Rand         *rand.Rand
	Logger       *slog.Logger
}

// GameSession owns one room. Every mutation of the room happens under mu;
// the timer loop, delayed announcements and the reveal goroutine all take
// the same lock, so validation and mutation of an action are never split.
type GameSession struct {
	room      *domain.Room
	mu        sync.Mutex
	clients   map[string]ClientConnection // connID -> client
	clientsMu sync.RWMutex
	settings  Settings
	logger    *slog.Logger
	rng       *rand.Rand

	orchestrator RevealRunner
	sequencer    *reveal.Sequencer

	// Timer loop of the current timed phase. clockPaused is set while the
	// loop is stopped because every player dropped.
	clockStop   chan struct{}
	clockPaused bool

	// Current reveal sequence
	revealSeq        int64
	revealCancel     context.CancelFunc
	leaderboardReady bool

	// Event channel for broadcasting
	events chan *domain.GameEvent
	done   chan struct{}
}

// NewGameSession creates a new game session
func NewGameSession(room *domain.Room, deps SessionDeps) *GameSession {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	orchestrator := deps.Orchestrator
	if orchestrator == nil {
		orchestrator = reveal.NewOrchestrator(deps.Settings.Timings, logger)
	}
	sequencer := deps.Sequencer
	if sequencer == nil {
		sequencer = reveal.NewSequencer(nil)
	}
	rng := deps.Rand
	if rng == nil {
		rng = newRand()
	}

	session := &GameSession{
		room:         room,
		clients:      make(map[string]ClientConnection),
		settings:     deps.Settings.normalize(),
		logger:       logger.With("roomCode", room.Code),
		rng:          rng,
		orchestrator: orchestrator,
		sequencer:    sequencer,
		events:       make(chan *domain.GameEvent, 256),
		done:         make(chan struct{}),
	}

	// Start event broadcaster
	go session.eventLoop()

	return session
}

// Code returns the room code
func (s *GameSession) Code() string {
	return s.room.Code
}

// GetCreatedAt returns when the room was created
func (s *GameSession) GetCreatedAt() time.Time {
	return s.room.CreatedAt
}

// GetPlayerCount returns the number of players
func (s *GameSession) GetPlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.room.Players())
}

// GetPhase returns the current phase
func (s *GameSession) GetPhase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Phase
}

// CanJoin checks if a new player can join the room
func (s *GameSession) CanJoin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := s.room.Rules.MaxPlayers
	return s.room.Phase == domain.PhaseLobby && (max <= 0 || len(s.room.Players()) < max)
}

// IsEmpty reports whether no connection is attached anymore
func (s *GameSession) IsEmpty() bool {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients) == 0
}

// RegisterClient registers a client connection
func (s *GameSession) RegisterClient(client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.ID()] = client
}

// UnregisterClient removes a client connection
func (s *GameSession) UnregisterClient(connID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, connID)
}

// AttachHost registers the host view and confirms the room to it
func (s *GameSession) AttachHost(conn ClientConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RegisterClient(conn)
	s.queueEvent(domain.NewDirectEvent(s.room.Code, conn.ID(), domain.RoomCreatedPayload{
		Code:   s.room.Code,
		HostID: conn.ID(),
	}))
}

// Join adds a player on conn
func (s *GameSession) Join(playerID, name string, conn ClientConnection) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return nil, domain.ErrRoomNotFound
	}

	player, err := s.room.AddPlayer(playerID, name, conn.ID())
	if err != nil {
		return nil, err
	}

	s.RegisterClient(conn)
	s.logger.Info("player joined", "playerID", player.ID, "name", player.Name)

	s.greetLocked(conn.ID(), player)
	s.broadcastLobbyLocked()

	return player, nil
}

// Rejoin reattaches a kept player to a new connection
func (s *GameSession) Rejoin(playerID string, conn ClientConnection) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return nil, domain.ErrRoomNotFound
	}

	player, err := s.room.ReconnectPlayer(playerID, conn.ID())
	if err != nil {
		return nil, err
	}

	s.RegisterClient(conn)
	s.logger.Info("player rejoined", "playerID", player.ID, "name", player.Name)

	s.greetLocked(conn.ID(), player)
	s.broadcastLobbyLocked()

	if s.clockPaused && s.room.Phase.Timed() {
		s.logger.Info("clock resumed", "phase", s.room.Phase)
		s.startClockLocked()
	}

	if s.room.HostID == "" {
		s.room.TransferHost()
		s.queueEvent(domain.NewEvent(s.room.Code, domain.HostChangedPayload{HostID: s.room.HostID}))
	}

	return player, nil
}

// Leave detaches a closed connection. A player on it is removed (or kept as
// disconnected), the host role moves on if needed, and a phase waiting only
// on the departed player completes. It reports whether the room is now empty.
func (s *GameSession) Leave(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.UnregisterClient(connID)

	if player, err := s.room.PlayerByConn(connID); err == nil {
		removed, _ := s.room.DisconnectPlayer(player.ID)
		s.logger.Info("player disconnected",
			"playerID", player.ID,
			"removed", removed,
			"phase", s.room.Phase,
		)
		s.broadcastLobbyLocked()
		s.enterPhaseLocked(s.room.Reconcile(), true)
	}

	if s.room.IsHost(connID) {
		newHost := s.room.TransferHost()
		s.logger.Info("host changed", "hostID", newHost)
		s.queueEvent(domain.NewEvent(s.room.Code, domain.HostChangedPayload{HostID: newHost}))
	}

	if s.room.ConnectedCount() == 0 && s.clockStop != nil {
		s.stopClockLocked()
		s.clockPaused = true
	}

	return s.IsEmpty()
}

// StartGame starts the game (host only)
func (s *GameSession) StartGame(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.room.StartGame(connID); err != nil {
		return err
	}

	s.logger.Info("game started",
		"players", len(s.room.Players()),
		"questions", s.room.TotalQuestions(),
	)

	s.queueEvent(domain.NewEvent(s.room.Code, domain.GameStartedPayload{
		TotalQuestions: s.room.TotalQuestions(),
	}))
	s.after(s.settings.StartDelay, s.announceQuestionLocked)

	return nil
}

// SubmitAnswer records the answer of the player on connID
func (s *GameSession) SubmitAnswer(connID, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	advanced, err := s.room.SubmitAnswer(s.playerIDLocked(connID), answer)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(s.room.Code, domain.AnswerSubmittedPayload{
		SubmittedCount: s.room.SubmittedCount(),
		TotalPlayers:   s.room.ConnectedCount(),
	}))

	if advanced {
		s.enterPhaseLocked(domain.PhaseVoting, true)
	}

	return nil
}

// SubmitVote records the vote of the player on connID
func (s *GameSession) SubmitVote(connID, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	advanced, err := s.room.SubmitVote(s.playerIDLocked(connID), target)
	if err != nil {
		return err
	}

	s.queueEvent(domain.NewEvent(s.room.Code, domain.VoteSubmittedPayload{
		VoteCount:    s.room.VoteCount(),
		TotalPlayers: s.room.ConnectedCount(),
	}))

	if advanced {
		s.enterPhaseLocked(domain.PhaseResults, true)
	}

	return nil
}

// NextQuestion moves past the results (host only). Outside results it is a no-op.
func (s *GameSession) NextQuestion(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	advanced, err := s.room.NextQuestion(connID)
	if err != nil {
		return err
	}
	if !advanced {
		s.logger.Debug("next question ignored", "phase", s.room.Phase)
		return nil
	}

	s.cancelRevealLocked()

	if s.room.Phase == domain.PhaseGameOver {
		s.finishLocked()
		return nil
	}

	s.announceQuestionLocked()
	return nil
}

// ShowLeaderboard broadcasts the cached scoreboard (host only). After the
// final question it ends the game instead.
func (s *GameSession) ShowLeaderboard(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.room.IsHost(connID) {
		return domain.ErrNotHost
	}
	if s.room.Phase != domain.PhaseResults {
		return domain.ErrWrongPhase
	}
	if !s.leaderboardReady {
		return domain.ErrLeaderboardNotReady
	}

	if s.room.IsFinalQuestion() {
		s.cancelRevealLocked()
		s.room.EndGame()
		s.finishLocked()
		return nil
	}

	s.queueEvent(domain.NewEvent(s.room.Code, domain.ShowLeaderboardPayload{
		SequenceTag: domain.Tag(s.revealSeq),
		Scores:      s.room.Standings(),
	}))
	return nil
}

// EmitSequenced implements reveal.Emitter. Steps of a sequence that is no
// longer current are refused.
func (s *GameSession) EmitSequenced(seq int64, payload domain.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() || seq != s.revealSeq {
		return reveal.ErrSuperseded
	}

	s.queueEvent(domain.NewEvent(s.room.Code, payload))
	if payload.EventType() == domain.EventShowLeaderboardButton {
		s.leaderboardReady = true
	}
	return nil
}

// GameState returns the snapshot a connection needs to catch up
func (s *GameSession) GameState(connID string) domain.GameStatePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameStateLocked(connID)
}

func (s *GameSession) gameStateLocked(connID string) domain.GameStatePayload {
	state := domain.GameStatePayload{
		Phase:          s.room.Phase,
		Players:        s.room.PlayerInfos(),
		HostID:         s.room.HostID,
		QuestionIndex:  s.room.QuestionIndex,
		TotalQuestions: s.room.TotalQuestions(),
		TimeRemaining:  s.room.Timer.Remaining(),
	}

	if s.room.Question != nil && s.room.Phase != domain.PhaseGameOver {
		view := s.room.Question.View()
		state.Question = &view
	}

	if s.room.Phase == domain.PhaseVoting {
		state.Answers = s.ballotForLocked(connID)
	}

	return state
}

// enterPhaseLocked announces a phase the room has just entered. allDone
// marks transitions caused by the last outstanding action rather than by
// the timer running out.
func (s *GameSession) enterPhaseLocked(phase domain.Phase, allDone bool) {
	if phase == "" {
		return
	}

	s.logger.Info("phase changed",
		"phase", phase,
		"questionIndex", s.room.QuestionIndex,
		"early", allDone,
	)

	switch phase {
	case domain.PhaseSubmit:
		s.queueEvent(domain.NewEvent(s.room.Code, domain.PhaseChangePayload{
			Phase:         domain.PhaseSubmit,
			TimeRemaining: s.room.Timer.Remaining(),
		}))
		s.startClockLocked()

	case domain.PhaseVoting:
		s.stopClockLocked()
		if allDone {
			s.queueEvent(domain.NewEvent(s.room.Code, domain.AllAnswersSubmittedPayload{}))
		}
		s.after(s.settings.VotingDelay, s.announceVotingLocked)

	case domain.PhaseResults:
		s.stopClockLocked()
		s.queueEvent(domain.NewEvent(s.room.Code, domain.PlayTransitionSoundPayload{}))
		s.after(s.settings.ResultsDelay, s.beginRevealLocked)
	}
}

func (s *GameSession) announceQuestionLocked() {
	q := s.room.Question

	s.queueEvent(domain.NewEvent(s.room.Code, domain.NewQuestionPayload{
		Question:       q.View(),
		QuestionIndex:  s.room.QuestionIndex,
		TotalQuestions: s.room.TotalQuestions(),
	}))
	s.queueEvent(domain.NewEvent(s.room.Code, domain.PhaseChangePayload{
		Phase:         domain.PhaseReading,
		TimeRemaining: s.room.Timer.Remaining(),
	}))

	s.startClockLocked()
}

func (s *GameSession) announceVotingLocked() {
	for _, connID := range s.clientIDs() {
		s.queueEvent(domain.NewDirectEvent(s.room.Code, connID, domain.VotingReadyPayload{
			Answers: s.ballotForLocked(connID),
		}))
	}

	s.queueEvent(domain.NewEvent(s.room.Code, domain.PhaseChangePayload{
		Phase:         domain.PhaseVoting,
		TimeRemaining: s.room.Timer.Remaining(),
	}))

	s.startClockLocked()
}

// ballotForLocked hides a player's own answer from them; other views see everything
func (s *GameSession) ballotForLocked(connID string) []domain.BallotEntry {
	if player, err := s.room.PlayerByConn(connID); err == nil {
		return s.room.BallotFor(player.ID)
	}
	return s.room.BallotEntries()
}

// beginRevealLocked scores the round and starts the reveal sequence
func (s *GameSession) beginRevealLocked() {
	result, err := s.room.ScoreRound()
	if err != nil {
		s.logger.Error("failed to score round", "error", err)
		return
	}

	s.queueEvent(domain.NewEvent(s.room.Code, domain.PhaseChangePayload{
		Phase:         domain.PhaseResults,
		TimeRemaining: 0,
	}))

	s.cancelRevealLocked()
	seq := s.sequencer.Next()
	s.revealSeq = seq
	s.leaderboardReady = false

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("failed to build reveal plan", "sequenceId", seq, "panic", r)
			s.fallbackLocked(seq, result)
		}
	}()

	plan := reveal.BuildPlan(seq, result, s.room.Rules.Scoring.CorrectVotePoints, s.rng)

	ctx, cancel := context.WithCancel(context.Background())
	s.revealCancel = cancel
	go s.runReveal(ctx, plan)
}

// runReveal drives one reveal sequence. Failures fall back to sending the
// whole result at once so the room never stalls mid-animation.
func (s *GameSession) runReveal(ctx context.Context, plan *reveal.Plan) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reveal sequence panicked", "sequenceId", plan.SequenceID, "panic", r)
			s.fallback(plan)
		}
	}()

	err := s.orchestrator.Run(ctx, plan, s)
	if err == nil || errors.Is(err, reveal.ErrSuperseded) || errors.Is(err, context.Canceled) {
		return
	}

	s.logger.Error("reveal sequence failed", "sequenceId", plan.SequenceID, "error", err)
	s.fallback(plan)
}

func (s *GameSession) fallback(plan *reveal.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallbackLocked(plan.SequenceID, plan.Result)
}

func (s *GameSession) fallbackLocked(seq int64, result *domain.RoundResult) {
	if s.isClosed() || seq != s.revealSeq {
		return
	}
	s.queueEvent(domain.NewEvent(s.room.Code, reveal.Fallback(seq, result)))
	s.leaderboardReady = true
}

func (s *GameSession) cancelRevealLocked() {
	if s.revealCancel != nil {
		s.revealCancel()
		s.revealCancel = nil
	}
	s.revealSeq = 0
	s.leaderboardReady = false
}

func (s *GameSession) finishLocked() {
	s.stopClockLocked()
	standings := s.room.Standings()

	s.logger.Info("game over", "standings", standings)
	s.queueEvent(domain.NewEvent(s.room.Code, domain.GameOverPayload{
		FinalScores: standings,
	}))
}

// startClockLocked replaces the timer loop with one bound to the current phase
func (s *GameSession) startClockLocked() {
	s.stopClockLocked()

	stop := make(chan struct{})
	s.clockStop = stop
	s.clockPaused = false
	go s.runClock(s.room.Phase, stop)
}

func (s *GameSession) stopClockLocked() {
	if s.clockStop != nil {
		close(s.clockStop)
		s.clockStop = nil
	}
}

// runClock polls the room timer once per tick for as long as phase lasts
func (s *GameSession) runClock(phase domain.Phase, stop chan struct{}) {
	ticker := time.NewTicker(s.settings.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick(phase, stop) {
				return
			}
		}
	}
}

// tick broadcasts the remaining time, or performs the transition owed to an
// expired timer. It reports whether the loop should keep running.
func (s *GameSession) tick(phase domain.Phase, stop chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-stop:
		return false
	default:
	}

	if s.room.Phase != phase {
		return false
	}
	if s.room.Timer.Paused() {
		return true
	}

	if remaining := s.room.Timer.Remaining(); remaining > 0 {
		s.queueEvent(domain.NewEvent(s.room.Code, domain.TimerUpdatePayload{
			TimeRemaining: remaining,
		}))
		return true
	}

	s.enterPhaseLocked(s.room.AdvanceOnExpiry(), false)
	return false
}

// after runs fn under the session lock once d has passed, provided the room
// is still in the phase and question it was scheduled for
func (s *GameSession) after(d time.Duration, fn func()) {
	phase, index := s.room.Phase, s.room.QuestionIndex

	time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.isClosed() || s.room.Phase != phase || s.room.QuestionIndex != index {
			return
		}
		fn()
	})
}

func (s *GameSession) greetLocked(connID string, player *domain.Player) {
	s.queueEvent(domain.NewDirectEvent(s.room.Code, connID, domain.JoinedPayload{
		PlayerID: player.ID,
		Name:     player.Name,
		RoomCode: s.room.Code,
	}))
	s.queueEvent(domain.NewDirectEvent(s.room.Code, connID, s.gameStateLocked(connID)))
}

func (s *GameSession) broadcastLobbyLocked() {
	s.queueEvent(domain.NewEvent(s.room.Code, domain.PlayerJoinedPayload{
		Players: s.room.PlayerInfos(),
		HostID:  s.room.HostID,
	}))
}

func (s *GameSession) playerIDLocked(connID string) string {
	if player, err := s.room.PlayerByConn(connID); err == nil {
		return player.ID
	}
	return ""
}

func (s *GameSession) clientIDs() []string {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids
}

func (s *GameSession) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// queueEvent adds an event to the broadcast queue
func (s *GameSession) queueEvent(event *domain.GameEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping event", "type", event.Type)
	}
}

// eventLoop processes events and broadcasts to clients
func (s *GameSession) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.events:
			s.broadcastEvent(event)
		}
	}
}

// broadcastEvent sends an event to appropriate clients
func (s *GameSession) broadcastEvent(event *domain.GameEvent) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	// If connection-specific, send only to that connection
	if event.Recipient != "" {
		if client, ok := s.clients[event.Recipient]; ok {
			if err := client.Send(event); err != nil {
				s.logger.Debug("failed to send to client", "connID", event.Recipient, "error", err)
			}
		}
		return
	}

	// Broadcast to all clients
	for connID, client := range s.clients {
		if err := client.Send(event); err != nil {
			s.logger.Debug("failed to send to client", "connID", connID, "error", err)
		}
	}
}

// Close shuts down the session
func (s *GameSession) Close() {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return // Already closed
	default:
		close(s.done)
	}
	s.stopClockLocked()
	s.cancelRevealLocked()
	s.mu.Unlock()

	// Close all client connections
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
	s.clientsMu.Unlock()
}
