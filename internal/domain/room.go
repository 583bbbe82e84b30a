package domain

import (
	"math/rand/v2"
	"sort"
	"strings"
	"time"
)

// Rules holds the configurable parameters of a room
type Rules struct {
	MinPlayers       int           `json:"minPlayers"`
	MaxPlayers       int           `json:"maxPlayers"`
	MaxNameLength    int           `json:"maxNameLength"`
	MaxAnswerLength  int           `json:"maxAnswerLength"`
	ReadingDuration  time.Duration `json:"readingDuration"`
	SubmitDuration   time.Duration `json:"submitDuration"`
	VotingDuration   time.Duration `json:"votingDuration"`
	ReadingLeadIn    time.Duration `json:"readingLeadIn"`
	VotingLeadIn     time.Duration `json:"votingLeadIn"`
	Scoring          ScoreRules    `json:"scoring"`
	KeepDisconnected bool          `json:"keepDisconnected"`
}

// DefaultRules returns the standard room rules
func DefaultRules() Rules {
	return Rules{
		MinPlayers:      2,
		MaxPlayers:      12,
		MaxNameLength:   20,
		MaxAnswerLength: 100,
		ReadingDuration: 10 * time.Second,
		SubmitDuration:  30 * time.Second,
		VotingDuration:  20 * time.Second,
		ReadingLeadIn:   1 * time.Second,
		VotingLeadIn:    2 * time.Second,
		Scoring:         DefaultScoreRules(),
	}
}

// RoundResult is the scored outcome of the current question
type RoundResult struct {
	QuestionIndex  int               `json:"questionIndex"`
	TotalQuestions int               `json:"totalQuestions"`
	Question       *Question         `json:"question"`
	Ballot         []AnswerGroup     `json:"answers"`
	Scores         *RoundScores      `json:"scores"`
	Names          map[string]string `json:"names"`
	Order          []string          `json:"order"`
	Standings      []PlayerScore     `json:"standings"`
	Final          bool              `json:"isFinalQuestion"`
}

// Room is one trivia session from lobby to game over.
//
// Room is not safe for concurrent use; the owning session serializes access.
// Every mutating method validates before it mutates, and every phase
// transition checks the current phase first so it can be triggered from
// more than one path without running twice.
type Room struct {
	Code          string            `json:"code"`
	HostID        string            `json:"hostId"`
	Phase         Phase             `json:"phase"`
	QuestionIndex int               `json:"questionIndex"`
	Question      *Question         `json:"question,omitempty"`
	Answers       map[string]string `json:"answers"`
	Votes         map[string]string `json:"votes"`
	Timer         *Timer            `json:"-"`
	Rules         Rules             `json:"rules"`
	CreatedAt     time.Time         `json:"createdAt"`

	players   []*Player
	questions []*Question
	ballot    []AnswerGroup
	result    *RoundResult
	clock     Clock
	rng       *rand.Rand
}

// NewRoom creates a room in the lobby owned by the host connection hostID
func NewRoom(code, hostID string, questions []*Question, rules Rules, clock Clock, rng *rand.Rand) *Room {
	if clock == nil {
		clock = time.Now
	}
	return &Room{
		Code:          code,
		HostID:        hostID,
		Phase:         PhaseLobby,
		QuestionIndex: -1,
		Answers:       make(map[string]string),
		Votes:         make(map[string]string),
		Timer:         NewTimer(clock),
		Rules:         rules,
		CreatedAt:     clock(),
		questions:     questions,
		clock:         clock,
		rng:           rng,
	}
}

// QuestionIDs returns the selected question ids in play order
func (r *Room) QuestionIDs() []int {
	ids := make([]int, len(r.questions))
	for i, q := range r.questions {
		ids[i] = q.ID
	}
	return ids
}

// TotalQuestions returns the number of selected questions
func (r *Room) TotalQuestions() int {
	return len(r.questions)
}

// IsFinalQuestion reports whether the current question is the last one
func (r *Room) IsFinalQuestion() bool {
	return r.QuestionIndex == len(r.questions)-1
}

// IsHost reports whether connID is the host connection
func (r *Room) IsHost(connID string) bool {
	return connID != "" && r.HostID == connID
}

// Players returns the players in join order
func (r *Room) Players() []*Player {
	out := make([]*Player, len(r.players))
	copy(out, r.players)
	return out
}

// PlayerInfos returns the public view of every player in join order
func (r *Room) PlayerInfos() []PlayerInfo {
	out := make([]PlayerInfo, len(r.players))
	for i, p := range r.players {
		out[i] = p.ToInfo()
	}
	return out
}

// Player returns a player by id
func (r *Room) Player(playerID string) (*Player, error) {
	for _, p := range r.players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return nil, ErrUnknownPlayer
}

// PlayerByConn returns the player attached to a connection
func (r *Room) PlayerByConn(connID string) (*Player, error) {
	if connID == "" {
		return nil, ErrUnknownPlayer
	}
	for _, p := range r.players {
		if p.ConnID == connID {
			return p, nil
		}
	}
	return nil, ErrUnknownPlayer
}

// ConnectedCount returns the number of connected players
func (r *Room) ConnectedCount() int {
	count := 0
	for _, p := range r.players {
		if p.Connected {
			count++
		}
	}
	return count
}

// AddPlayer adds a player while the room is in the lobby
func (r *Room) AddPlayer(playerID, rawName, connID string) (*Player, error) {
	if r.Phase != PhaseLobby {
		return nil, ErrGameInProgress
	}

	name := SanitizeName(rawName, r.Rules.MaxNameLength)
	if name == "" {
		return nil, ErrEmptyName
	}

	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return nil, ErrNameTaken
		}
	}

	if r.Rules.MaxPlayers > 0 && len(r.players) >= r.Rules.MaxPlayers {
		return nil, ErrRoomFull
	}

	player := NewPlayer(playerID, name, connID, r.clock())
	r.players = append(r.players, player)

	return player, nil
}

// RemovePlayer removes a player along with their answer and vote
func (r *Room) RemovePlayer(playerID string) error {
	for i, p := range r.players {
		if p.ID == playerID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			delete(r.Answers, playerID)
			delete(r.Votes, playerID)
			return nil
		}
	}
	return ErrUnknownPlayer
}

// DisconnectPlayer handles a lost connection. Players are removed outright
// unless the rules keep disconnected players for a later rejoin. It returns
// true when the player was removed.
func (r *Room) DisconnectPlayer(playerID string) (bool, error) {
	player, err := r.Player(playerID)
	if err != nil {
		return false, err
	}

	if r.Rules.KeepDisconnected {
		player.Disconnect()
		return false, nil
	}

	return true, r.RemovePlayer(playerID)
}

// ReconnectPlayer attaches a new connection to a kept, disconnected player
func (r *Room) ReconnectPlayer(playerID, connID string) (*Player, error) {
	player, err := r.Player(playerID)
	if err != nil {
		return nil, err
	}
	if player.Connected {
		return nil, ErrAlreadyInRoom
	}

	player.Reconnect(connID)
	return player, nil
}

// TransferHost hands the host role to the earliest-joined connected player.
// It returns the new host connection id, or "" when nobody is left.
func (r *Room) TransferHost() string {
	r.HostID = ""
	for _, p := range r.players {
		if p.Connected {
			r.HostID = p.ConnID
			break
		}
	}
	return r.HostID
}

// StartGame loads the first question (host only)
func (r *Room) StartGame(connID string) error {
	if !r.IsHost(connID) {
		return ErrNotHost
	}
	if r.Phase != PhaseLobby {
		return ErrGameInProgress
	}
	if r.ConnectedCount() < r.Rules.MinPlayers {
		return ErrNotEnoughPlayers
	}
	if len(r.questions) == 0 {
		return ErrNoQuestions
	}

	r.loadQuestion(0, r.Rules.ReadingLeadIn)
	return nil
}

// LoadQuestion moves to the question at index, or to game over past the end.
// From a phase that cannot lead there the room is left untouched.
func (r *Room) LoadQuestion(index int) Phase {
	r.loadQuestion(index, 0)
	return r.Phase
}

func (r *Room) loadQuestion(index int, leadIn time.Duration) {
	next := PhaseReading
	if index >= len(r.questions) {
		next = PhaseGameOver
	}
	if !r.Phase.CanTransitionTo(next) {
		return
	}

	r.ballot = nil
	r.result = nil
	r.Answers = make(map[string]string)
	r.Votes = make(map[string]string)

	if next == PhaseGameOver {
		r.Phase = PhaseGameOver
		r.Timer.Reset()
		return
	}

	r.QuestionIndex = index
	r.Question = r.questions[index]
	r.Phase = PhaseReading
	r.Timer.Start(r.Rules.ReadingDuration + leadIn)
}

// NextQuestion advances past the results (host only). Outside the results
// phase it is a no-op so a late double-click cannot fail. It reports whether
// the room advanced.
func (r *Room) NextQuestion(connID string) (bool, error) {
	if r.Phase != PhaseResults {
		return false, nil
	}
	if !r.IsHost(connID) {
		return false, ErrNotHost
	}

	r.LoadQuestion(r.QuestionIndex + 1)
	return true, nil
}

// EndGame jumps to game over from the results of the final question
func (r *Room) EndGame() bool {
	if r.Phase != PhaseResults {
		return false
	}
	r.LoadQuestion(len(r.questions))
	return true
}

// BeginSubmit opens the submit phase once reading is over
func (r *Room) BeginSubmit() bool {
	if !r.Phase.CanTransitionTo(PhaseSubmit) {
		return false
	}
	r.Phase = PhaseSubmit
	r.Timer.Start(r.Rules.SubmitDuration)
	return true
}

// SubmitAnswer records a player's lie. It reports whether the submission
// completed the phase and moved the room to voting.
func (r *Room) SubmitAnswer(playerID, raw string) (bool, error) {
	if r.Phase != PhaseSubmit {
		return false, ErrWrongPhase
	}
	if r.Timer.Remaining() <= 0 {
		return false, ErrTimeExpired
	}
	if _, err := r.Player(playerID); err != nil {
		return false, err
	}

	text := SanitizeAnswer(raw, r.Rules.MaxAnswerLength)
	if text == "" {
		return false, ErrEmptyAnswer
	}
	if err := ValidateAnswer(text, r.Question.Answer); err != nil {
		return false, err
	}

	r.Answers[playerID] = strings.ToUpper(text)

	if r.IsSubmitPhaseComplete() {
		return r.BeginVoting(), nil
	}
	return false, nil
}

// IsSubmitPhaseComplete reports whether every connected player has answered
func (r *Room) IsSubmitPhaseComplete() bool {
	connected := 0
	for _, p := range r.players {
		if !p.Connected {
			continue
		}
		connected++
		if _, ok := r.Answers[p.ID]; !ok {
			return false
		}
	}
	return connected > 0
}

// SubmittedCount returns the number of answers in
func (r *Room) SubmittedCount() int {
	return len(r.Answers)
}

// BeginVoting builds and shuffles the ballot and opens voting
func (r *Room) BeginVoting() bool {
	if !r.Phase.CanTransitionTo(PhaseVoting) {
		return false
	}

	subs := make([]Submission, 0, len(r.Answers))
	for _, p := range r.players {
		if text, ok := r.Answers[p.ID]; ok {
			subs = append(subs, Submission{PlayerID: p.ID, Text: text})
		}
	}

	r.ballot = GroupAnswers(subs, r.Question.Answer)
	Shuffle(r.rng, r.ballot)

	r.Phase = PhaseVoting
	r.Timer.Start(r.Rules.VotingDuration + r.Rules.VotingLeadIn)
	return true
}

// Ballot returns the shuffled answer groups of the current question
func (r *Room) Ballot() []AnswerGroup {
	out := make([]AnswerGroup, len(r.ballot))
	copy(out, r.ballot)
	return out
}

// BallotFor returns the ballot a player votes on: everything except the
// group holding their own answer
func (r *Room) BallotFor(playerID string) []BallotEntry {
	out := make([]BallotEntry, 0, len(r.ballot))
	for _, g := range r.ballot {
		if g.Has(playerID) {
			continue
		}
		out = append(out, g.Entry())
	}
	return out
}

// BallotEntries returns the full ballot without authorship
func (r *Room) BallotEntries() []BallotEntry {
	out := make([]BallotEntry, len(r.ballot))
	for i, g := range r.ballot {
		out[i] = g.Entry()
	}
	return out
}

// resolveTarget maps a vote target onto a ballot group. A single member id
// of a duplicate group resolves to the whole group.
func (r *Room) resolveTarget(target string) (AnswerGroup, bool) {
	for _, g := range r.ballot {
		if g.ID == target {
			return g, true
		}
	}
	for _, g := range r.ballot {
		if g.Has(target) {
			return g, true
		}
	}
	return AnswerGroup{}, false
}

// SubmitVote records a player's vote. It reports whether the vote completed
// the phase and moved the room to results.
func (r *Room) SubmitVote(playerID, target string) (bool, error) {
	if r.Phase != PhaseVoting {
		return false, ErrWrongPhase
	}
	if r.Timer.Remaining() <= 0 {
		return false, ErrTimeExpired
	}
	if _, err := r.Player(playerID); err != nil {
		return false, err
	}

	for _, id := range strings.Split(target, ",") {
		if strings.TrimSpace(id) == playerID {
			return false, ErrSelfVote
		}
	}
	group, ok := r.resolveTarget(target)
	if ok && group.Has(playerID) {
		return false, ErrSelfVote
	}

	if _, voted := r.Votes[playerID]; voted {
		return false, ErrAlreadyVoted
	}
	if !ok {
		return false, ErrTargetNotFound
	}

	r.Votes[playerID] = group.ID

	if r.IsVotingPhaseComplete() {
		return r.EndVoting(), nil
	}
	return false, nil
}

// IsVotingPhaseComplete reports whether every connected player has voted
func (r *Room) IsVotingPhaseComplete() bool {
	connected := 0
	for _, p := range r.players {
		if !p.Connected {
			continue
		}
		connected++
		if _, ok := r.Votes[p.ID]; !ok {
			return false
		}
	}
	return connected > 0
}

// VoteCount returns the number of votes cast, abstentions excluded
func (r *Room) VoteCount() int {
	count := 0
	for _, target := range r.Votes {
		if target != "" {
			count++
		}
	}
	return count
}

// EndVoting closes voting and enters results. Connected players who did not
// vote are recorded as abstaining.
func (r *Room) EndVoting() bool {
	if !r.Phase.CanTransitionTo(PhaseResults) {
		return false
	}

	for _, p := range r.players {
		if _, ok := r.Votes[p.ID]; !ok && p.Connected {
			r.Votes[p.ID] = ""
		}
	}

	r.Phase = PhaseResults
	r.Timer.Pause()
	return true
}

// AdvanceOnExpiry performs the transition owed to an expired timer. It
// returns the phase entered, or "" when nothing was due.
func (r *Room) AdvanceOnExpiry() Phase {
	if !r.Timer.Expired() {
		return ""
	}

	switch r.Phase {
	case PhaseReading:
		if r.BeginSubmit() {
			return PhaseSubmit
		}
	case PhaseSubmit:
		if r.BeginVoting() {
			return PhaseVoting
		}
	case PhaseVoting:
		if r.EndVoting() {
			return PhaseResults
		}
	}
	return ""
}

// Reconcile re-checks phase completion after the player set shrank and
// performs the transition if the remaining players are all done. It returns
// the phase entered, or "".
func (r *Room) Reconcile() Phase {
	switch r.Phase {
	case PhaseSubmit:
		if r.IsSubmitPhaseComplete() && r.BeginVoting() {
			return PhaseVoting
		}
	case PhaseVoting:
		if r.IsVotingPhaseComplete() && r.EndVoting() {
			return PhaseResults
		}
	}
	return ""
}

// ScoreRound scores the current question once and applies the totals to the
// players. Later calls return the cached result.
func (r *Room) ScoreRound() (*RoundResult, error) {
	if r.Phase != PhaseResults {
		return nil, ErrWrongPhase
	}
	if r.result != nil {
		return r.result, nil
	}

	scores := ComputeRoundScores(r.players, r.ballot, r.Votes, r.Rules.Scoring)

	names := make(map[string]string, len(r.players))
	order := make([]string, len(r.players))
	for i, p := range r.players {
		p.Score = scores.Totals[p.ID]
		names[p.ID] = p.Name
		order[i] = p.ID
	}

	r.result = &RoundResult{
		QuestionIndex:  r.QuestionIndex,
		TotalQuestions: len(r.questions),
		Question:       r.Question,
		Ballot:         r.Ballot(),
		Scores:         scores,
		Names:          names,
		Order:          order,
		Standings:      r.Standings(),
		Final:          r.IsFinalQuestion(),
	}
	return r.result, nil
}

// Standings returns the scoreboard, highest score first, ties in join order
func (r *Room) Standings() []PlayerScore {
	out := make([]PlayerScore, len(r.players))
	for i, p := range r.players {
		out[i] = PlayerScore{PlayerID: p.ID, Name: p.Name, Score: p.Score}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
