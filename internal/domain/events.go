package domain

import "time"

// EventType is the wire name of a server event
type EventType string

const (
	EventRoomCreated         EventType = "roomCreated"
	EventJoined              EventType = "joined"
	EventPlayerJoined        EventType = "playerJoined"
	EventHostChanged         EventType = "hostChanged"
	EventGameState           EventType = "gameState"
	EventGameStarted         EventType = "gameStarted"
	EventNewQuestion         EventType = "newQuestion"
	EventPhaseChange         EventType = "phaseChange"
	EventTimerUpdate         EventType = "timerUpdate"
	EventAnswerSubmitted     EventType = "answerSubmitted"
	EventAllAnswersSubmitted EventType = "allAnswersSubmitted"
	EventVotingReady         EventType = "votingReady"
	EventVoteSubmitted       EventType = "voteSubmitted"
	EventPlayTransitionSound EventType = "playTransitionSound"
	EventResultsReady        EventType = "resultsReady"
	EventGameOver            EventType = "gameOver"
	EventError               EventType = "error"

	EventStartSequence          EventType = "results:startSequence"
	EventHighlightAnswer        EventType = "results:highlightAnswer"
	EventRevealLie              EventType = "results:revealLie"
	EventShowVoters             EventType = "results:showVoters"
	EventRevealAuthor           EventType = "results:revealAuthor"
	EventUpdateScore            EventType = "results:updateScore"
	EventTransitionNext         EventType = "results:transitionNext"
	EventHighlightCorrectAnswer EventType = "results:highlightCorrectAnswer"
	EventRevealTruth            EventType = "results:revealTruth"
	EventShowCorrectVoters      EventType = "results:showCorrectVoters"
	EventShowExplanation        EventType = "results:showExplanation"
	EventShowLeaderboardButton  EventType = "results:showLeaderboardButton"
	EventShowLeaderboard        EventType = "results:showLeaderboard"
	EventComplete               EventType = "results:complete"
)

// Payload is implemented by every event variant; the variant fixes the type
type Payload interface {
	EventType() EventType
}

// Sequenced is implemented by every results:* payload
type Sequenced interface {
	Sequence() int64
}

// SequenceTag stamps a payload with the reveal sequence it belongs to
type SequenceTag struct {
	SequenceID int64 `json:"sequenceId"`
}

// Sequence returns the reveal sequence id
func (t SequenceTag) Sequence() int64 {
	return t.SequenceID
}

// Tag builds a SequenceTag
func Tag(seq int64) SequenceTag {
	return SequenceTag{SequenceID: seq}
}

// GameEvent is an event queued for delivery to a room
type GameEvent struct {
	Type      EventType `json:"type"`
	RoomCode  string    `json:"roomCode"`
	Recipient string    `json:"-"` // Connection id; empty broadcasts to the room
	Payload   Payload   `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a room-wide event
func NewEvent(roomCode string, payload Payload) *GameEvent {
	return &GameEvent{
		Type:      payload.EventType(),
		RoomCode:  roomCode,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewDirectEvent creates an event for a single connection
func NewDirectEvent(roomCode, connID string, payload Payload) *GameEvent {
	event := NewEvent(roomCode, payload)
	event.Recipient = connID
	return event
}

// Lobby and flow payloads

type RoomCreatedPayload struct {
	Code   string `json:"code"`
	HostID string `json:"hostId"`
}

type JoinedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	RoomCode string `json:"roomCode"`
}

type PlayerJoinedPayload struct {
	Players []PlayerInfo `json:"players"`
	HostID  string       `json:"hostId"`
}

type HostChangedPayload struct {
	HostID string `json:"hostId"`
}

// GameStatePayload is the snapshot sent to a connection joining mid-flow
type GameStatePayload struct {
	Phase          Phase         `json:"phase"`
	Players        []PlayerInfo  `json:"players"`
	HostID         string        `json:"hostId"`
	QuestionIndex  int           `json:"questionIndex"`
	TotalQuestions int           `json:"totalQuestions"`
	Question       *QuestionView `json:"question,omitempty"`
	TimeRemaining  int           `json:"timeRemaining"`
	Answers        []BallotEntry `json:"answers,omitempty"`
}

type GameStartedPayload struct {
	TotalQuestions int `json:"totalQuestions"`
}

type NewQuestionPayload struct {
	Question       QuestionView `json:"question"`
	QuestionIndex  int          `json:"questionIndex"`
	TotalQuestions int          `json:"totalQuestions"`
}

type PhaseChangePayload struct {
	Phase         Phase `json:"phase"`
	TimeRemaining int   `json:"timeRemaining"`
}

type TimerUpdatePayload struct {
	TimeRemaining int `json:"timeRemaining"`
}

type AnswerSubmittedPayload struct {
	SubmittedCount int `json:"submittedCount"`
	TotalPlayers   int `json:"totalPlayers"`
}

type AllAnswersSubmittedPayload struct{}

type VotingReadyPayload struct {
	Answers []BallotEntry `json:"answers"`
}

type VoteSubmittedPayload struct {
	VoteCount    int `json:"voteCount"`
	TotalPlayers int `json:"totalPlayers"`
}

type PlayTransitionSoundPayload struct{}

// ResultsReadyPayload carries everything at once when the reveal cannot run
type ResultsReadyPayload struct {
	SequenceID    int64             `json:"sequenceId"`
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation"`
	Answers       []AnswerGroup     `json:"answers"`
	Votes         map[string]string `json:"votes"`
	VoteCounts    map[string]int    `json:"voteCounts"`
	RoundScores   map[string]int    `json:"roundScores"`
	Standings     []PlayerScore     `json:"standings"`
	IsFinal       bool              `json:"isFinalQuestion"`
}

type GameOverPayload struct {
	FinalScores []PlayerScore `json:"finalScores"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Reveal sequence payloads

// AuthorCredit is the share of fool points one author earned
type AuthorCredit struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
}

type StartSequencePayload struct {
	SequenceTag
	Answers        []BallotEntry `json:"answers"`
	QuestionIndex  int           `json:"questionIndex"`
	TotalQuestions int           `json:"totalQuestions"`
}

type HighlightAnswerPayload struct {
	SequenceTag
	AnswerID string `json:"answerId"`
}

type RevealLiePayload struct {
	SequenceTag
	AnswerID     string      `json:"answerId"`
	Text         string      `json:"text"`
	Voters       []PlayerRef `json:"voters"`
	PointsEarned int         `json:"pointsEarned"`
}

type ShowVotersPayload struct {
	SequenceTag
	AnswerID string      `json:"answerId"`
	Voters   []PlayerRef `json:"voters"`
}

type RevealAuthorPayload struct {
	SequenceTag
	AnswerID string         `json:"answerId"`
	Authors  []AuthorCredit `json:"authors"`
	IsSplit  bool           `json:"isSplit"`
}

type UpdateScorePayload struct {
	SequenceTag
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	NewScore int    `json:"newScore"`
}

type TransitionNextPayload struct {
	SequenceTag
}

type HighlightCorrectAnswerPayload struct {
	SequenceTag
	AnswerID string `json:"answerId"`
}

type RevealTruthPayload struct {
	SequenceTag
	AnswerID string `json:"answerId"`
	Text     string `json:"text"`
}

type ShowCorrectVotersPayload struct {
	SequenceTag
	Voters []PlayerRef `json:"voters"`
	Points int         `json:"points"`
}

type ShowExplanationPayload struct {
	SequenceTag
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
}

type ShowLeaderboardButtonPayload struct {
	SequenceTag
	IsFinal bool `json:"isFinalQuestion"`
}

type ShowLeaderboardPayload struct {
	SequenceTag
	Scores []PlayerScore `json:"scores"`
}

type CompletePayload struct {
	SequenceTag
}

func (RoomCreatedPayload) EventType() EventType            { return EventRoomCreated }
func (JoinedPayload) EventType() EventType                 { return EventJoined }
func (PlayerJoinedPayload) EventType() EventType           { return EventPlayerJoined }
func (HostChangedPayload) EventType() EventType            { return EventHostChanged }
func (GameStatePayload) EventType() EventType              { return EventGameState }
func (GameStartedPayload) EventType() EventType            { return EventGameStarted }
func (NewQuestionPayload) EventType() EventType            { return EventNewQuestion }
func (PhaseChangePayload) EventType() EventType            { return EventPhaseChange }
func (TimerUpdatePayload) EventType() EventType            { return EventTimerUpdate }
func (AnswerSubmittedPayload) EventType() EventType        { return EventAnswerSubmitted }
func (AllAnswersSubmittedPayload) EventType() EventType    { return EventAllAnswersSubmitted }
func (VotingReadyPayload) EventType() EventType            { return EventVotingReady }
func (VoteSubmittedPayload) EventType() EventType          { return EventVoteSubmitted }
func (PlayTransitionSoundPayload) EventType() EventType    { return EventPlayTransitionSound }
func (ResultsReadyPayload) EventType() EventType           { return EventResultsReady }
func (GameOverPayload) EventType() EventType               { return EventGameOver }
func (ErrorPayload) EventType() EventType                  { return EventError }
func (StartSequencePayload) EventType() EventType          { return EventStartSequence }
func (HighlightAnswerPayload) EventType() EventType        { return EventHighlightAnswer }
func (RevealLiePayload) EventType() EventType              { return EventRevealLie }
func (ShowVotersPayload) EventType() EventType             { return EventShowVoters }
func (RevealAuthorPayload) EventType() EventType           { return EventRevealAuthor }
func (UpdateScorePayload) EventType() EventType            { return EventUpdateScore }
func (TransitionNextPayload) EventType() EventType         { return EventTransitionNext }
func (HighlightCorrectAnswerPayload) EventType() EventType { return EventHighlightCorrectAnswer }
func (RevealTruthPayload) EventType() EventType            { return EventRevealTruth }
func (ShowCorrectVotersPayload) EventType() EventType      { return EventShowCorrectVoters }
func (ShowExplanationPayload) EventType() EventType        { return EventShowExplanation }
func (ShowLeaderboardButtonPayload) EventType() EventType  { return EventShowLeaderboardButton }
func (ShowLeaderboardPayload) EventType() EventType        { return EventShowLeaderboard }
func (CompletePayload) EventType() EventType               { return EventComplete }
