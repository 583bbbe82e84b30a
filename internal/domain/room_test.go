package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuestions() []*Question {
	return []*Question{
		{ID: 1, Prompt: "The moon is made of _____.", Answer: "ROCK", Explanation: "Mostly silicate rock."},
		{ID: 2, Prompt: "Paris is the capital of _____.", Answer: "FRANCE", Explanation: "Since 987."},
	}
}

func newTestRoom(t *testing.T, rules Rules) (*Room, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	room := NewRoom("ABCD", "host", testQuestions(), rules, clock.Now, rand.New(rand.NewPCG(7, 11)))
	return room, clock
}

// startedRoom returns a room in the submit phase of its first question
func startedRoom(t *testing.T, rules Rules, names ...string) (*Room, *fakeClock, []*Player) {
	t.Helper()
	room, clock := newTestRoom(t, rules)

	players := make([]*Player, len(names))
	for i, name := range names {
		p, err := room.AddPlayer("p"+name, name, "c"+name)
		require.NoError(t, err)
		players[i] = p
	}

	require.NoError(t, room.StartGame("host"))
	clock.Advance(rules.ReadingDuration + rules.ReadingLeadIn)
	require.Equal(t, PhaseSubmit, room.AdvanceOnExpiry())
	return room, clock, players
}

func TestRoom_AddPlayerValidation(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	rules.MaxPlayers = 2
	room, _ := newTestRoom(t, rules)

	p, err := room.AddPlayer("p1", "  alice ", "c1")
	require.NoError(t, err)
	assert.Equal(t, "ALICE", p.Name)
	assert.True(t, p.Connected)

	_, err = room.AddPlayer("p2", "Alice", "c2")
	assert.ErrorIs(t, err, ErrNameTaken)

	_, err = room.AddPlayer("p2", "   ", "c2")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = room.AddPlayer("p2", "bob", "c2")
	require.NoError(t, err)

	_, err = room.AddPlayer("p3", "carol", "c3")
	assert.ErrorIs(t, err, ErrRoomFull)

	assert.Equal(t, []PlayerInfo{
		{ID: "p1", Name: "ALICE", Connected: true},
		{ID: "p2", Name: "BOB", Connected: true},
	}, room.PlayerInfos())
}

func TestRoom_StartGame(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	room, _ := newTestRoom(t, rules)

	_, err := room.AddPlayer("p1", "alice", "c1")
	require.NoError(t, err)

	assert.ErrorIs(t, room.StartGame("c1"), ErrNotHost)
	assert.ErrorIs(t, room.StartGame("host"), ErrNotEnoughPlayers)

	_, err = room.AddPlayer("p2", "bob", "c2")
	require.NoError(t, err)

	require.NoError(t, room.StartGame("host"))
	assert.Equal(t, PhaseReading, room.Phase)
	assert.Equal(t, 0, room.QuestionIndex)
	assert.Equal(t, 1, room.Question.ID)
	assert.Equal(t, 11, room.Timer.Remaining(), "reading includes the start lead-in")

	assert.ErrorIs(t, room.StartGame("c1"), ErrNotHost, "host check comes first")
	assert.ErrorIs(t, room.StartGame("host"), ErrGameInProgress)
	_, err = room.AddPlayer("p3", "carol", "c3")
	assert.ErrorIs(t, err, ErrGameInProgress)
}

func TestRoom_StartGameCountsConnectedPlayers(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	rules.KeepDisconnected = true
	room, _ := newTestRoom(t, rules)

	_, err := room.AddPlayer("p1", "alice", "c1")
	require.NoError(t, err)
	_, err = room.AddPlayer("p2", "bob", "c2")
	require.NoError(t, err)

	removed, err := room.DisconnectPlayer("p2")
	require.NoError(t, err)
	require.False(t, removed)
	assert.Len(t, room.Players(), 2)

	assert.ErrorIs(t, room.StartGame("host"), ErrNotEnoughPlayers)
	assert.Equal(t, PhaseLobby, room.Phase)

	_, err = room.ReconnectPlayer("p2", "c2b")
	require.NoError(t, err)
	require.NoError(t, room.StartGame("host"))
	assert.Equal(t, PhaseReading, room.Phase)
}

func TestRoom_StartGameWithoutQuestions(t *testing.T) {
	t.Parallel()
	room := NewRoom("ABCD", "host", nil, DefaultRules(), nil, rand.New(rand.NewPCG(1, 1)))
	_, _ = room.AddPlayer("p1", "a", "c1")
	_, _ = room.AddPlayer("p2", "b", "c2")

	assert.ErrorIs(t, room.StartGame("host"), ErrNoQuestions)
}

func TestRoom_SubmitAnswer(t *testing.T) {
	t.Parallel()
	room, _, _ := startedRoom(t, DefaultRules(), "alice", "bob")

	assert.Equal(t, 30, room.Timer.Remaining())

	_, err := room.SubmitAnswer("ghost", "lie")
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, err = room.SubmitAnswer("palice", "   ")
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	_, err = room.SubmitAnswer("palice", " rock ")
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	advanced, err := room.SubmitAnswer("palice", "cheese")
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, "CHEESE", room.Answers["palice"])
	assert.Equal(t, 1, room.SubmittedCount())

	advanced, err = room.SubmitAnswer("palice", "basalt")
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Equal(t, "BASALT", room.Answers["palice"], "resubmitting overwrites")

	advanced, err = room.SubmitAnswer("pbob", "Basalt")
	require.NoError(t, err)
	assert.True(t, advanced, "last answer moves the room to voting")
	assert.Equal(t, PhaseVoting, room.Phase)
	assert.Equal(t, 22, room.Timer.Remaining(), "voting includes the ballot lead-in")

	ballot := room.Ballot()
	require.Len(t, ballot, 2)
	ids := []string{ballot[0].ID, ballot[1].ID}
	assert.ElementsMatch(t, []string{"palice,pbob", CorrectGroupID}, ids)

	assert.Equal(t, []BallotEntry{{ID: CorrectGroupID, Text: "ROCK"}}, room.BallotFor("palice"))
	assert.Len(t, room.BallotEntries(), 2)

	_, err = room.SubmitAnswer("palice", "late")
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestRoom_SubmitAnswerWrongPhaseBeforeTime(t *testing.T) {
	t.Parallel()
	room, _ := newTestRoom(t, DefaultRules())
	_, _ = room.AddPlayer("p1", "a", "c1")

	_, err := room.SubmitAnswer("p1", "lie")
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestRoom_SubmitAnswerAfterExpiry(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	room, clock, _ := startedRoom(t, rules, "alice", "bob")

	clock.Advance(rules.SubmitDuration)
	_, err := room.SubmitAnswer("palice", "lie")
	assert.ErrorIs(t, err, ErrTimeExpired)
	assert.Equal(t, PhaseSubmit, room.Phase, "only the timer loop moves an expired phase on")

	assert.Equal(t, PhaseVoting, room.AdvanceOnExpiry())
	assert.Len(t, room.Ballot(), 1, "nobody answered, only the truth is left")
}

func TestRoom_SubmitVote(t *testing.T) {
	t.Parallel()
	room, _, _ := startedRoom(t, DefaultRules(), "alice", "bob", "carol")

	for id, text := range map[string]string{"palice": "cheese", "pbob": "cheese", "pcarol": "dust"} {
		_, err := room.SubmitAnswer(id, text)
		require.NoError(t, err)
	}
	require.Equal(t, PhaseVoting, room.Phase)

	tests := []struct {
		name   string
		voter  string
		target string
		err    error
	}{
		{"own group by id", "palice", "palice,pbob", ErrSelfVote},
		{"own group by co-author id", "palice", "pbob", ErrSelfVote},
		{"own id", "pcarol", "pcarol", ErrSelfVote},
		{"unknown target", "palice", "nope", ErrTargetNotFound},
		{"unknown voter", "ghost", CorrectGroupID, ErrUnknownPlayer},
	}
	for _, tt := range tests {
		_, err := room.SubmitVote(tt.voter, tt.target)
		assert.ErrorIs(t, err, tt.err, tt.name)
	}

	advanced, err := room.SubmitVote("palice", "pcarol")
	require.NoError(t, err)
	assert.False(t, advanced)

	_, err = room.SubmitVote("palice", CorrectGroupID)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	_, err = room.SubmitVote("pbob", CorrectGroupID)
	require.NoError(t, err)
	assert.Equal(t, 2, room.VoteCount())

	advanced, err = room.SubmitVote("pcarol", "palice,pbob")
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, PhaseResults, room.Phase)
	assert.Equal(t, "pcarol", room.Votes["palice"])

	result, err := room.ScoreRound()
	require.NoError(t, err)
	assert.Equal(t, 250, result.Scores.Deltas["palice"])
	assert.Equal(t, 1250, result.Scores.Deltas["pbob"])
	assert.Equal(t, 500, result.Scores.Deltas["pcarol"])
	assert.Equal(t, []string{"palice", "pbob", "pcarol"}, result.Order)
	assert.False(t, result.Final)

	again, err := room.ScoreRound()
	require.NoError(t, err)
	assert.Same(t, result, again, "a round is scored once")

	p, err := room.Player("pbob")
	require.NoError(t, err)
	assert.Equal(t, 1250, p.Score)

	standings := room.Standings()
	assert.Equal(t, "pbob", standings[0].PlayerID)
	assert.Equal(t, "pcarol", standings[1].PlayerID)
	assert.Equal(t, "palice", standings[2].PlayerID)
}

func TestRoom_SharedLieSplitsFoolPoints(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	room, clock, _ := startedRoom(t, rules, "1", "2", "3")

	for id, text := range map[string]string{"p1": "42", "p2": " 42 ", "p3": "99"} {
		_, err := room.SubmitAnswer(id, text)
		require.NoError(t, err)
	}
	require.Equal(t, PhaseVoting, room.Phase)

	var texts []string
	for _, g := range room.Ballot() {
		texts = append(texts, g.Text)
	}
	assert.ElementsMatch(t, []string{"42", "99", "ROCK"}, texts)

	_, err := room.SubmitVote("p3", "p1,p2")
	require.NoError(t, err)
	_, err = room.SubmitVote("p1", CorrectGroupID)
	require.NoError(t, err)

	clock.Advance(rules.VotingDuration + rules.VotingLeadIn)
	require.Equal(t, PhaseResults, room.AdvanceOnExpiry())

	result, err := room.ScoreRound()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 1250, "p2": 250, "p3": 0}, result.Scores.Deltas)
	assert.Equal(t, 1, result.Scores.VoteCounts["p1,p2"])
	assert.Equal(t, "", result.Scores.Votes["p2"])
}

func TestRoom_VotingExpiryRecordsAbstentions(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	room, clock, _ := startedRoom(t, rules, "alice", "bob")

	_, err := room.SubmitAnswer("palice", "cheese")
	require.NoError(t, err)
	_, err = room.SubmitAnswer("pbob", "dust")
	require.NoError(t, err)

	_, err = room.SubmitVote("palice", "pbob")
	require.NoError(t, err)

	assert.Equal(t, Phase(""), room.AdvanceOnExpiry(), "nothing is due before expiry")

	clock.Advance(rules.VotingDuration + rules.VotingLeadIn)
	assert.Equal(t, PhaseResults, room.AdvanceOnExpiry())

	assert.Equal(t, "", room.Votes["pbob"])
	assert.Equal(t, 1, room.VoteCount())
	assert.True(t, room.Timer.Paused())

	result, err := room.ScoreRound()
	require.NoError(t, err)
	assert.Equal(t, 500, result.Scores.Deltas["pbob"])
	assert.Equal(t, 0, result.Scores.Deltas["palice"])
}

func TestRoom_DisconnectCompletesPhase(t *testing.T) {
	t.Parallel()
	room, _, _ := startedRoom(t, DefaultRules(), "alice", "bob")

	_, err := room.SubmitAnswer("palice", "cheese")
	require.NoError(t, err)

	removed, err := room.DisconnectPlayer("pbob")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, room.Players(), 1)

	assert.Equal(t, PhaseVoting, room.Reconcile())
	assert.Equal(t, Phase(""), room.Reconcile(), "reconcile runs a transition once")
}

func TestRoom_KeepDisconnected(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	rules.KeepDisconnected = true
	room, _, _ := startedRoom(t, rules, "alice", "bob")

	removed, err := room.DisconnectPlayer("pbob")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, room.ConnectedCount())

	_, err = room.PlayerByConn("cbob")
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	advanced, err := room.SubmitAnswer("palice", "cheese")
	require.NoError(t, err)
	assert.True(t, advanced, "disconnected players are not waited for")

	p, err := room.ReconnectPlayer("pbob", "cbob2")
	require.NoError(t, err)
	assert.True(t, p.Connected)
	assert.Equal(t, "cbob2", p.ConnID)

	_, err = room.ReconnectPlayer("pbob", "cbob3")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestRoom_TransferHost(t *testing.T) {
	t.Parallel()
	room, _ := newTestRoom(t, DefaultRules())
	_, _ = room.AddPlayer("p1", "alice", "c1")
	_, _ = room.AddPlayer("p2", "bob", "c2")

	assert.Equal(t, "c1", room.TransferHost())
	assert.True(t, room.IsHost("c1"))

	_, _ = room.DisconnectPlayer("p1")
	assert.Equal(t, "c2", room.TransferHost())

	_, _ = room.DisconnectPlayer("p2")
	assert.Equal(t, "", room.TransferHost())
	assert.False(t, room.IsHost(""))
}

func TestRoom_NextQuestionAndGameOver(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	room, clock, _ := startedRoom(t, rules, "alice", "bob")

	advanced, err := room.NextQuestion("host")
	require.NoError(t, err)
	assert.False(t, advanced, "next outside results is ignored")

	finishRound := func() {
		clock.Advance(rules.SubmitDuration)
		require.Equal(t, PhaseVoting, room.AdvanceOnExpiry())
		clock.Advance(rules.VotingDuration + rules.VotingLeadIn)
		require.Equal(t, PhaseResults, room.AdvanceOnExpiry())
	}

	finishRound()
	_, err = room.NextQuestion("calice")
	assert.ErrorIs(t, err, ErrNotHost)

	advanced, err = room.NextQuestion("host")
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, PhaseReading, room.Phase)
	assert.Equal(t, 1, room.QuestionIndex)
	assert.Equal(t, 10, room.Timer.Remaining(), "only the first question has a lead-in")
	assert.True(t, room.IsFinalQuestion())
	assert.Empty(t, room.Answers)
	assert.Empty(t, room.Votes)

	clock.Advance(rules.ReadingDuration)
	require.Equal(t, PhaseSubmit, room.AdvanceOnExpiry())
	finishRound()

	result, err := room.ScoreRound()
	require.NoError(t, err)
	assert.True(t, result.Final)

	advanced, err = room.NextQuestion("host")
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, PhaseGameOver, room.Phase)
	assert.Equal(t, 0, room.Timer.Remaining())
}

func TestRoom_EndGame(t *testing.T) {
	t.Parallel()
	room, _ := newTestRoom(t, DefaultRules())
	assert.False(t, room.EndGame(), "only from results")
	assert.Equal(t, PhaseLobby, room.Phase)
}

func TestRoom_TransitionsFollowPhaseOrder(t *testing.T) {
	t.Parallel()
	room, _, _ := startedRoom(t, DefaultRules(), "alice", "bob")

	assert.Equal(t, PhaseSubmit, room.LoadQuestion(1), "submit cannot jump to a new question")
	assert.Equal(t, 0, room.QuestionIndex)
	assert.False(t, room.BeginSubmit())
	assert.False(t, room.EndVoting())
	assert.Equal(t, PhaseSubmit, room.Phase)

	require.True(t, room.BeginVoting())
	assert.False(t, room.BeginVoting())
	assert.Equal(t, PhaseVoting, room.LoadQuestion(len(testQuestions())), "voting cannot jump to game over")

	require.True(t, room.EndVoting())
	assert.Equal(t, PhaseReading, room.LoadQuestion(1))
	assert.Equal(t, 1, room.QuestionIndex)
}

func TestPhase_Transitions(t *testing.T) {
	t.Parallel()

	assert.True(t, PhaseLobby.CanTransitionTo(PhaseReading))
	assert.True(t, PhaseReading.CanTransitionTo(PhaseSubmit))
	assert.True(t, PhaseSubmit.CanTransitionTo(PhaseVoting))
	assert.True(t, PhaseVoting.CanTransitionTo(PhaseResults))
	assert.True(t, PhaseResults.CanTransitionTo(PhaseReading))
	assert.True(t, PhaseResults.CanTransitionTo(PhaseGameOver))

	assert.False(t, PhaseSubmit.CanTransitionTo(PhaseResults))
	assert.False(t, PhaseGameOver.CanTransitionTo(PhaseLobby))

	assert.True(t, PhaseVoting.Timed())
	assert.False(t, PhaseResults.Timed())
}

func TestRules_Defaults(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	assert.Equal(t, 30*time.Second, rules.SubmitDuration)
	assert.Equal(t, 1000, rules.Scoring.CorrectVotePoints)
}
