package reveal

import (
	"math/rand/v2"
	"time"

	"fibtrivia/internal/domain"
)

// GroupReveal is everything needed to reveal one answer group
type GroupReveal struct {
	Group        domain.AnswerGroup
	Voters       []domain.PlayerRef
	Authors      []domain.AuthorCredit
	PointsEarned int
	NewScores    map[string]int
}

// Plan is one round's reveal: the board, the voted lies in reveal order, the
// truth, and the cached scoreboard
type Plan struct {
	SequenceID     int64
	QuestionIndex  int
	TotalQuestions int
	Board          []domain.BallotEntry
	Fakes          []GroupReveal
	Truth          GroupReveal
	CorrectPoints  int
	CorrectAnswer  string
	Explanation    string
	Standings      []domain.PlayerScore
	Final          bool
	Result         *domain.RoundResult
}

// BuildPlan turns a scored round into a reveal plan. Lies nobody voted for
// stay on the board but are not revealed; the voted lies are shuffled and
// the truth always comes last.
func BuildPlan(seq int64, result *domain.RoundResult, correctPoints int, rng *rand.Rand) *Plan {
	scores := result.Scores

	board := make([]domain.BallotEntry, len(result.Ballot))
	for i, g := range result.Ballot {
		board[i] = g.Entry()
	}
	domain.Shuffle(rng, board)

	plan := &Plan{
		SequenceID:     seq,
		QuestionIndex:  result.QuestionIndex,
		TotalQuestions: result.TotalQuestions,
		Board:          board,
		CorrectPoints:  correctPoints,
		CorrectAnswer:  result.Question.Answer,
		Explanation:    result.Question.Explanation,
		Standings:      result.Standings,
		Final:          result.Final,
		Result:         result,
	}

	for _, g := range result.Ballot {
		reveal := GroupReveal{
			Group:        g,
			Voters:       votersOf(g.ID, result),
			PointsEarned: scores.Earned[g.ID],
			NewScores:    make(map[string]int),
		}

		if g.IsCorrect {
			for _, v := range reveal.Voters {
				reveal.NewScores[v.ID] = scores.Totals[v.ID]
			}
			plan.Truth = reveal
			continue
		}
		if len(reveal.Voters) == 0 {
			continue
		}

		for _, id := range g.MemberIDs {
			points, ok := scores.Credits[g.ID][id]
			if !ok {
				continue
			}
			reveal.Authors = append(reveal.Authors, domain.AuthorCredit{
				PlayerID: id,
				Name:     result.Names[id],
				Points:   points,
			})
			reveal.NewScores[id] = scores.Totals[id]
		}
		plan.Fakes = append(plan.Fakes, reveal)
	}

	domain.Shuffle(rng, plan.Fakes)
	return plan
}

// votersOf lists the players who voted for groupID, in join order
func votersOf(groupID string, result *domain.RoundResult) []domain.PlayerRef {
	voters := make([]domain.PlayerRef, 0)
	for _, id := range result.Order {
		if result.Scores.Votes[id] == groupID {
			voters = append(voters, domain.PlayerRef{ID: id, Name: result.Names[id]})
		}
	}
	return voters
}

// Step is one broadcast followed by a hold. A step without an event is a pure pause.
type Step struct {
	Event domain.Payload
	Hold  time.Duration
}

// Steps expands a plan into the ordered broadcast script
func Steps(p *Plan, t Timings) []Step {
	tag := domain.Tag(p.SequenceID)
	steps := []Step{
		{Hold: t.PhasePause},
		{Event: domain.StartSequencePayload{
			SequenceTag:    tag,
			Answers:        p.Board,
			QuestionIndex:  p.QuestionIndex,
			TotalQuestions: p.TotalQuestions,
		}, Hold: t.StartPause},
	}

	for _, fake := range p.Fakes {
		id := fake.Group.ID
		steps = append(steps,
			Step{Event: domain.HighlightAnswerPayload{SequenceTag: tag, AnswerID: id}, Hold: t.AnswerHighlight + t.Suspense},
			Step{Event: domain.RevealLiePayload{
				SequenceTag:  tag,
				AnswerID:     id,
				Text:         fake.Group.Text,
				Voters:       fake.Voters,
				PointsEarned: fake.PointsEarned,
			}, Hold: t.LieReveal},
			Step{Event: domain.ShowVotersPayload{SequenceTag: tag, AnswerID: id, Voters: fake.Voters},
				Hold: t.VoterStagger*time.Duration(len(fake.Voters)) + t.VoterSettle},
			Step{Event: domain.RevealAuthorPayload{
				SequenceTag: tag,
				AnswerID:    id,
				Authors:     fake.Authors,
				IsSplit:     len(fake.Authors) > 1,
			}, Hold: t.AuthorReveal},
		)
		for _, a := range fake.Authors {
			steps = append(steps, Step{Event: domain.UpdateScorePayload{
				SequenceTag: tag,
				PlayerID:    a.PlayerID,
				Name:        a.Name,
				Points:      a.Points,
				NewScore:    fake.NewScores[a.PlayerID],
			}, Hold: t.ScoreUpdate})
		}
		steps = append(steps,
			Step{Hold: t.Reaction},
			Step{Event: domain.TransitionNextPayload{SequenceTag: tag}, Hold: t.Transition},
		)
	}

	truth := p.Truth
	steps = append(steps,
		Step{Event: domain.HighlightCorrectAnswerPayload{SequenceTag: tag, AnswerID: truth.Group.ID}, Hold: t.CorrectHighlight + t.Suspense},
		Step{Event: domain.RevealTruthPayload{SequenceTag: tag, AnswerID: truth.Group.ID, Text: truth.Group.Text}, Hold: t.TruthReveal},
		Step{Event: domain.ShowCorrectVotersPayload{SequenceTag: tag, Voters: truth.Voters, Points: p.CorrectPoints},
			Hold: t.CorrectVoterStagger*time.Duration(len(truth.Voters)) + t.CorrectVoterSettle},
	)
	for _, v := range truth.Voters {
		steps = append(steps, Step{Event: domain.UpdateScorePayload{
			SequenceTag: tag,
			PlayerID:    v.ID,
			Name:        v.Name,
			Points:      p.CorrectPoints,
			NewScore:    truth.NewScores[v.ID],
		}, Hold: t.ScoreUpdate})
	}

	return append(steps,
		Step{Event: domain.ShowExplanationPayload{
			SequenceTag:   tag,
			CorrectAnswer: p.CorrectAnswer,
			Explanation:   p.Explanation,
		}, Hold: t.Explanation},
		Step{Event: domain.ShowLeaderboardButtonPayload{SequenceTag: tag, IsFinal: p.Final}},
		Step{Event: domain.CompletePayload{SequenceTag: tag}},
	)
}

// Fallback packs the whole round into one event for when the reveal fails
func Fallback(seq int64, r *domain.RoundResult) domain.ResultsReadyPayload {
	payload := domain.ResultsReadyPayload{
		SequenceID: seq,
		Answers:    r.Ballot,
		Standings:  r.Standings,
		IsFinal:    r.Final,
	}
	if r.Question != nil {
		payload.CorrectAnswer = r.Question.Answer
		payload.Explanation = r.Question.Explanation
	}
	if r.Scores != nil {
		payload.Votes = r.Scores.Votes
		payload.VoteCounts = r.Scores.VoteCounts
		payload.RoundScores = r.Scores.Deltas
	}
	return payload
}
