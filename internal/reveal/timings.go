package reveal

import "time"

// Timings are the holds between reveal steps, matched to the client animations
type Timings struct {
	PhasePause          time.Duration `json:"phasePause"`
	StartPause          time.Duration `json:"startPause"`
	AnswerHighlight     time.Duration `json:"answerHighlight"`
	Suspense            time.Duration `json:"suspense"`
	LieReveal           time.Duration `json:"lieReveal"`
	VoterStagger        time.Duration `json:"voterStagger"`
	VoterSettle         time.Duration `json:"voterSettle"`
	AuthorReveal        time.Duration `json:"authorReveal"`
	ScoreUpdate         time.Duration `json:"scoreUpdate"`
	Reaction            time.Duration `json:"reaction"`
	Transition          time.Duration `json:"transition"`
	CorrectHighlight    time.Duration `json:"correctHighlight"`
	TruthReveal         time.Duration `json:"truthReveal"`
	CorrectVoterStagger time.Duration `json:"correctVoterStagger"`
	CorrectVoterSettle  time.Duration `json:"correctVoterSettle"`
	Explanation         time.Duration `json:"explanation"`
}

// DefaultTimings returns the stock animation timings
func DefaultTimings() Timings {
	return Timings{
		PhasePause:          200 * time.Millisecond,
		StartPause:          500 * time.Millisecond,
		AnswerHighlight:     500 * time.Millisecond,
		Suspense:            1000 * time.Millisecond,
		LieReveal:           1500 * time.Millisecond,
		VoterStagger:        1000 * time.Millisecond,
		VoterSettle:         500 * time.Millisecond,
		AuthorReveal:        1500 * time.Millisecond,
		ScoreUpdate:         1500 * time.Millisecond,
		Reaction:            2000 * time.Millisecond,
		Transition:          1000 * time.Millisecond,
		CorrectHighlight:    1000 * time.Millisecond,
		TruthReveal:         1500 * time.Millisecond,
		CorrectVoterStagger: 2000 * time.Millisecond,
		CorrectVoterSettle:  500 * time.Millisecond,
		Explanation:         4000 * time.Millisecond,
	}
}
