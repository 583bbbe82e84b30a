package domain

import (
	"math/rand/v2"
	"strings"
)

// CorrectGroupID is the vote target that stands for the true answer
const CorrectGroupID = "correct"

// Submission is one player's lie for the current question
type Submission struct {
	PlayerID string
	Text     string
}

// AnswerGroup is the set of players who wrote the same lie, or the truth
type AnswerGroup struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	MemberIDs []string `json:"playerIds"`
	IsCorrect bool     `json:"isCorrect"`
}

// Has reports whether playerID authored this group
func (g AnswerGroup) Has(playerID string) bool {
	for _, id := range g.MemberIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

// Entry hides authorship and correctness for the voting ballot
func (g AnswerGroup) Entry() BallotEntry {
	return BallotEntry{ID: g.ID, Text: g.Text}
}

// BallotEntry is one selectable answer as shown to voters
type BallotEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// GroupID builds the vote target id of a group: the member ids joined by commas
func GroupID(memberIDs []string) string {
	return strings.Join(memberIDs, ",")
}

// NormalizeAnswer folds case and whitespace so equal answers compare equal
func NormalizeAnswer(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// SanitizeAnswer trims and truncates an answer to maxLen runes
func SanitizeAnswer(raw string, maxLen int) string {
	return truncate(strings.TrimSpace(raw), maxLen)
}

// ValidateAnswer rejects a lie that is really the truth
func ValidateAnswer(text, correct string) error {
	if NormalizeAnswer(text) == NormalizeAnswer(correct) {
		return ErrInvalidAnswer
	}
	return nil
}

// GroupAnswers merges identical submissions into groups, in order of first
// appearance, and appends the correct answer as its own group. Submissions
// equal to the correct answer are ignored.
func GroupAnswers(submissions []Submission, correct string) []AnswerGroup {
	truth := NormalizeAnswer(correct)
	index := make(map[string]int)
	groups := make([]AnswerGroup, 0, len(submissions)+1)

	for _, sub := range submissions {
		key := NormalizeAnswer(sub.Text)
		if key == truth {
			continue
		}
		if i, ok := index[key]; ok {
			groups[i].MemberIDs = append(groups[i].MemberIDs, sub.PlayerID)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, AnswerGroup{
			Text:      sub.Text,
			MemberIDs: []string{sub.PlayerID},
		})
	}

	for i := range groups {
		groups[i].ID = GroupID(groups[i].MemberIDs)
	}

	return append(groups, AnswerGroup{
		ID:        CorrectGroupID,
		Text:      correct,
		MemberIDs: []string{},
		IsCorrect: true,
	})
}

// Shuffle permutes s in place with Fisher-Yates
func Shuffle[T any](rng *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
