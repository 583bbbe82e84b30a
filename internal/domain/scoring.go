package domain

// ScoreRules holds the point values of a round
type ScoreRules struct {
	CorrectVotePoints int `json:"correctVotePoints"`
	FoolPlayerPoints  int `json:"foolPlayerPoints"`
}

// DefaultScoreRules returns the standard point values
func DefaultScoreRules() ScoreRules {
	return ScoreRules{
		CorrectVotePoints: 1000,
		FoolPlayerPoints:  500,
	}
}

// RoundScores is the outcome of scoring one round
type RoundScores struct {
	Deltas     map[string]int            `json:"roundScores"`
	Totals     map[string]int            `json:"totalScores"`
	Votes      map[string]string         `json:"votes"`
	VoteCounts map[string]int            `json:"voteCounts"`
	Earned     map[string]int            `json:"groupPoints"`
	Credits    map[string]map[string]int `json:"-"`
}

// SplitPoints divides points among n members. The remainder goes one point
// at a time to the earliest members, so the parts always sum to points.
func SplitPoints(points, n int) []int {
	if n <= 0 {
		return nil
	}
	parts := make([]int, n)
	share, rest := points/n, points%n
	for i := range parts {
		parts[i] = share
		if i < rest {
			parts[i]++
		}
	}
	return parts
}

// ComputeRoundScores scores votes against the ballot without mutating players.
//
// A vote for the correct group earns the voter CorrectVotePoints. A vote for a
// lie earns that group's authors FoolPlayerPoints in total, split among the
// members still present. Empty targets are abstentions.
func ComputeRoundScores(players []*Player, ballot []AnswerGroup, votes map[string]string, rules ScoreRules) *RoundScores {
	present := make(map[string]*Player, len(players))
	for _, p := range players {
		present[p.ID] = p
	}

	groups := make(map[string]AnswerGroup, len(ballot))
	for _, g := range ballot {
		groups[g.ID] = g
	}

	rs := &RoundScores{
		Deltas:     make(map[string]int, len(players)),
		Totals:     make(map[string]int, len(players)),
		Votes:      make(map[string]string, len(votes)),
		VoteCounts: make(map[string]int, len(ballot)),
		Earned:     make(map[string]int),
		Credits:    make(map[string]map[string]int),
	}
	for _, p := range players {
		rs.Deltas[p.ID] = 0
	}

	// Iterate in join order so remainder distribution is deterministic
	for _, voter := range players {
		target, ok := votes[voter.ID]
		if !ok {
			continue
		}
		rs.Votes[voter.ID] = target
		if target == "" {
			continue
		}

		group, ok := groups[target]
		if !ok {
			continue
		}
		rs.VoteCounts[group.ID]++

		if group.IsCorrect {
			rs.Deltas[voter.ID] += rules.CorrectVotePoints
			continue
		}

		authors := make([]string, 0, len(group.MemberIDs))
		for _, id := range group.MemberIDs {
			if _, ok := present[id]; ok {
				authors = append(authors, id)
			}
		}
		parts := SplitPoints(rules.FoolPlayerPoints, len(authors))
		credits := rs.Credits[group.ID]
		if credits == nil {
			credits = make(map[string]int, len(authors))
			rs.Credits[group.ID] = credits
		}
		for i, id := range authors {
			rs.Deltas[id] += parts[i]
			credits[id] += parts[i]
			rs.Earned[group.ID] += parts[i]
		}
	}

	for _, p := range players {
		rs.Totals[p.ID] = p.Score + rs.Deltas[p.ID]
	}

	return rs
}
