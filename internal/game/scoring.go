package game

import "slices"

// ScoreRound returns players with the round's points added: one for picking
// the correct answer, and one per other voter fooled by the player's bluff.
func ScoreRound(players []Player, answers []Answer, votes map[string]string) []Player {
	byID := make(map[string]Answer, len(answers))
	for _, a := range answers {
		byID[a.ID] = a
	}

	points := make(map[string]int, len(players))
	for voter, aid := range votes {
		a, ok := byID[aid]
		if !ok {
			continue
		}
		if a.IsCorrect {
			points[voter]++
			continue
		}
		if a.AuthorID != voter {
			points[a.AuthorID]++
		}
	}

	out := slices.Clone(players)
	for i := range out {
		out[i].Score += points[out[i].ID]
	}
	return out
}
