package game

// ComputeRoundScores returns points per player for one round. A
// normalized answer given by exactly one player earns
// UniqueAnswerPoints, an answer shared by two or more players earns
// SharedAnswerPoints each, and blanks earn nothing. Every player who
// has an answer set for the round appears in the result, even at zero.
func ComputeRoundScores(round *Round, settings Settings) map[string]int {
	scores := make(map[string]int, len(round.Answers))
	for playerID := range round.Answers {
		scores[playerID] = 0
	}

	for _, category := range round.Categories {
		groups := make(map[string][]string) // normalized answer → playerIDs
		for playerID, pa := range round.Answers {
			norm := pa.Normalized[category]
			if norm == "" {
				continue
			}
			groups[norm] = append(groups[norm], playerID)
		}
		for _, playerIDs := range groups {
			points := settings.SharedAnswerPoints
			if len(playerIDs) == 1 {
				points = settings.UniqueAnswerPoints
			}
			for _, playerID := range playerIDs {
				scores[playerID] += points
			}
		}
	}

	return scores
}
