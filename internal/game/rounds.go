package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// NormalizeAnswer is the canonical form used for grouping and scoring.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type LeaderboardEntry struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	TotalScore  int    `json:"total_score"`
	RoundScore  int    `json:"round_score"`
}

type RoundScoreResult struct {
	RoundNumber int                `json:"round_number"`
	RoundScores map[string]int     `json:"round_scores"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type PlayerRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type AnswerEntry struct {
	RawAnswer        string      `json:"raw_answer"`
	NormalizedAnswer string      `json:"normalized_answer"`
	Players          []PlayerRef `json:"players"`
	IsShared         bool        `json:"is_shared"`
	IsUnique         bool        `json:"is_unique"`
	IsDisputed       bool        `json:"is_disputed"`
	DisputeID        string      `json:"dispute_id,omitempty"`
}

type CategoryReview struct {
	Category string        `json:"category"`
	Entries  []AnswerEntry `json:"entries"`
}

type RoundReviewResult struct {
	RoundNumber int              `json:"round_number"`
	Letter      string           `json:"letter"`
	Categories  []CategoryReview `json:"categories"`
}

// SubmitAnswers stores a player's answers for the current round,
// overwriting any earlier submission. Rejected once the round is
// locked.
func (m *Manager) SubmitAnswers(ctx context.Context, gameID, playerID string, answers map[string]string) (*Game, error) {
	return m.update(ctx, gameID, func(g *Game) error {
		if g.Status != GameStatusInRound {
			return fmt.Errorf("game is not in a round: %w", ErrInvalidState)
		}
		round, ok := g.CurrentRound()
		if !ok {
			return fmt.Errorf("no active round: %w", ErrInvalidState)
		}
		if roundStatusOrder[round.Status] >= roundStatusOrder[RoundStatusLocked] {
			return fmt.Errorf("round is locked: %w", ErrInvalidState)
		}

		raw := make(map[string]string, len(answers))
		normalized := make(map[string]string, len(answers))
		for category, answer := range answers {
			raw[category] = answer
			normalized[category] = NormalizeAnswer(answer)
		}
		round.Answers[playerID] = PlayerAnswers{
			PlayerID:   playerID,
			Raw:        raw,
			Normalized: normalized,
			Submitted:  true,
		}
		return nil
	})
}

// EndRound locks the current round. Safe to call twice; the second
// call (and any late scheduled callback) is a no-op.
func (m *Manager) EndRound(ctx context.Context, gameID string) (*Game, bool, error) {
	locked := false
	g, err := m.update(ctx, gameID, func(g *Game) error {
		round, ok := g.CurrentRound()
		if !ok {
			return fmt.Errorf("no active round: %w", ErrInvalidState)
		}
		if roundStatusOrder[round.Status] >= roundStatusOrder[RoundStatusLocked] {
			return errUnchanged
		}
		round.Status = RoundStatusLocked
		if round.EndedAt == nil {
			ended := m.now().UTC()
			round.EndedAt = &ended
		}
		locked = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return g, locked, nil
}

// ScoreRound computes and stores scores for the locked current round,
// folds them into player totals and produces the leaderboard. Rejected
// while answering is still open; a second call for an already scored
// round returns the stored result without adding points again.
func (m *Manager) ScoreRound(ctx context.Context, gameID string) (*RoundScoreResult, error) {
	var result *RoundScoreResult
	_, err := m.update(ctx, gameID, func(g *Game) error {
		round, ok := g.CurrentRound()
		if !ok {
			return fmt.Errorf("no active round: %w", ErrInvalidState)
		}
		if roundStatusOrder[round.Status] < roundStatusOrder[RoundStatusLocked] {
			return fmt.Errorf("round is not locked: %w", ErrInvalidState)
		}
		scored := roundStatusOrder[round.Status] < roundStatusOrder[RoundStatusResults]
		if scored {
			round.RoundScores = ComputeRoundScores(round, g.Settings)
			for i := range g.Players {
				g.Players[i].TotalScore += round.RoundScores[g.Players[i].ID]
			}
			round.advanceStatus(RoundStatusResults)
			g.Status = GameStatusRoundResults
		}
		result = &RoundScoreResult{
			RoundNumber: round.RoundNumber,
			RoundScores: round.RoundScores,
			Leaderboard: BuildLeaderboard(g, round.RoundScores),
		}
		if !scored {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// BuildLeaderboard sorts players by total score descending; ties keep
// join order.
func BuildLeaderboard(g *Game, roundScores map[string]int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(g.Players))
	for _, p := range g.Players {
		entries = append(entries, LeaderboardEntry{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			TotalScore:  p.TotalScore,
			RoundScore:  roundScores[p.ID],
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	return entries
}

// GetCurrentRound returns the active round without mutating state.
func (m *Manager) GetCurrentRound(ctx context.Context, gameID string) (*Round, error) {
	g, err := m.repo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	round, ok := g.CurrentRound()
	if !ok {
		return nil, fmt.Errorf("no active round: %w", ErrInvalidState)
	}
	return round, nil
}

// GetRoundResults groups submitted answers per category by normalized
// value. Read-only.
func (m *Manager) GetRoundResults(ctx context.Context, gameID string, roundNumber int) (*RoundReviewResult, error) {
	g, err := m.repo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	round, ok := g.RoundByNumber(roundNumber)
	if !ok {
		return nil, fmt.Errorf("round %d: %w", roundNumber, ErrNotFound)
	}

	names := make(map[string]string, len(g.Players))
	for _, p := range g.Players {
		names[p.ID] = p.DisplayName
	}
	disputed := make(map[string]bool, len(round.Disputes))
	for _, d := range round.Disputes {
		disputed[d.ID] = true
	}

	result := &RoundReviewResult{
		RoundNumber: round.RoundNumber,
		Letter:      round.Letter,
		Categories:  make([]CategoryReview, 0, len(round.Categories)),
	}
	for _, category := range round.Categories {
		groups := answerGroups(g, round, category)
		entries := make([]AnswerEntry, 0, len(groups))
		for _, grp := range groups {
			disputeID := DisputeID(category, grp.normalized)
			players := make([]PlayerRef, 0, len(grp.playerIDs))
			for _, id := range grp.playerIDs {
				name := names[id]
				if name == "" {
					name = id
				}
				players = append(players, PlayerRef{ID: id, DisplayName: name})
			}
			entry := AnswerEntry{
				RawAnswer:        grp.raw,
				NormalizedAnswer: grp.normalized,
				Players:          players,
				IsShared:         len(grp.playerIDs) > 1,
				IsUnique:         len(grp.playerIDs) == 1,
				IsDisputed:       disputed[disputeID],
			}
			if entry.IsDisputed {
				entry.DisputeID = disputeID
			}
			entries = append(entries, entry)
		}
		result.Categories = append(result.Categories, CategoryReview{Category: category, Entries: entries})
	}
	return result, nil
}

type answerGroup struct {
	normalized string
	raw        string
	playerIDs  []string
}

// answerGroups returns non-blank answers for one category, grouped by
// normalized value, in first-contributor join order. The raw answer
// shown for a group comes from its first contributor.
func answerGroups(g *Game, round *Round, category string) []answerGroup {
	var groups []answerGroup
	index := make(map[string]int)
	for _, p := range g.Players {
		pa, ok := round.Answers[p.ID]
		if !ok {
			continue
		}
		norm := pa.Normalized[category]
		if norm == "" {
			continue
		}
		if i, ok := index[norm]; ok {
			groups[i].playerIDs = append(groups[i].playerIDs, p.ID)
			continue
		}
		raw := pa.Raw[category]
		if raw == "" {
			raw = norm
		}
		index[norm] = len(groups)
		groups = append(groups, answerGroup{normalized: norm, raw: raw, playerIDs: []string{p.ID}})
	}
	return groups
}

// LikeAnswer records the caller's best-answer pick for one category.
// Last write wins per voter.
func (m *Manager) LikeAnswer(ctx context.Context, gameID string, roundNumber int, playerID, category, normalizedAnswer string) (*Game, error) {
	return m.update(ctx, gameID, func(g *Game) error {
		round, ok := g.RoundByNumber(roundNumber)
		if !ok {
			return fmt.Errorf("round %d: %w", roundNumber, ErrNotFound)
		}
		if round.CategoryLikes == nil {
			round.CategoryLikes = make(map[string]map[string]string)
		}
		if round.CategoryLikes[category] == nil {
			round.CategoryLikes[category] = make(map[string]string)
		}
		round.CategoryLikes[category][playerID] = normalizedAnswer
		return nil
	})
}

// AdvanceReviewResult reports what changed when the host moved review
// past one category.
type AdvanceReviewResult struct {
	CategoryIndex int       `json:"category_index"`
	Resolved      []Dispute `json:"resolved"`
	ReviewDone    bool      `json:"review_done"`
}

// AdvanceReview is the host-driven review walk: force-resolve whatever
// disputes are still pending in the current category, then either move
// to the next category or close review and open best-answer voting.
func (m *Manager) AdvanceReview(ctx context.Context, gameID, playerID string, categoryIndex int) (*Game, *AdvanceReviewResult, error) {
	var result *AdvanceReviewResult
	g, err := m.update(ctx, gameID, func(g *Game) error {
		if err := m.requireHost(g, playerID); err != nil {
			return err
		}
		round, ok := g.CurrentRound()
		if !ok {
			return fmt.Errorf("no active round: %w", ErrInvalidState)
		}
		if categoryIndex < 0 || categoryIndex >= len(round.Categories) {
			return fmt.Errorf("category index %d: %w", categoryIndex, ErrNotFound)
		}

		category := round.Categories[categoryIndex]
		resolved := resolvePendingForCategory(round, category)

		result = &AdvanceReviewResult{
			CategoryIndex: categoryIndex,
			Resolved:      resolved,
			ReviewDone:    categoryIndex == len(round.Categories)-1,
		}
		if result.ReviewDone {
			g.Status = GameStatusBestAnswerVoting
			round.advanceStatus(RoundStatusBestAnswerVoting)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, result, nil
}

// BestAnswerWinner is one category's most-liked answer and the player
// awarded the bonus for it.
type BestAnswerWinner struct {
	Category         string `json:"category"`
	NormalizedAnswer string `json:"normalized_answer"`
	PlayerID         string `json:"player_id"`
	Likes            int    `json:"likes"`
}

// FinishBestAnswerVoting tallies category likes, awards the bonus to
// each category winner and moves the game to the leaderboard.
func (m *Manager) FinishBestAnswerVoting(ctx context.Context, gameID, playerID string) (*Game, []BestAnswerWinner, error) {
	var winners []BestAnswerWinner
	g, err := m.update(ctx, gameID, func(g *Game) error {
		if err := m.requireHost(g, playerID); err != nil {
			return err
		}
		if g.Status != GameStatusBestAnswerVoting {
			return fmt.Errorf("best-answer voting is not open: %w", ErrInvalidState)
		}
		round, ok := g.CurrentRound()
		if !ok {
			return fmt.Errorf("no active round: %w", ErrInvalidState)
		}

		winners = tallyBestAnswers(g, round)
		for _, w := range winners {
			if p, ok := g.FindPlayer(w.PlayerID); ok {
				p.TotalScore += g.Settings.BestAnswerBonusPoints
				p.BestAnswerVotes++
			}
		}
		g.Status = GameStatusLeaderboard
		round.advanceStatus(RoundStatusComplete)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return g, winners, nil
}

// tallyBestAnswers picks each category's most-liked answer; ties go to
// the answer appearing first in review order, and the award goes to
// that group's first contributor.
func tallyBestAnswers(g *Game, round *Round) []BestAnswerWinner {
	var winners []BestAnswerWinner
	for _, category := range round.Categories {
		likes := round.CategoryLikes[category]
		if len(likes) == 0 {
			continue
		}
		counts := make(map[string]int, len(likes))
		for _, answer := range likes {
			counts[answer]++
		}

		var best answerGroup
		bestLikes := 0
		for _, grp := range answerGroups(g, round, category) {
			if n := counts[grp.normalized]; n > bestLikes {
				best = grp
				bestLikes = n
			}
		}
		if bestLikes == 0 {
			continue
		}
		winners = append(winners, BestAnswerWinner{
			Category:         category,
			NormalizedAnswer: best.normalized,
			PlayerID:         best.playerIDs[0],
			Likes:            bestLikes,
		})
	}
	return winners
}

// NextRound advances from the leaderboard to the next round, or
// finishes the game when every round has been played.
func (m *Manager) NextRound(ctx context.Context, gameID, playerID string) (*Game, *Round, error) {
	g, err := m.update(ctx, gameID, func(g *Game) error {
		if err := m.requireHost(g, playerID); err != nil {
			return err
		}
		if g.Status != GameStatusLeaderboard {
			return fmt.Errorf("leaderboard is not showing: %w", ErrInvalidState)
		}
		if g.CurrentRoundIndex+1 >= len(g.Rounds) {
			g.Status = GameStatusFinished
			return nil
		}
		g.CurrentRoundIndex++
		g.Status = GameStatusInRound
		m.openRound(&g.Rounds[g.CurrentRoundIndex], g.Settings)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if g.Status == GameStatusFinished {
		return g, nil, nil
	}
	round, _ := g.CurrentRound()
	return g, round, nil
}
