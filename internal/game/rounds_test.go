package game

import (
	"context"
	"errors"
	"testing"
)

// setupActiveGame builds a four-player game sitting in round one,
// answering, with the round letter forced to "B".
func setupActiveGame(t *testing.T) (*Manager, string) {
	t.Helper()
	m := newTestManager(t)
	ctx := context.Background()

	g, err := m.CreateGame(ctx, "p1", "Ada")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	for _, p := range []struct{ id, name string }{
		{"p2", "Ben"}, {"p3", "Cam"}, {"p4", "Dee"},
	} {
		if _, err := m.JoinGame(ctx, g.JoinCode, p.id, p.name); err != nil {
			t.Fatalf("join %s: %v", p.id, err)
		}
	}
	if _, _, err := m.StartGame(ctx, g.ID, "p1"); err != nil {
		t.Fatalf("start game: %v", err)
	}
	if _, _, err := m.BeginRound(ctx, g.ID); err != nil {
		t.Fatalf("begin round: %v", err)
	}
	setLetter(t, m, g.ID, "B")
	return m, g.ID
}

func submit(t *testing.T, m *Manager, gameID, playerID string, answers map[string]string) {
	t.Helper()
	if _, err := m.SubmitAnswers(context.Background(), gameID, playerID, answers); err != nil {
		t.Fatalf("submit answers for %s: %v", playerID, err)
	}
}

func TestSubmitAnswersNormalizesAndOverwrites(t *testing.T) {
	m, gameID := setupActiveGame(t)
	ctx := context.Background()

	submit(t, m, gameID, "p2", map[string]string{"Animal": "  Bear "})
	submit(t, m, gameID, "p2", map[string]string{"Animal": "Badger"})

	round, err := m.GetCurrentRound(ctx, gameID)
	if err != nil {
		t.Fatalf("current round: %v", err)
	}
	pa, ok := round.Answers["p2"]
	if !ok || !pa.Submitted {
		t.Fatalf("expected submitted answers for p2, got %+v", pa)
	}
	if pa.Raw["Animal"] != "Badger" || pa.Normalized["Animal"] != "badger" {
		t.Fatalf("resubmission should overwrite, got raw=%q norm=%q", pa.Raw["Animal"], pa.Normalized["Animal"])
	}
}

func TestSubmitAnswersRejectedOnceLocked(t *testing.T) {
	m, gameID := setupActiveGame(t)
	ctx := context.Background()

	if _, _, err := m.EndRound(ctx, gameID); err != nil {
		t.Fatalf("end round: %v", err)
	}
	if _, err := m.SubmitAnswers(ctx, gameID, "p2", map[string]string{"Animal": "bear"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState after lock, got %v", err)
	}
}

func TestEndRoundIdempotent(t *testing.T) {
	m, gameID := setupActiveGame(t)
	ctx := context.Background()

	_, locked, err := m.EndRound(ctx, gameID)
	if err != nil || !locked {
		t.Fatalf("first end: locked=%t err=%v", locked, err)
	}
	g, locked, err := m.EndRound(ctx, gameID)
	if err != nil {
		t.Fatalf("second end: %v", err)
	}
	if locked {
		t.Fatal("second end should be a no-op")
	}
	round, _ := g.CurrentRound()
	if round.Status != RoundStatusLocked {
		t.Fatalf("expected locked, got %s", round.Status)
	}
}

func TestScoreRoundRequiresLockedRound(t *testing.T) {
	m, gameID := setupActiveGame(t)

	submit(t, m, gameID, "p1", map[string]string{"Animal": "bear"})
	if _, err := m.ScoreRound(context.Background(), gameID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState while answering is open, got %v", err)
	}
}

func TestScoreRoundTotalsAndLeaderboard(t *testing.T) {
	m, gameID := setupActiveGame(t)
	ctx := context.Background()

	submit(t, m, gameID, "p1", map[string]string{"Animal": "bear"})
	submit(t, m, gameID, "p2", map[string]string{"Animal": "bear"})
	submit(t, m, gameID, "p3", map[string]string{"Animal": "bat"})
	submit(t, m, gameID, "p4", map[string]string{"Animal": ""})

	if _, _, err := m.EndRound(ctx, gameID); err != nil {
		t.Fatalf("end round: %v", err)
	}
	result, err := m.ScoreRound(ctx, gameID)
	if err != nil {
		t.Fatalf("score round: %v", err)
	}

	if result.RoundScores["p1"] != 5 || result.RoundScores["p2"] != 5 || result.RoundScores["p3"] != 10 || result.RoundScores["p4"] != 0 {
		t.Fatalf("unexpected round scores: %v", result.RoundScores)
	}
	if result.Leaderboard[0].PlayerID != "p3" {
		t.Fatalf("expected p3 on top, got %s", result.Leaderboard[0].PlayerID)
	}
	// p1 and p2 tie at 5; join order breaks the tie.
	if result.Leaderboard[1].PlayerID != "p1" || result.Leaderboard[2].PlayerID != "p2" {
		t.Fatalf("tie should keep join order, got %v", result.Leaderboard)
	}

	g, err := m.GetGame(ctx, gameID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	if g.Status != GameStatusRoundResults {
		t.Fatalf("expected round-results, got %s", g.Status)
	}

	// A duplicate scheduled callback must not add points twice.
	again, err := m.ScoreRound(ctx, gameID)
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	if again.Leaderboard[0].TotalScore != 10 {
		t.Fatalf("duplicate scoring changed totals: %v", again.Leaderboard)
	}
}

func TestGetRoundResultsGrouping(t *testing.T) {
	m, gameID := setupActiveGame(t)
	ctx := context.Background()

	submit(t, m, gameID, "p1", map[string]string{"Animal": "Bear"})
	submit(t, m, gameID, "p2", map[string]string{"Animal": "bear"})
	submit(t, m, gameID, "p3", map[string]string{"Animal": "ant"})

	if _, _, err := m.EndRound(ctx, gameID); err != nil {
		t.Fatalf("end round: %v", err)
	}
	if _, err := m.ScoreRound(ctx, gameID); err != nil {
		t.Fatalf("score round: %v", err)
	}
	if _, _, err := m.DetectDisputes(ctx, gameID); err != nil {
		t.Fatalf("detect disputes: %v", err)
	}

	result, err := m.GetRoundResults(ctx, gameID, 1)
	if err != nil {
		t.Fatalf("round results: %v", err)
	}
	if _, err := m.GetRoundResults(ctx, gameID, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing round, got %v", err)
	}

	var animal *CategoryReview
	for i := range result.Categories {
		if result.Categories[i].Category == "Animal" {
			animal = &result.Categories[i]
		}
	}
	if animal == nil || len(animal.Entries) != 2 {
		t.Fatalf("expected two answer groups, got %+v", animal)
	}

	bear := animal.Entries[0]
	if bear.NormalizedAnswer != "bear" || !bear.IsShared || bear.IsUnique {
		t.Fatalf("unexpected bear group: %+v", bear)
	}
	// Raw answer comes from the first contributor in join order.
	if bear.RawAnswer != "Bear" {
		t.Fatalf("expected raw answer from first contributor, got %q", bear.RawAnswer)
	}
	if len(bear.Players) != 2 || bear.Players[0].ID != "p1" {
		t.Fatalf("unexpected bear contributors: %+v", bear.Players)
	}

	ant := animal.Entries[1]
	if !ant.IsUnique || !ant.IsDisputed || ant.DisputeID != DisputeID("Animal", "ant") {
		t.Fatalf("ant should be a flagged unique answer: %+v", ant)
	}
}

func TestReviewAndBestAnswerFlow(t *testing.T) {
	m, gameID := setupActiveGame(t)
	ctx := context.Background()

	submit(t, m, gameID, "p1", map[string]string{"Animal": "bear", "City": "boston"})
	submit(t, m, gameID, "p2", map[string]string{"Animal": "ant", "City": "berlin"})

	if _, _, err := m.EndRound(ctx, gameID); err != nil {
		t.Fatalf("end round: %v", err)
	}
	if _, err := m.ScoreRound(ctx, gameID); err != nil {
		t.Fatalf("score round: %v", err)
	}
	if _, _, err := m.DetectDisputes(ctx, gameID); err != nil {
		t.Fatalf("detect disputes: %v", err)
	}

	if _, _, err := m.AdvanceReview(ctx, gameID, "p2", 0); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-host, got %v", err)
	}

	g, err := m.GetGame(ctx, gameID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	round, _ := g.CurrentRound()
	var result *AdvanceReviewResult
	for i := range round.Categories {
		g, result, err = m.AdvanceReview(ctx, gameID, "p1", i)
		if err != nil {
			t.Fatalf("advance category %d: %v", i, err)
		}
	}
	if !result.ReviewDone {
		t.Fatal("expected review done after the last category")
	}
	if g.Status != GameStatusBestAnswerVoting {
		t.Fatalf("expected best-answer voting, got %s", g.Status)
	}
	round, _ = g.CurrentRound()
	for _, d := range round.Disputes {
		if d.Status == DisputeStatusPending {
			t.Fatalf("dispute %s still pending after review", d.ID)
		}
	}

	if _, err := m.LikeAnswer(ctx, gameID, 1, "p1", "City", "berlin"); err != nil {
		t.Fatalf("like answer: %v", err)
	}
	if _, err := m.LikeAnswer(ctx, gameID, 1, "p3", "City", "berlin"); err != nil {
		t.Fatalf("like answer: %v", err)
	}

	before := playerTotal(t, m, gameID, "p2")
	g, winners, err := m.FinishBestAnswerVoting(ctx, gameID, "p1")
	if err != nil {
		t.Fatalf("finish voting: %v", err)
	}
	if g.Status != GameStatusLeaderboard {
		t.Fatalf("expected leaderboard, got %s", g.Status)
	}
	found := false
	for _, w := range winners {
		if w.Category == "City" {
			found = true
			if w.PlayerID != "p2" || w.NormalizedAnswer != "berlin" || w.Likes != 2 {
				t.Fatalf("unexpected winner: %+v", w)
			}
		}
	}
	if !found {
		t.Fatalf("expected a City winner, got %v", winners)
	}
	after := playerTotal(t, m, gameID, "p2")
	if after != before+g.Settings.BestAnswerBonusPoints {
		t.Fatalf("expected bonus award, before=%d after=%d", before, after)
	}
}

func playerTotal(t *testing.T, m *Manager, gameID, playerID string) int {
	t.Helper()
	g, err := m.GetGame(context.Background(), gameID)
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	p, ok := g.FindPlayer(playerID)
	if !ok {
		t.Fatalf("player %s not found", playerID)
	}
	return p.TotalScore
}

func TestNextRoundAdvancesThenFinishes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	g, err := m.CreateGame(ctx, "p1", "Ada")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	if _, err := m.JoinGame(ctx, g.JoinCode, "p2", "Ben"); err != nil {
		t.Fatalf("join: %v", err)
	}
	settings := DefaultSettings()
	settings.MaxRounds = 2
	if _, err := m.UpdateSettings(ctx, g.ID, "p1", settings); err != nil {
		t.Fatalf("settings: %v", err)
	}
	if _, _, err := m.StartGame(ctx, g.ID, "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := m.BeginRound(ctx, g.ID); err != nil {
		t.Fatalf("begin: %v", err)
	}

	finishRound := func() {
		t.Helper()
		if _, _, err := m.EndRound(ctx, g.ID); err != nil {
			t.Fatalf("end round: %v", err)
		}
		if _, err := m.ScoreRound(ctx, g.ID); err != nil {
			t.Fatalf("score round: %v", err)
		}
		if _, _, err := m.DetectDisputes(ctx, g.ID); err != nil {
			t.Fatalf("detect disputes: %v", err)
		}
		current, err := m.GetGame(ctx, g.ID)
		if err != nil {
			t.Fatalf("get game: %v", err)
		}
		round, _ := current.CurrentRound()
		for i := range round.Categories {
			if _, _, err := m.AdvanceReview(ctx, g.ID, "p1", i); err != nil {
				t.Fatalf("advance review: %v", err)
			}
		}
		if _, _, err := m.FinishBestAnswerVoting(ctx, g.ID, "p1"); err != nil {
			t.Fatalf("finish voting: %v", err)
		}
	}

	finishRound()
	next, round, err := m.NextRound(ctx, g.ID, "p1")
	if err != nil {
		t.Fatalf("next round: %v", err)
	}
	if next.Status != GameStatusInRound || round == nil || round.RoundNumber != 2 {
		t.Fatalf("expected round 2 active, got status=%s round=%+v", next.Status, round)
	}

	finishRound()
	final, round, err := m.NextRound(ctx, g.ID, "p1")
	if err != nil {
		t.Fatalf("final next round: %v", err)
	}
	if final.Status != GameStatusFinished || round != nil {
		t.Fatalf("expected finished game, got status=%s round=%+v", final.Status, round)
	}
}
