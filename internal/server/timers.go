package server

import (
	"context"
	"log"
	"time"

	"letter-rush/internal/game"
)

func beginRoundKey(gameID string) string       { return "begin-round:" + gameID }
func endRoundKey(gameID string) string         { return "end-round:" + gameID }
func disputeKey(gameID, disputeID string) string {
	return "close-dispute:" + gameID + ":" + disputeID
}

// scheduleBeginRound arms the lobby countdown. The callback tolerates
// games that are no longer starting.
func (s *Server) scheduleBeginRound(gameID string, delay time.Duration) {
	if s.timers == nil {
		return
	}
	s.timers.Schedule(beginRoundKey(gameID), delay, func() {
		s.beginRound(gameID)
	})
}

func (s *Server) beginRound(gameID string) {
	g, round, err := s.manager.BeginRound(context.Background(), gameID)
	if err != nil {
		log.Printf("begin round skipped game_id=%s error=%v", gameID, err)
		return
	}
	log.Printf("round started game_id=%s round=%d letter=%s", g.ID, round.RoundNumber, round.Letter)
	s.recordRound(g, round)
	s.broadcast(g.ID, eventRoundStarted, roundStartedPayload(round))
	s.scheduleRoundEnd(g, round)
}

func (s *Server) scheduleRoundEnd(g *game.Game, round *game.Round) {
	if s.timers == nil || !g.Settings.TimedMode || round.EndedAt == nil {
		return
	}
	delay := time.Until(*round.EndedAt)
	if delay < 0 {
		delay = 0
	}
	s.timers.Schedule(endRoundKey(g.ID), delay, func() {
		s.endRound(g.ID, "timeout")
	})
}

// endRound is the shared lock-score-detect sequence behind the round
// deadline, the internal callback and the host force-end. Duplicate
// invocations on an already scored round change nothing.
func (s *Server) endRound(gameID, reason string) {
	ctx := context.Background()

	g, locked, err := s.manager.EndRound(ctx, gameID)
	if err != nil {
		log.Printf("end round skipped game_id=%s error=%v", gameID, err)
		return
	}
	round, ok := g.CurrentRound()
	if !ok {
		return
	}
	// locked is false when the round was already past answering, so
	// this delivery is a duplicate or a late callback.
	replayed := !locked
	if locked {
		log.Printf("round ended game_id=%s round=%d reason=%s", gameID, round.RoundNumber, reason)
		s.broadcast(gameID, eventRoundEnded, EventPayload{RoundNumber: round.RoundNumber, Reason: reason})
	}

	result, err := s.manager.ScoreRound(ctx, gameID)
	if err != nil {
		log.Printf("score round failed game_id=%s error=%v", gameID, err)
		return
	}
	if !replayed {
		s.broadcast(gameID, eventLeaderboardUpdated, EventPayload{
			RoundNumber: result.RoundNumber,
			RoundScores: result.RoundScores,
			Leaderboard: result.Leaderboard,
		})
	}

	g, disputes, err := s.manager.DetectDisputes(ctx, gameID)
	if err != nil {
		log.Printf("detect disputes failed game_id=%s error=%v", gameID, err)
		return
	}
	s.recordRoundResult(g, result, disputes)
	if replayed || len(disputes) == 0 {
		return
	}
	log.Printf("disputes flagged game_id=%s round=%d count=%d", gameID, result.RoundNumber, len(disputes))
	s.broadcast(gameID, eventDisputeFlagged, EventPayload{
		RoundNumber: result.RoundNumber,
		Disputes:    disputes,
	})
	window := time.Duration(g.Settings.DisputeVotingWindowSeconds) * time.Second
	seen := make(map[string]bool)
	for _, d := range disputes {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		s.scheduleDisputeClose(gameID, d.ID, window)
	}
}

func (s *Server) scheduleDisputeClose(gameID, disputeID string, delay time.Duration) {
	if s.timers == nil {
		return
	}
	s.timers.Schedule(disputeKey(gameID, disputeID), delay, func() {
		s.closeDispute(gameID, disputeID)
	})
}

func (s *Server) closeDispute(gameID, disputeID string) {
	g, status, err := s.manager.CloseDisputeVoting(context.Background(), gameID, disputeID)
	if err != nil {
		log.Printf("close dispute failed game_id=%s dispute_id=%s error=%v", gameID, disputeID, err)
		return
	}
	if status == nil {
		return
	}
	log.Printf("dispute resolved game_id=%s dispute_id=%s valid=%t reason=timeout", gameID, disputeID, status.IsValid)
	s.recordEvent(g, eventDisputeResolved, EventPayload{
		DisputeID: disputeID,
		IsValid:   boolPtr(status.IsValid),
		Reason:    "timeout",
	})
	s.broadcast(gameID, eventDisputeResolved, EventPayload{
		DisputeID: disputeID,
		VoteCount: status.VoteCount,
		IsValid:   boolPtr(status.IsValid),
	})
}

func roundStartedPayload(round *game.Round) EventPayload {
	payload := EventPayload{
		RoundNumber: round.RoundNumber,
		Letter:      round.Letter,
		Categories:  round.Categories,
	}
	if round.StartedAt != nil {
		payload.StartedAt = round.StartedAt.Format(time.RFC3339)
	}
	if round.EndedAt != nil {
		payload.EndsAt = round.EndedAt.Format(time.RFC3339)
	}
	return payload
}
