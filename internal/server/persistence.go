package server

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"letter-rush/internal/db"
	"letter-rush/internal/game"
)

// The archive is append-mostly and advisory: a nil connection or a
// failed write never blocks gameplay, it just logs.

func (s *Server) recordGame(g *game.Game) {
	if s.db == nil {
		return
	}
	settings, err := json.Marshal(g.Settings)
	if err != nil {
		log.Printf("archive game failed game_id=%s error=%v", g.ID, err)
		return
	}
	record := db.Game{
		GameID:       g.ID,
		JoinCode:     g.JoinCode,
		HostPlayerID: g.HostPlayerID,
		Status:       string(g.Status),
		Settings:     datatypes.JSON(settings),
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		log.Printf("archive game failed game_id=%s error=%v", g.ID, err)
		return
	}
	s.recordEvent(g, eventGameCreated, EventPayload{GameID: g.ID, JoinCode: g.JoinCode})
	s.recordPlayer(g, g.HostPlayerID)
}

func (s *Server) recordPlayer(g *game.Game, playerID string) {
	if s.db == nil {
		return
	}
	gameRow, ok := s.archiveGame(g)
	if !ok {
		return
	}
	player, found := g.FindPlayer(playerID)
	if !found {
		return
	}
	record := db.Player{
		GameID:      gameRow,
		PlayerID:    player.ID,
		DisplayName: player.DisplayName,
		IsHost:      player.ID == g.HostPlayerID,
		JoinedAt:    time.Now().UTC(),
	}
	if err := s.db.Create(&record).Error; err != nil && !isUniqueViolation(err) {
		log.Printf("archive player failed game_id=%s player_id=%s error=%v", g.ID, playerID, err)
		return
	}
	if player.ID != g.HostPlayerID {
		s.recordEvent(g, eventPlayerJoined, EventPayload{PlayerID: player.ID, PlayerName: player.DisplayName})
	}
}

func (s *Server) recordRound(g *game.Game, round *game.Round) {
	if s.db == nil {
		return
	}
	gameRow, ok := s.archiveGame(g)
	if !ok {
		return
	}
	categories, err := json.Marshal(round.Categories)
	if err != nil {
		log.Printf("archive round failed game_id=%s round=%d error=%v", g.ID, round.RoundNumber, err)
		return
	}
	record := db.Round{
		GameID:     gameRow,
		Number:     round.RoundNumber,
		Letter:     round.Letter,
		Status:     string(round.Status),
		Categories: datatypes.JSON(categories),
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		log.Printf("archive round failed game_id=%s round=%d error=%v", g.ID, round.RoundNumber, err)
		return
	}
	s.updateGameStatus(g, gameRow)
	s.recordEvent(g, eventRoundStarted, roundStartedPayload(round))
}

// recordRoundResult persists the scored round, its disputes and the
// leaderboard event after the end-round sequence completes.
func (s *Server) recordRoundResult(g *game.Game, result *game.RoundScoreResult, disputes []game.Dispute) {
	if s.db == nil {
		return
	}
	gameRow, ok := s.archiveGame(g)
	if !ok {
		return
	}
	roundRow, ok := s.archiveRound(gameRow, result.RoundNumber)
	if !ok {
		return
	}
	round, found := g.RoundByNumber(result.RoundNumber)
	if !found {
		return
	}

	scores, err := json.Marshal(result.RoundScores)
	if err == nil {
		updates := map[string]any{
			"status": string(round.Status),
			"scores": datatypes.JSON(scores),
		}
		if err := s.db.Model(&db.Round{}).Where("id = ?", roundRow).Updates(updates).Error; err != nil {
			log.Printf("archive round result failed game_id=%s round=%d error=%v", g.ID, result.RoundNumber, err)
		}
	}

	for _, d := range disputes {
		record := db.Dispute{
			RoundID:          roundRow,
			DisputeID:        d.ID,
			PlayerID:         d.PlayerID,
			Category:         d.Category,
			RawAnswer:        d.RawAnswer,
			NormalizedAnswer: d.NormalizedAnswer,
			Status:           string(d.Status),
		}
		if err := s.db.Create(&record).Error; err != nil && !isUniqueViolation(err) {
			log.Printf("archive dispute failed game_id=%s dispute_id=%s error=%v", g.ID, d.ID, err)
		}
	}

	for i := range g.Players {
		p := &g.Players[i]
		if err := s.db.Model(&db.Player{}).
			Where("game_id = ? AND player_id = ?", gameRow, p.ID).
			Updates(map[string]any{"total_score": p.TotalScore, "best_answer_votes": p.BestAnswerVotes}).Error; err != nil {
			log.Printf("archive player score failed game_id=%s player_id=%s error=%v", g.ID, p.ID, err)
		}
	}

	s.updateGameStatus(g, gameRow)
	s.recordEvent(g, eventLeaderboardUpdated, EventPayload{
		RoundNumber: result.RoundNumber,
		RoundScores: result.RoundScores,
		Leaderboard: result.Leaderboard,
	})
}

func (s *Server) recordEvent(g *game.Game, eventType string, payload EventPayload) {
	if s.db == nil {
		return
	}
	gameRow, ok := s.archiveGame(g)
	if !ok {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("archive event failed game_id=%s type=%s error=%v", g.ID, eventType, err)
		return
	}
	event := db.Event{
		GameID:   gameRow,
		PlayerID: payload.PlayerID,
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	}
	if row, ok := s.archiveCurrentRound(g, gameRow); ok {
		event.RoundID = &row
	}
	if err := s.db.Create(&event).Error; err != nil {
		log.Printf("archive event failed game_id=%s type=%s error=%v", g.ID, eventType, err)
	}
}

func (s *Server) updateGameStatus(g *game.Game, gameRow uint) {
	if err := s.db.Model(&db.Game{}).Where("id = ?", gameRow).Update("status", string(g.Status)).Error; err != nil {
		log.Printf("archive game status failed game_id=%s error=%v", g.ID, err)
	}
}

func (s *Server) archiveGame(g *game.Game) (uint, bool) {
	var record db.Game
	if err := s.db.Where("game_id = ?", g.ID).First(&record).Error; err != nil {
		return 0, false
	}
	return record.ID, true
}

func (s *Server) archiveRound(gameRow uint, number int) (uint, bool) {
	var record db.Round
	if err := s.db.Where("game_id = ? AND number = ?", gameRow, number).First(&record).Error; err != nil {
		return 0, false
	}
	return record.ID, true
}

func (s *Server) archiveCurrentRound(g *game.Game, gameRow uint) (uint, bool) {
	round, ok := g.CurrentRound()
	if !ok {
		return 0, false
	}
	return s.archiveRound(gameRow, round.RoundNumber)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
