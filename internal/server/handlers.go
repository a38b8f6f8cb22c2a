package server

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"letter-rush/internal/game"
)

type createGameRequest struct {
	HostPlayerID string `json:"host_player_id" binding:"required"`
	DisplayName  string `json:"display_name" binding:"required,displayname"`
}

type joinGameRequest struct {
	JoinCode    string `json:"join_code" binding:"required"`
	PlayerID    string `json:"player_id" binding:"required"`
	DisplayName string `json:"display_name" binding:"required,displayname"`
}

type hostRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
}

type settingsRequest struct {
	PlayerID string        `json:"player_id" binding:"required"`
	Settings game.Settings `json:"settings" binding:"required"`
}

type answersRequest struct {
	PlayerID string            `json:"player_id" binding:"required"`
	Answers  map[string]string `json:"answers" binding:"required"`
}

type likeRequest struct {
	PlayerID         string `json:"player_id" binding:"required"`
	Category         string `json:"category" binding:"required,category"`
	NormalizedAnswer string `json:"normalized_answer" binding:"required"`
}

type voteRequest struct {
	PlayerID string `json:"player_id" binding:"required"`
	IsValid  *bool  `json:"is_valid" binding:"required"`
}

type advanceReviewRequest struct {
	PlayerID      string `json:"player_id" binding:"required"`
	CategoryIndex *int   `json:"category_index" binding:"required"`
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, err := validateName(req.DisplayName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := s.manager.CreateGame(c.Request.Context(), req.HostPlayerID, name)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	log.Printf("game created game_id=%s join_code=%s host=%s", g.ID, g.JoinCode, g.HostPlayerID)
	s.recordGame(g)
	c.JSON(http.StatusCreated, g)
}

func (s *Server) handleJoinGame(c *gin.Context) {
	var req joinGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, err := validateName(req.DisplayName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := s.manager.JoinGame(c.Request.Context(), req.JoinCode, req.PlayerID, name)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	log.Printf("player joined game_id=%s player_id=%s", g.ID, req.PlayerID)
	s.recordPlayer(g, req.PlayerID)
	s.broadcast(g.ID, eventPlayerJoined, EventPayload{
		PlayerID:   req.PlayerID,
		PlayerName: name,
	})
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleGetGame(c *gin.Context) {
	g, err := s.manager.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// handleGetGameByCode is the lobby preview lookup clients call before
// joining.
func (s *Server) handleGetGameByCode(c *gin.Context) {
	g, err := s.manager.GetGameByJoinCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleStartGame(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, startAt, err := s.manager.StartGame(c.Request.Context(), c.Param("id"), req.PlayerID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	log.Printf("game starting game_id=%s start_at=%s", g.ID, startAt.Format(time.RFC3339))
	s.recordEvent(g, eventGameCountdown, EventPayload{StartAt: startAt.Format(time.RFC3339)})
	s.broadcast(g.ID, eventGameCountdown, EventPayload{StartAt: startAt.Format(time.RFC3339)})
	s.scheduleBeginRound(g.ID, time.Until(startAt))
	c.JSON(http.StatusOK, gin.H{"game_id": g.ID, "start_at": startAt.Format(time.RFC3339)})
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateSettings(&req.Settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := s.manager.UpdateSettings(c.Request.Context(), c.Param("id"), req.PlayerID, req.Settings)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	log.Printf("settings updated game_id=%s rounds=%d players=%d", g.ID, g.Settings.MaxRounds, g.Settings.MaxPlayers)
	s.recordEvent(g, eventSettingsUpdated, EventPayload{Settings: &g.Settings})
	s.broadcast(g.ID, eventSettingsUpdated, EventPayload{Settings: &g.Settings})
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleGetCurrentRound(c *gin.Context) {
	round, err := s.manager.GetCurrentRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

func (s *Server) handleSubmitAnswers(c *gin.Context) {
	var req answersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cleaned := make(map[string]string, len(req.Answers))
	for category, answer := range req.Answers {
		value, err := validateAnswer(answer)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cleaned[category] = value
	}

	g, err := s.manager.SubmitAnswers(c.Request.Context(), c.Param("id"), req.PlayerID, cleaned)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	log.Printf("answers submitted game_id=%s player_id=%s", g.ID, req.PlayerID)
	s.broadcast(g.ID, eventPlayerSubmitted, EventPayload{PlayerID: req.PlayerID})
	c.JSON(http.StatusOK, gin.H{"submitted": true})
}

func (s *Server) handleForceEndRound(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gameID := c.Param("id")
	if err := s.manager.AuthorizeHost(c.Request.Context(), gameID, req.PlayerID); err != nil {
		writeDomainError(c, err)
		return
	}
	if s.timers != nil {
		s.timers.Cancel(endRoundKey(gameID))
	}
	s.endRound(gameID, "host")

	g, err := s.manager.GetGame(c.Request.Context(), gameID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleRoundResults(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "round number must be an integer"})
		return
	}
	result, err := s.manager.GetRoundResults(c.Request.Context(), c.Param("id"), number)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleLikeAnswer(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "round number must be an integer"})
		return
	}
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := s.manager.LikeAnswer(c.Request.Context(), c.Param("id"), number, req.PlayerID, req.Category, game.NormalizeAnswer(req.NormalizedAnswer))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	log.Printf("answer liked game_id=%s player_id=%s category=%s", g.ID, req.PlayerID, req.Category)
	c.JSON(http.StatusOK, gin.H{"liked": true})
}

func (s *Server) handleDisputeVote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gameID := c.Param("id")
	disputeID := c.Param("disputeId")

	g, status, err := s.manager.CastVote(c.Request.Context(), gameID, req.PlayerID, disputeID, *req.IsValid)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	log.Printf("dispute vote game_id=%s dispute_id=%s player_id=%s votes=%d/%d", g.ID, disputeID, req.PlayerID, status.VoteCount, status.TotalVoters)
	s.broadcast(gameID, eventDisputeVoteUpdated, EventPayload{
		DisputeID:   disputeID,
		VoteCount:   status.VoteCount,
		TotalVoters: status.TotalVoters,
	})
	if status.Resolved {
		if s.timers != nil {
			s.timers.Cancel(disputeKey(gameID, disputeID))
		}
		log.Printf("dispute resolved game_id=%s dispute_id=%s valid=%t reason=votes", gameID, disputeID, status.IsValid)
		s.recordEvent(g, eventDisputeResolved, EventPayload{
			DisputeID: disputeID,
			IsValid:   boolPtr(status.IsValid),
			Reason:    "votes",
		})
		s.broadcast(gameID, eventDisputeResolved, EventPayload{
			DisputeID: disputeID,
			VoteCount: status.VoteCount,
			IsValid:   boolPtr(status.IsValid),
		})
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleAdvanceReview(c *gin.Context) {
	var req advanceReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gameID := c.Param("id")

	g, result, err := s.manager.AdvanceReview(c.Request.Context(), gameID, req.PlayerID, *req.CategoryIndex)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	for _, d := range result.Resolved {
		if s.timers != nil {
			s.timers.Cancel(disputeKey(gameID, d.ID))
		}
		s.broadcast(gameID, eventDisputeResolved, EventPayload{
			DisputeID: d.ID,
			IsValid:   boolPtr(d.Status == game.DisputeStatusValid),
		})
	}
	log.Printf("review advanced game_id=%s category_index=%d done=%t", gameID, result.CategoryIndex, result.ReviewDone)
	s.recordEvent(g, eventCategoryAdvanced, EventPayload{CategoryIndex: intPtr(result.CategoryIndex)})
	s.broadcast(gameID, eventCategoryAdvanced, EventPayload{CategoryIndex: intPtr(result.CategoryIndex)})
	if result.ReviewDone {
		round, _ := g.CurrentRound()
		payload := EventPayload{}
		if round != nil {
			payload.RoundNumber = round.RoundNumber
		}
		s.broadcast(gameID, eventReviewComplete, payload)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleFinishVoting(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gameID := c.Param("id")

	g, winners, err := s.manager.FinishBestAnswerVoting(c.Request.Context(), gameID, req.PlayerID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	round, _ := g.CurrentRound()
	payload := EventPayload{
		Leaderboard: game.BuildLeaderboard(g, nil),
		BestAnswers: winners,
	}
	if round != nil {
		payload.RoundNumber = round.RoundNumber
		payload.RoundScores = round.RoundScores
	}
	log.Printf("best answer voting finished game_id=%s winners=%d", gameID, len(winners))
	s.recordEvent(g, eventLeaderboardUpdated, payload)
	s.broadcast(gameID, eventLeaderboardUpdated, payload)
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleNextRound(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gameID := c.Param("id")

	g, round, err := s.manager.NextRound(c.Request.Context(), gameID, req.PlayerID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if g.Status == game.GameStatusFinished {
		log.Printf("game finished game_id=%s rounds=%d", gameID, len(g.Rounds))
		s.recordEvent(g, eventGameFinished, EventPayload{Leaderboard: game.BuildLeaderboard(g, nil)})
		s.broadcast(gameID, eventGameFinished, EventPayload{Leaderboard: game.BuildLeaderboard(g, nil)})
		c.JSON(http.StatusOK, g)
		return
	}
	log.Printf("round started game_id=%s round=%d letter=%s", gameID, round.RoundNumber, round.Letter)
	s.recordRound(g, round)
	s.broadcast(gameID, eventRoundStarted, roundStartedPayload(round))
	s.scheduleRoundEnd(g, round)
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleEndRoundCallback(c *gin.Context) {
	s.endRound(c.Param("id"), "scheduler")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleDisputeCloseCallback(c *gin.Context) {
	s.closeDispute(c.Param("id"), c.Param("disputeId"))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
