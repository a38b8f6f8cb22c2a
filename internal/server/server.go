package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"letter-rush/internal/config"
	"letter-rush/internal/game"
	"letter-rush/internal/sched"
)

type Server struct {
	manager *game.Manager
	db      *gorm.DB
	ws      *wsHub
	timers  sched.Scheduler
	cfg     config.Config
}

// New wires the engine layer to the HTTP surface. conn may be nil when
// running without the archive database.
func New(manager *game.Manager, conn *gorm.DB, timers sched.Scheduler, cfg config.Config) *Server {
	registerValidators()
	return &Server{
		manager: manager,
		db:      conn,
		ws:      newWSHub(),
		timers:  timers,
		cfg:     cfg,
	}
}

func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		// join lives outside the games group so the static segment
		// cannot collide with the :id wildcard.
		api.POST("/join", s.handleJoinGame)
		api.GET("/join-codes/:code", s.handleGetGameByCode)

		games := api.Group("/games")
		{
			games.POST("", s.handleCreateGame)
			games.GET("/:id", s.handleGetGame)
			games.POST("/:id/start", s.handleStartGame)
			games.PUT("/:id/settings", s.handleUpdateSettings)
			games.GET("/:id/round", s.handleGetCurrentRound)
			games.POST("/:id/round/answers", s.handleSubmitAnswers)
			games.POST("/:id/round/end", s.handleForceEndRound)
			games.POST("/:id/next-round", s.handleNextRound)
			games.GET("/:id/rounds/:number/results", s.handleRoundResults)
			games.POST("/:id/rounds/:number/like", s.handleLikeAnswer)
			games.POST("/:id/disputes/:disputeId/vote", s.handleDisputeVote)
			games.POST("/:id/review/advance", s.handleAdvanceReview)
			games.POST("/:id/voting/finish", s.handleFinishVoting)
		}
	}

	internal := router.Group("/internal")
	{
		internal.POST("/games/:id/end-round", s.handleEndRoundCallback)
		internal.POST("/games/:id/disputes/:disputeId/close", s.handleDisputeCloseCallback)
	}

	router.GET("/ws/games/:id", s.handleWebsocket)

	return router
}
