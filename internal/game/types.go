package game

import "time"

type GameStatus string

const (
	GameStatusLobby            GameStatus = "lobby"
	GameStatusStarting         GameStatus = "starting"
	GameStatusInRound          GameStatus = "in-round"
	GameStatusRoundResults     GameStatus = "round-results"
	GameStatusDisputes         GameStatus = "disputes"
	GameStatusBestAnswerVoting GameStatus = "best-answer-voting"
	GameStatusLeaderboard      GameStatus = "leaderboard"
	GameStatusFinished         GameStatus = "finished"
)

type RoundStatus string

const (
	RoundStatusNotStarted       RoundStatus = "not-started"
	RoundStatusAnswering        RoundStatus = "answering"
	RoundStatusLocked           RoundStatus = "locked"
	RoundStatusResults          RoundStatus = "results"
	RoundStatusDisputes         RoundStatus = "disputes"
	RoundStatusBestAnswerVoting RoundStatus = "best-answer-voting"
	RoundStatusComplete         RoundStatus = "complete"
)

type DisputeStatus string

const (
	DisputeStatusPending DisputeStatus = "pending"
	DisputeStatusValid   DisputeStatus = "valid"
	DisputeStatusInvalid DisputeStatus = "invalid"
)

// Game is the whole aggregate: every operation loads it, mutates it and
// saves it back as one unit through the Repository.
type Game struct {
	ID                string     `json:"id"`
	JoinCode          string     `json:"join_code"`
	HostPlayerID      string     `json:"host_player_id"`
	Status            GameStatus `json:"status"`
	Players           []Player   `json:"players"`
	Rounds            []Round    `json:"rounds"`
	Settings          Settings   `json:"settings"`
	CurrentRoundIndex int        `json:"current_round_index"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Player order in Game.Players is join order; leaderboard tie-breaks
// depend on it staying stable.
type Player struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	AvatarRef       string `json:"avatar_ref,omitempty"`
	IsGuest         bool   `json:"is_guest"`
	IsConnected     bool   `json:"is_connected"`
	TotalScore      int    `json:"total_score"`
	BestAnswerVotes int    `json:"best_answer_votes"`
}

type Settings struct {
	TimedMode                  bool     `json:"timed_mode"`
	RoundDurationSeconds       int      `json:"round_duration_seconds"`
	MaxRounds                  int      `json:"max_rounds"`
	MaxPlayers                 int      `json:"max_players"`
	UniqueAnswerPoints         int      `json:"unique_answer_points"`
	SharedAnswerPoints         int      `json:"shared_answer_points"`
	BestAnswerBonusPoints      int      `json:"best_answer_bonus_points"`
	DisputeVotingWindowSeconds int      `json:"dispute_voting_window_seconds"`
	Categories                 []string `json:"categories"`
}

func DefaultSettings() Settings {
	return Settings{
		TimedMode:                  true,
		RoundDurationSeconds:       60,
		MaxRounds:                  5,
		MaxPlayers:                 10,
		UniqueAnswerPoints:         10,
		SharedAnswerPoints:         5,
		BestAnswerBonusPoints:      20,
		DisputeVotingWindowSeconds: 30,
	}
}

type Round struct {
	RoundNumber   int                          `json:"round_number"`
	Letter        string                       `json:"letter"`
	Categories    []string                     `json:"categories"`
	Answers       map[string]PlayerAnswers     `json:"answers"`        // playerID → answers
	RoundScores   map[string]int               `json:"round_scores"`   // playerID → points, set by scoring
	Disputes      []Dispute                    `json:"disputes"`       // one record per offending (player, category, answer)
	DisputeVotes  map[string]map[string]bool   `json:"dispute_votes"`  // disputeID → voterID → isValid
	CategoryLikes map[string]map[string]string `json:"category_likes"` // category → voterID → liked normalized answer
	Status        RoundStatus                  `json:"status"`
	StartedAt     *time.Time                   `json:"started_at,omitempty"`
	EndedAt       *time.Time                   `json:"ended_at,omitempty"`
}

type PlayerAnswers struct {
	PlayerID   string            `json:"player_id"`
	Raw        map[string]string `json:"raw"`        // category → answer as typed
	Normalized map[string]string `json:"normalized"` // category → trimmed lowercase
	Submitted  bool              `json:"submitted"`
}

// Dispute flags an answer whose first letter does not match the round
// letter. The id is deterministic per (category, normalized answer), so
// several records differing only in PlayerID can share one id; vote
// bookkeeping treats them as a single logical dispute.
type Dispute struct {
	ID               string        `json:"id"`
	Category         string        `json:"category"`
	PlayerID         string        `json:"player_id"`
	RawAnswer        string        `json:"raw_answer"`
	NormalizedAnswer string        `json:"normalized_answer"`
	Status           DisputeStatus `json:"status"`
}

func DisputeID(category, normalizedAnswer string) string {
	return category + ":" + normalizedAnswer
}

func (g *Game) FindPlayer(playerID string) (*Player, bool) {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			return &g.Players[i], true
		}
	}
	return nil, false
}

func (g *Game) CurrentRound() (*Round, bool) {
	if g.CurrentRoundIndex < 0 || g.CurrentRoundIndex >= len(g.Rounds) {
		return nil, false
	}
	return &g.Rounds[g.CurrentRoundIndex], true
}

func (g *Game) RoundByNumber(number int) (*Round, bool) {
	for i := range g.Rounds {
		if g.Rounds[i].RoundNumber == number {
			return &g.Rounds[i], true
		}
	}
	return nil, false
}

var roundStatusOrder = map[RoundStatus]int{
	RoundStatusNotStarted:       0,
	RoundStatusAnswering:        1,
	RoundStatusLocked:           2,
	RoundStatusResults:          3,
	RoundStatusDisputes:         4,
	RoundStatusBestAnswerVoting: 5,
	RoundStatusComplete:         6,
}

// advanceStatus moves the round status forward, never backward.
func (r *Round) advanceStatus(status RoundStatus) {
	if roundStatusOrder[status] > roundStatusOrder[r.Status] {
		r.Status = status
	}
}
