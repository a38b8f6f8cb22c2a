package server

import "letter-rush/internal/game"

// Message is the websocket envelope every broadcast uses.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types, shared between websocket broadcasts and the archive log.
const (
	eventGameCreated        = "game_created"
	eventPlayerJoined       = "player_joined"
	eventSettingsUpdated    = "settings_updated"
	eventGameCountdown      = "game_countdown"
	eventRoundStarted       = "round_started"
	eventPlayerSubmitted    = "player_submitted"
	eventRoundEnded         = "round_ended"
	eventLeaderboardUpdated = "leaderboard_updated"
	eventDisputeFlagged     = "dispute_flagged"
	eventDisputeVoteUpdated = "dispute_vote_updated"
	eventDisputeResolved    = "dispute_resolved"
	eventCategoryAdvanced   = "category_advanced"
	eventReviewComplete     = "review_complete"
	eventGameFinished       = "game_finished"
)

type EventPayload struct {
	GameID        string                  `json:"game_id,omitempty"`
	JoinCode      string                  `json:"join_code,omitempty"`
	PlayerID      string                  `json:"player_id,omitempty"`
	PlayerName    string                  `json:"player,omitempty"`
	RoundNumber   int                     `json:"round_number,omitempty"`
	Letter        string                  `json:"letter,omitempty"`
	Categories    []string                `json:"categories,omitempty"`
	StartAt       string                  `json:"start_at,omitempty"`
	StartedAt     string                  `json:"started_at,omitempty"`
	EndsAt        string                  `json:"ends_at,omitempty"`
	RoundScores   map[string]int          `json:"round_scores,omitempty"`
	Leaderboard   []game.LeaderboardEntry `json:"leaderboard,omitempty"`
	Disputes      []game.Dispute          `json:"disputes,omitempty"`
	DisputeID     string                  `json:"dispute_id,omitempty"`
	VoteCount     int                     `json:"vote_count,omitempty"`
	TotalVoters   int                     `json:"total_voters,omitempty"`
	IsValid       *bool                   `json:"is_valid,omitempty"`
	CategoryIndex *int                    `json:"category_index,omitempty"`
	BestAnswers   []game.BestAnswerWinner `json:"best_answers,omitempty"`
	Settings      *game.Settings          `json:"settings,omitempty"`
	Reason        string                  `json:"reason,omitempty"`
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
