package db

import "time"

type Player struct {
	ID              uint      `gorm:"primaryKey"`
	GameID          uint      `gorm:"index;not null;uniqueIndex:idx_players_game_player"`
	PlayerID        string    `gorm:"size:64;not null;uniqueIndex:idx_players_game_player"`
	DisplayName     string    `gorm:"size:64;not null"`
	IsHost          bool      `gorm:"not null;default:false"`
	TotalScore      int       `gorm:"not null;default:0"`
	BestAnswerVotes int       `gorm:"not null;default:0"`
	JoinedAt        time.Time `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}
