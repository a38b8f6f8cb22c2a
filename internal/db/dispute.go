package db

import "time"

type Dispute struct {
	ID               uint      `gorm:"primaryKey"`
	RoundID          uint      `gorm:"index;not null;uniqueIndex:idx_disputes_round_player_id"`
	DisputeID        string    `gorm:"size:160;not null;uniqueIndex:idx_disputes_round_player_id"`
	PlayerID         string    `gorm:"size:64;not null;uniqueIndex:idx_disputes_round_player_id"`
	Category         string    `gorm:"size:64;not null"`
	RawAnswer        string    `gorm:"size:280;not null"`
	NormalizedAnswer string    `gorm:"size:280;not null"`
	Status           string    `gorm:"size:16;not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}
