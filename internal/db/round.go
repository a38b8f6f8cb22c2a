package db

import (
	"time"

	"gorm.io/datatypes"
)

type Round struct {
	ID         uint           `gorm:"primaryKey"`
	GameID     uint           `gorm:"index;not null;uniqueIndex:idx_rounds_game_number"`
	Number     int            `gorm:"not null;uniqueIndex:idx_rounds_game_number"`
	Letter     string         `gorm:"size:4;not null"`
	Status     string         `gorm:"size:32;not null"`
	Categories datatypes.JSON `gorm:"type:jsonb"`
	Scores     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
	Disputes   []Dispute
	Events     []Event
}
