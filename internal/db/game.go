package db

import (
	"time"

	"gorm.io/datatypes"
)

// Game is the archive row for one session. GameID is the domain id;
// live state stays in the aggregate store.
type Game struct {
	ID           uint           `gorm:"primaryKey"`
	GameID       string         `gorm:"size:64;uniqueIndex;not null"`
	JoinCode     string         `gorm:"size:12;index;not null"`
	HostPlayerID string         `gorm:"size:64;not null"`
	Status       string         `gorm:"size:32;not null"`
	Settings     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
	Players      []Player
	Rounds       []Round
	Events       []Event
}
