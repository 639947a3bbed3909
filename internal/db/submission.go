package db

import (
	"time"

	"gorm.io/datatypes"
)

type Submission struct {
	ID              uint           `gorm:"primaryKey"`
	GameID          uint           `gorm:"index;not null;uniqueIndex:idx_submissions_game_round_player"`
	PublicID        string         `gorm:"size:64;uniqueIndex;not null"`
	Round           int            `gorm:"not null;uniqueIndex:idx_submissions_game_round_player"`
	PlayerID        uint           `gorm:"index;not null;uniqueIndex:idx_submissions_game_round_player"`
	PromptCardID    uint           `gorm:"index;not null"`
	ResponseCardIDs datatypes.JSON `gorm:"type:jsonb;not null"`
	VoteCount       int            `gorm:"not null;default:0"`
	SubmittedAt     time.Time      `gorm:"not null"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}
