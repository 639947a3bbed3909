package db

import "time"

type Vote struct {
	ID           uint      `gorm:"primaryKey"`
	GameID       uint      `gorm:"index;not null;uniqueIndex:idx_votes_game_round_player"`
	PublicID     string    `gorm:"size:64;uniqueIndex;not null"`
	Round        int       `gorm:"not null;uniqueIndex:idx_votes_game_round_player"`
	PlayerID     uint      `gorm:"index;not null;uniqueIndex:idx_votes_game_round_player"`
	SubmissionID uint      `gorm:"index;not null"`
	CastAt       time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
