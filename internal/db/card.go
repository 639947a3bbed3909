package db

import "time"

type Card struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null"`
	PublicID  string    `gorm:"size:64;uniqueIndex;not null"`
	Round     int       `gorm:"not null"`
	Kind      string    `gorm:"size:16;not null"`
	Text      string    `gorm:"size:280;not null"`
	PlayerID  *uint     `gorm:"index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
