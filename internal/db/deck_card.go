package db

import "time"

// DeckCard is a pre-authored card the distribution engine can draw from
// when the generation service is unavailable.
type DeckCard struct {
	ID        uint      `gorm:"primaryKey"`
	Kind      string    `gorm:"size:16;not null;uniqueIndex:idx_deck_cards_kind_text"`
	Text      string    `gorm:"size:280;not null;uniqueIndex:idx_deck_cards_kind_text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
