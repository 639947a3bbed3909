package db

import "time"

type Game struct {
	ID                uint      `gorm:"primaryKey"`
	JoinCode          string    `gorm:"size:12;uniqueIndex;not null"`
	Phase             string    `gorm:"size:32;not null"`
	CurrentRound      int       `gorm:"not null;default:1"`
	TargetScore       int       `gorm:"not null;default:5"`
	MaxPlayers        int       `gorm:"not null;default:8"`
	SubmissionSeconds int       `gorm:"not null;default:90"`
	VotingSeconds     int       `gorm:"not null;default:45"`
	HostPlayerID      *uint     `gorm:"index"`
	PhaseStartedAt    time.Time `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
	Players           []Player
	Cards             []Card
	Submissions       []Submission
	Votes             []Vote
	Events            []Event
}
