package server

import "time"

const (
	phaseLobby        = "lobby"
	phaseDistribution = "distribution"
	phaseSubmission   = "submission"
	phaseVoting       = "voting"
	phaseResults      = "results"
	phaseComplete     = "complete"
)

const (
	cardKindPrompt   = "prompt"
	cardKindResponse = "response"
)

const (
	eventGameCreated        = "game_created"
	eventPlayerJoined       = "player_joined"
	eventPlayerLeft         = "player_left"
	eventPhaseChange        = "phase_change"
	eventCardsDistributed   = "cards_distributed"
	eventSubmissionReceived = "submission_received"
	eventVoteCast           = "vote_cast"
	eventVotingComplete     = "voting_complete"
	eventHostTransferred    = "host_transferred"
	eventSettingsUpdated    = "settings_updated"
	eventGameReset          = "game_reset"
	eventGameOver           = "game_over"
)

type GameSummary struct {
	ID       string
	JoinCode string
	Phase    string
	Players  int
}

type Game struct {
	ID                string
	DBID              uint
	JoinCode          string
	Phase             string
	PhaseStartedAt    time.Time
	Version           uint64
	CurrentRound      int
	TargetScore       int
	MaxPlayers        int
	SubmissionSeconds int
	VotingSeconds     int
	HostID            string
	Players           []Player
	Rounds            []RoundState
}

type Player struct {
	ID        string
	DBID      uint
	Name      string
	Score     int
	IsHost    bool
	Connected bool
	JoinedAt  time.Time
}

type RoundState struct {
	Number      int
	Cards       []CardEntry
	Submissions []SubmissionEntry
	Votes       []VoteEntry
	Resolved    bool
}

type CardEntry struct {
	ID      string
	DBID    uint
	Kind    string
	Text    string
	OwnerID string
}

type SubmissionEntry struct {
	ID              string
	DBID            uint
	PlayerID        string
	PromptCardID    string
	ResponseCardIDs []string
	VoteCount       int
	SubmittedAt     time.Time
}

type VoteEntry struct {
	ID           string
	DBID         uint
	VoterID      string
	SubmissionID string
	CastAt       time.Time
}
