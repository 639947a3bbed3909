package server

type EventPayload struct {
	GameID            string   `json:"game_id,omitempty"`
	JoinCode          string   `json:"join_code,omitempty"`
	PlayerName        string   `json:"player,omitempty"`
	PlayerID          string   `json:"player_id,omitempty"`
	NewHostID         string   `json:"new_host_id,omitempty"`
	SubmissionID      string   `json:"submission_id,omitempty"`
	Round             int      `json:"round,omitempty"`
	Phase             string   `json:"phase,omitempty"`
	Reason            string   `json:"reason,omitempty"`
	WinnerIDs         []string `json:"winner_ids,omitempty"`
	TargetScore       int      `json:"target_score,omitempty"`
	MaxPlayers        int      `json:"max_players,omitempty"`
	SubmissionSeconds int      `json:"submission_seconds,omitempty"`
	VotingSeconds     int      `json:"voting_seconds,omitempty"`
	Count             int      `json:"count,omitempty"`
}
