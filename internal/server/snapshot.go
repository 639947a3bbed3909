package server

import (
	"time"

	"card-clash/internal/config"
)

// snapshotWithConfig builds the full authoritative state payload sent to
// clients over the websocket and the resync endpoint. Submissions stay
// anonymous until the round is resolved so voting never reveals owners.
func snapshotWithConfig(game *Game, cfg config.Config) map[string]any {
	round := currentRound(game)
	payload := map[string]any{
		"game_id":            game.ID,
		"join_code":          game.JoinCode,
		"phase":              game.Phase,
		"phase_started_at":   game.PhaseStartedAt,
		"version":            game.Version,
		"round":              game.CurrentRound,
		"target_score":       game.TargetScore,
		"max_players":        game.MaxPlayers,
		"submission_seconds": game.SubmissionSeconds,
		"voting_seconds":     game.VotingSeconds,
		"host_id":            game.HostID,
		"players":            playersPayload(game),
		"game_over":          game.Phase == phaseComplete,
	}
	if deadline := snapshotDeadline(game, cfg); !deadline.IsZero() {
		payload["phase_deadline"] = deadline
	}
	if round == nil {
		return payload
	}
	if prompt := promptCard(round); prompt != nil {
		payload["prompt_card"] = map[string]any{
			"id":   prompt.ID,
			"text": prompt.Text,
		}
	}
	payload["submissions"] = submissionsPayload(round)
	payload["submitted_player_ids"] = submittedPlayerIDs(round)
	payload["eligible_voter_ids"] = eligibleVoters(game, round)
	payload["votes_cast"] = len(round.Votes)
	if round.Resolved {
		payload["winner_ids"] = roundWinners(game, round)
	}
	return payload
}

func snapshotDeadline(game *Game, cfg config.Config) time.Time {
	var seconds int
	switch game.Phase {
	case phaseSubmission:
		seconds = game.SubmissionSeconds
	case phaseVoting:
		seconds = game.VotingSeconds
	case phaseResults:
		seconds = cfg.ResultsSeconds
	default:
		return time.Time{}
	}
	if seconds <= 0 {
		return time.Time{}
	}
	return game.PhaseStartedAt.Add(time.Duration(seconds) * time.Second)
}

func playersPayload(game *Game) []map[string]any {
	players := make([]map[string]any, 0, len(game.Players))
	for i := range game.Players {
		player := &game.Players[i]
		players = append(players, map[string]any{
			"id":        player.ID,
			"name":      player.Name,
			"score":     player.Score,
			"connected": player.Connected,
			"is_host":   player.IsHost,
		})
	}
	return players
}

func submissionsPayload(round *RoundState) []map[string]any {
	submissions := make([]map[string]any, 0, len(round.Submissions))
	for i := range round.Submissions {
		entry := &round.Submissions[i]
		item := map[string]any{
			"id":             entry.ID,
			"response_texts": responseTexts(round, entry),
		}
		if round.Resolved {
			item["player_id"] = entry.PlayerID
			item["vote_count"] = entry.VoteCount
		}
		submissions = append(submissions, item)
	}
	return submissions
}

func responseTexts(round *RoundState, entry *SubmissionEntry) []string {
	texts := make([]string, 0, len(entry.ResponseCardIDs))
	for _, cardID := range entry.ResponseCardIDs {
		if card := findCard(round, cardID); card != nil {
			texts = append(texts, card.Text)
		}
	}
	return texts
}

func submittedPlayerIDs(round *RoundState) []string {
	ids := make([]string, 0, len(round.Submissions))
	for i := range round.Submissions {
		ids = append(ids, round.Submissions[i].PlayerID)
	}
	return ids
}
