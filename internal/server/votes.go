package server

import (
	"errors"

	"github.com/google/uuid"
)

type voteRequest struct {
	PlayerID     string
	SubmissionID string
}

type voteCheck func(game *Game, round *RoundState, req voteRequest) verdict

func voteVerdict(game *Game, round *RoundState, req voteRequest) verdict {
	checks := []voteCheck{
		checkVotePhase,
		checkVotePlayer,
		checkVoteDuplicate,
		checkVoteTarget,
		checkVoteEligibility,
	}
	for _, check := range checks {
		if v := check(game, round, req); !v.ok() {
			return v
		}
	}
	return accept()
}

func checkVotePhase(game *Game, round *RoundState, req voteRequest) verdict {
	if game.Phase != phaseVoting {
		return rejectWith(gameStateErrorf("votes are not accepted in phase %s", game.Phase))
	}
	if round == nil {
		return rejectWith(gameStateErrorf("round not started"))
	}
	return accept()
}

func checkVotePlayer(game *Game, round *RoundState, req voteRequest) verdict {
	if _, ok := findPlayer(game, req.PlayerID); !ok {
		return rejectWith(validationErrorf("player not found"))
	}
	return accept()
}

func checkVoteDuplicate(game *Game, round *RoundState, req voteRequest) verdict {
	for _, vote := range round.Votes {
		if vote.VoterID == req.PlayerID {
			return rejectWith(validationErrorf("player already voted this round"))
		}
	}
	return accept()
}

func checkVoteTarget(game *Game, round *RoundState, req voteRequest) verdict {
	target := findSubmission(round, req.SubmissionID)
	if target == nil {
		return rejectWith(validationErrorf("submission not found in this round"))
	}
	if target.PlayerID == req.PlayerID {
		return rejectWith(validationErrorf("players may not vote for their own submission"))
	}
	return accept()
}

func checkVoteEligibility(game *Game, round *RoundState, req voteRequest) verdict {
	if findSubmissionByPlayer(round, req.PlayerID) != nil {
		return rejectWith(validationErrorf("submitters may not vote this round"))
	}
	return accept()
}

// castVote validates and records a vote, bumping the target's tally. The
// returned flag reports whether the electorate is now complete and round
// resolution should fire.
func (s *Server) castVote(gameID string, req voteRequest) (*Game, *VoteEntry, bool, error) {
	var entry *VoteEntry
	complete := false
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		round := currentRound(game)
		if v := voteVerdict(game, round, req); !v.ok() {
			return v.err
		}
		round.Votes = append(round.Votes, VoteEntry{
			ID:           uuid.NewString(),
			VoterID:      req.PlayerID,
			SubmissionID: req.SubmissionID,
			CastAt:       timeNowUTC(),
		})
		entry = &round.Votes[len(round.Votes)-1]
		if target := findSubmission(round, req.SubmissionID); target != nil {
			target.VoteCount++
		}
		complete = votesComplete(game, round)
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return game, entry, complete, nil
}

// resolveRound moves a game from voting to results, scoring the round on the
// way. It is keyed on the voting phase, so two last votes racing to trigger
// it resolve exactly once; the loser sees the phase already moved and treats
// that as a no-op.
func (s *Server) resolveRound(gameID string) (*Game, bool, error) {
	game, err := s.store.UpdateGameIf(gameID, phaseVoting, func(game *Game) error {
		_, err := s.advancePhase(game, transitionAuto, timeNowUTC())
		return err
	})
	if err != nil {
		var stale *GameStateError
		if errors.As(err, &stale) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return game, true, nil
}

// resolveRoundScores recomputes the tally from the stored votes and awards
// one point to every submission tied at the maximum. Recomputing from the
// votes themselves means a double fire cannot double-award.
func resolveRoundScores(game *Game, round *RoundState) {
	if round == nil || round.Resolved {
		return
	}
	tally := make(map[string]int)
	for _, vote := range round.Votes {
		tally[vote.SubmissionID]++
	}
	maxVotes := 0
	for i := range round.Submissions {
		round.Submissions[i].VoteCount = tally[round.Submissions[i].ID]
		if round.Submissions[i].VoteCount > maxVotes {
			maxVotes = round.Submissions[i].VoteCount
		}
	}
	if maxVotes > 0 {
		for i := range round.Submissions {
			if round.Submissions[i].VoteCount != maxVotes {
				continue
			}
			if player, ok := findPlayer(game, round.Submissions[i].PlayerID); ok {
				player.Score++
			}
		}
	}
	round.Resolved = true
}

// eligibleVoters returns the connected players who did not submit this
// round. Submitters are excluded from the electorate.
func eligibleVoters(game *Game, round *RoundState) []string {
	voters := make([]string, 0, len(game.Players))
	for i := range game.Players {
		player := &game.Players[i]
		if !player.Connected {
			continue
		}
		if findSubmissionByPlayer(round, player.ID) != nil {
			continue
		}
		voters = append(voters, player.ID)
	}
	return voters
}

func roundWinners(game *Game, round *RoundState) []string {
	if round == nil {
		return nil
	}
	maxVotes := 0
	for i := range round.Submissions {
		if round.Submissions[i].VoteCount > maxVotes {
			maxVotes = round.Submissions[i].VoteCount
		}
	}
	if maxVotes == 0 {
		return nil
	}
	winners := make([]string, 0)
	for i := range round.Submissions {
		if round.Submissions[i].VoteCount == maxVotes {
			winners = append(winners, round.Submissions[i].PlayerID)
		}
	}
	return winners
}
