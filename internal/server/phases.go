package server

import "time"

type transitionMode int

const (
	transitionPreview transitionMode = iota
	transitionManual
	transitionAuto
)

type phaseTransition struct {
	advance func(s *Server, game *Game, mode transitionMode, at time.Time) (string, error)
}

var phaseTransitions = map[string]phaseTransition{
	phaseLobby: {
		advance: func(s *Server, game *Game, mode transitionMode, at time.Time) (string, error) {
			if connectedCount(game) < s.cfg.MinPlayers {
				return "", gameStateErrorf("at least %d connected players required", s.cfg.MinPlayers)
			}
			if mode != transitionPreview && len(game.Rounds) == 0 {
				game.Rounds = append(game.Rounds, RoundState{Number: 1})
				game.CurrentRound = 1
			}
			applyPhase(game, phaseDistribution, mode, at)
			return phaseDistribution, nil
		},
	},
	phaseDistribution: {
		advance: func(s *Server, game *Game, mode transitionMode, at time.Time) (string, error) {
			round := currentRound(game)
			if round == nil {
				return "", gameStateErrorf("round not started")
			}
			if !cardsDealt(game, round, s.cfg.CardsPerPlayer) {
				return "", gameStateErrorf("cards not yet distributed")
			}
			applyPhase(game, phaseSubmission, mode, at)
			return phaseSubmission, nil
		},
	},
	phaseSubmission: {
		advance: func(s *Server, game *Game, mode transitionMode, at time.Time) (string, error) {
			round := currentRound(game)
			if round == nil {
				return "", gameStateErrorf("round not started")
			}
			if mode == transitionManual && !submissionsComplete(game, round) {
				return "", gameStateErrorf("waiting for submissions")
			}
			applyPhase(game, phaseVoting, mode, at)
			return phaseVoting, nil
		},
	},
	phaseVoting: {
		advance: func(s *Server, game *Game, mode transitionMode, at time.Time) (string, error) {
			round := currentRound(game)
			if round == nil {
				return "", gameStateErrorf("round not started")
			}
			if mode == transitionManual && !votesComplete(game, round) {
				return "", gameStateErrorf("waiting for votes")
			}
			if mode != transitionPreview {
				resolveRoundScores(game, round)
			}
			applyPhase(game, phaseResults, mode, at)
			return phaseResults, nil
		},
	},
	phaseResults: {
		advance: func(s *Server, game *Game, mode transitionMode, at time.Time) (string, error) {
			if maxScore(game) >= game.TargetScore {
				applyPhase(game, phaseComplete, mode, at)
				return phaseComplete, nil
			}
			if mode != transitionPreview {
				number := len(game.Rounds) + 1
				game.Rounds = append(game.Rounds, RoundState{Number: number})
				game.CurrentRound = number
			}
			applyPhase(game, phaseDistribution, mode, at)
			return phaseDistribution, nil
		},
	},
}

func (s *Server) advancePhase(game *Game, mode transitionMode, at time.Time) (string, error) {
	if game == nil {
		return "", errGameNotFound
	}
	transition, ok := phaseTransitions[game.Phase]
	if !ok {
		return "", gameStateErrorf("no transition from phase %s", game.Phase)
	}
	return transition.advance(s, game, mode, at)
}

// resetToLobby is the host-initiated hard jump back to a fresh lobby.
// All in-flight round state and scores are discarded.
func resetToLobby(game *Game, at time.Time) {
	game.Rounds = nil
	game.CurrentRound = 1
	for i := range game.Players {
		game.Players[i].Score = 0
	}
	setPhaseAt(game, phaseLobby, at)
}

func currentRound(game *Game) *RoundState {
	if len(game.Rounds) == 0 {
		return nil
	}
	return &game.Rounds[len(game.Rounds)-1]
}

func roundByNumber(game *Game, number int) *RoundState {
	if game == nil || number <= 0 {
		return nil
	}
	for i := range game.Rounds {
		if game.Rounds[i].Number == number {
			return &game.Rounds[i]
		}
	}
	return nil
}

func setPhase(game *Game, phase string) {
	setPhaseAt(game, phase, time.Now().UTC())
}

func setPhaseAt(game *Game, phase string, at time.Time) {
	game.Phase = phase
	if at.IsZero() {
		at = time.Now().UTC()
	}
	game.PhaseStartedAt = at
}

func applyPhase(game *Game, phase string, mode transitionMode, at time.Time) {
	if mode == transitionPreview {
		return
	}
	setPhaseAt(game, phase, at)
}

func cardsDealt(game *Game, round *RoundState, cardsPerPlayer int) bool {
	if round == nil || promptCard(round) == nil {
		return false
	}
	for i := range game.Players {
		player := &game.Players[i]
		if !player.Connected {
			continue
		}
		if len(cardsOwnedBy(round, player.ID)) < cardsPerPlayer {
			return false
		}
	}
	return connectedCount(game) > 0
}

func submissionsComplete(game *Game, round *RoundState) bool {
	if round == nil {
		return false
	}
	for i := range game.Players {
		player := &game.Players[i]
		if !player.Connected {
			continue
		}
		if findSubmissionByPlayer(round, player.ID) == nil {
			return false
		}
	}
	return connectedCount(game) > 0
}

func votesComplete(game *Game, round *RoundState) bool {
	if round == nil {
		return false
	}
	return len(round.Votes) >= len(eligibleVoters(game, round))
}

func maxScore(game *Game) int {
	top := 0
	for i := range game.Players {
		if game.Players[i].Score > top {
			top = game.Players[i].Score
		}
	}
	return top
}
