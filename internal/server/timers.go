package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Clients render countdowns from the snapshot's deadline, but expiry is only
// authoritative here: the timer fires server-side against the stored phase
// start time, even with zero client activity.

func (s *Server) schedulePhaseTimer(game *Game) {
	duration := s.phaseDuration(game)
	if duration <= 0 {
		s.cancelPhaseTimer(game.ID)
		return
	}
	s.timersMu.Lock()
	if existing, ok := s.timers[game.ID]; ok {
		existing.Stop()
	}
	timer := time.AfterFunc(duration, func() {
		s.autoAdvancePhase(game.ID, game.Phase)
	})
	s.timers[game.ID] = timer
	s.timersMu.Unlock()
}

func (s *Server) cancelPhaseTimer(gameID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[gameID]; ok {
		timer.Stop()
		delete(s.timers, gameID)
	}
}

func (s *Server) phaseDuration(game *Game) time.Duration {
	if game == nil {
		return 0
	}
	switch game.Phase {
	case phaseSubmission:
		return time.Duration(game.SubmissionSeconds) * time.Second
	case phaseVoting:
		return time.Duration(game.VotingSeconds) * time.Second
	case phaseResults:
		return time.Duration(s.cfg.ResultsSeconds) * time.Second
	default:
		return 0
	}
}

func (s *Server) phaseDeadline(game *Game) time.Time {
	duration := s.phaseDuration(game)
	if duration <= 0 {
		return time.Time{}
	}
	return game.PhaseStartedAt.Add(duration)
}

// autoAdvancePhase fires on timer expiry. The expected-phase guard makes a
// stale timer harmless: if the game already moved on, nothing happens.
func (s *Server) autoAdvancePhase(gameID string, expectedPhase string) {
	now := timeNowUTC()
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Phase != expectedPhase {
			return gameStateErrorf("phase changed")
		}
		if deadline := s.phaseDeadline(game); !deadline.IsZero() && now.Before(deadline) {
			return gameStateErrorf("timer not yet elapsed")
		}
		_, err := s.advancePhase(game, transitionAuto, now)
		return err
	})
	if err != nil {
		return
	}
	log.Info().Str("game_id", game.ID).Str("from", expectedPhase).Str("to", game.Phase).
		Msg("phase auto-advanced")
	s.afterPhaseChange(context.Background(), game, expectedPhase, "timeout")
}

// afterPhaseChange runs the side effects of a committed phase move:
// persistence, events, follow-up distribution, timers, broadcast.
func (s *Server) afterPhaseChange(ctx context.Context, game *Game, fromPhase, reason string) {
	if err := s.persistPhaseFrom(game, fromPhase, eventPhaseChange, EventPayload{
		Phase:  game.Phase,
		Round:  game.CurrentRound,
		Reason: reason,
	}); err != nil {
		log.Error().Str("game_id", game.ID).Err(err).Msg("persist phase failed")
	}

	switch game.Phase {
	case phaseVoting:
		// An empty electorate (everyone submitted) resolves immediately
		// with no votes cast.
		if round := currentRound(game); round != nil && votesComplete(game, round) {
			if resolved, ok, err := s.resolveRound(game.ID); err == nil && ok {
				s.afterPhaseChange(ctx, resolved, phaseVoting, "no_eligible_voters")
				return
			}
		}
		s.schedulePhaseTimer(game)
	case phaseResults:
		winners := []string{}
		if round := currentRound(game); round != nil {
			winners = roundWinners(game, round)
			if err := s.persistRoundScores(game, round); err != nil {
				log.Error().Str("game_id", game.ID).Err(err).Msg("persist scores failed")
			}
		}
		if err := s.persistEvent(game, eventVotingComplete, EventPayload{
			Round:     game.CurrentRound,
			WinnerIDs: winners,
		}); err != nil {
			log.Error().Str("game_id", game.ID).Err(err).Msg("persist event failed")
		}
		s.schedulePhaseTimer(game)
	case phaseComplete:
		if err := s.persistEvent(game, eventGameOver, EventPayload{
			Round: game.CurrentRound,
		}); err != nil {
			log.Error().Str("game_id", game.ID).Err(err).Msg("persist event failed")
		}
		s.cancelPhaseTimer(game.ID)
	case phaseDistribution:
		s.cancelPhaseTimer(game.ID)
		s.broadcastGameUpdate(game)
		updated, err := s.runDistribution(ctx, game.ID)
		if err != nil {
			log.Error().Str("game_id", game.ID).Err(err).Msg("card distribution failed")
			return
		}
		game = updated
		s.afterDistribution(game)
	default:
		s.schedulePhaseTimer(game)
	}
	s.broadcastGameUpdate(game)
}

// afterDistribution runs the side effects of a successful deal, which lands
// the game in the submission phase.
func (s *Server) afterDistribution(game *Game) {
	round := currentRound(game)
	if round != nil {
		if err := s.persistRoundCards(game, round); err != nil {
			log.Error().Str("game_id", game.ID).Err(err).Msg("persist cards failed")
		}
	}
	if err := s.persistPhaseFrom(game, phaseDistribution, eventCardsDistributed, EventPayload{
		Phase: game.Phase,
		Round: game.CurrentRound,
		Count: roundCardCount(round),
	}); err != nil {
		log.Error().Str("game_id", game.ID).Err(err).Msg("persist phase failed")
	}
	log.Info().Str("game_id", game.ID).Int("round", game.CurrentRound).
		Int("cards", roundCardCount(round)).Msg("cards distributed")
	s.schedulePhaseTimer(game)
}

func roundCardCount(round *RoundState) int {
	if round == nil {
		return 0
	}
	return len(round.Cards)
}
