package server

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// verdict is the tagged result of one validation step: either accepted or
// rejected with a typed error. Steps compose explicitly in order, first
// rejection wins, and a rejected candidate is never partially applied.
type verdict struct {
	err error
}

func accept() verdict            { return verdict{} }
func rejectWith(err error) verdict { return verdict{err: err} }

func (v verdict) ok() bool { return v.err == nil }

type submissionRequest struct {
	PlayerID        string
	PromptCardID    string
	ResponseCardIDs []string
}

type submissionCheck func(game *Game, round *RoundState, req submissionRequest) verdict

func submissionVerdict(game *Game, round *RoundState, req submissionRequest) verdict {
	checks := []submissionCheck{
		checkSubmissionPhase,
		checkSubmissionPlayer,
		checkSubmissionDuplicate,
		checkSubmissionPrompt,
		checkSubmissionResponses,
	}
	for _, check := range checks {
		if v := check(game, round, req); !v.ok() {
			return v
		}
	}
	return accept()
}

func checkSubmissionPhase(game *Game, round *RoundState, req submissionRequest) verdict {
	if game.Phase != phaseSubmission {
		return rejectWith(gameStateErrorf("submissions are not accepted in phase %s", game.Phase))
	}
	if round == nil {
		return rejectWith(gameStateErrorf("round not started"))
	}
	return accept()
}

func checkSubmissionPlayer(game *Game, round *RoundState, req submissionRequest) verdict {
	if _, ok := findPlayer(game, req.PlayerID); !ok {
		return rejectWith(validationErrorf("player not found"))
	}
	return accept()
}

func checkSubmissionDuplicate(game *Game, round *RoundState, req submissionRequest) verdict {
	if findSubmissionByPlayer(round, req.PlayerID) != nil {
		return rejectWith(validationErrorf("player already submitted this round"))
	}
	return accept()
}

func checkSubmissionPrompt(game *Game, round *RoundState, req submissionRequest) verdict {
	card := findCard(round, req.PromptCardID)
	if card == nil {
		return rejectWith(validationErrorf("prompt card does not belong to this round"))
	}
	if card.Kind != cardKindPrompt {
		return rejectWith(validationErrorf("referenced card is not a prompt card"))
	}
	return accept()
}

func checkSubmissionResponses(game *Game, round *RoundState, req submissionRequest) verdict {
	if len(req.ResponseCardIDs) == 0 {
		return rejectWith(validationErrorf("at least one response card is required"))
	}
	seen := make(map[string]struct{}, len(req.ResponseCardIDs))
	for _, cardID := range req.ResponseCardIDs {
		if _, dup := seen[cardID]; dup {
			return rejectWith(validationErrorf("duplicate response card"))
		}
		seen[cardID] = struct{}{}
		card := findCard(round, cardID)
		if card == nil || card.Kind != cardKindResponse {
			return rejectWith(validationErrorf("response card does not belong to this round"))
		}
		if card.OwnerID != req.PlayerID {
			return rejectWith(validationErrorf("response card is not owned by this player"))
		}
	}
	return accept()
}

// submitCards validates and inserts a submission atomically. A retry of the
// same submit is reported as a duplicate, never applied as an update. When
// everyone connected has submitted, the game advances to voting.
func (s *Server) submitCards(gameID string, req submissionRequest) (*Game, *SubmissionEntry, bool, error) {
	var entry *SubmissionEntry
	advanced := false
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		round := currentRound(game)
		if v := submissionVerdict(game, round, req); !v.ok() {
			return v.err
		}
		if player, ok := findPlayer(game, req.PlayerID); ok && !player.Connected {
			log.Warn().Str("game_id", game.ID).Str("player_id", req.PlayerID).
				Msg("submission accepted from disconnected player")
		}
		round.Submissions = append(round.Submissions, SubmissionEntry{
			ID:              uuid.NewString(),
			PlayerID:        req.PlayerID,
			PromptCardID:    req.PromptCardID,
			ResponseCardIDs: append([]string(nil), req.ResponseCardIDs...),
			SubmittedAt:     timeNowUTC(),
		})
		entry = &round.Submissions[len(round.Submissions)-1]
		if submissionsComplete(game, round) {
			if _, err := s.advancePhase(game, transitionAuto, timeNowUTC()); err != nil {
				return err
			}
			advanced = true
		}
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return game, entry, advanced, nil
}

func findSubmissionByPlayer(round *RoundState, playerID string) *SubmissionEntry {
	if round == nil {
		return nil
	}
	for i := range round.Submissions {
		if round.Submissions[i].PlayerID == playerID {
			return &round.Submissions[i]
		}
	}
	return nil
}

func findSubmission(round *RoundState, submissionID string) *SubmissionEntry {
	if round == nil {
		return nil
	}
	for i := range round.Submissions {
		if round.Submissions[i].ID == submissionID {
			return &round.Submissions[i]
		}
	}
	return nil
}
