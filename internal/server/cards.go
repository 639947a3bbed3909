package server

import (
	"context"
	"errors"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoundDeck is one round's worth of generated card text.
type RoundDeck struct {
	PromptText    string
	ResponseTexts []string
}

func responsePoolSize(playerCount, minResponseCards int) int {
	needed := playerCount * 6
	if needed < minResponseCards {
		needed = minResponseCards
	}
	return needed
}

// runDistribution generates and deals cards for a game that just entered the
// distribution phase, then advances it to submission. Generation happens
// outside the store lock; a producer failure falls back to the static deck,
// and a short pool is retried once with a fresh deck before surfacing a
// ResourceError.
func (s *Server) runDistribution(ctx context.Context, gameID string) (*Game, error) {
	game, ok := s.store.GetGame(gameID)
	if !ok {
		return nil, errGameNotFound
	}
	playerCount := connectedCount(game)
	roundNumber := game.CurrentRound
	needed := responsePoolSize(playerCount, s.cfg.MinResponseCards)

	deck := s.generateRoundDeck(ctx, roundNumber, needed)
	game, err := s.dealRound(gameID, roundNumber, deck)
	if err == nil {
		return game, nil
	}
	var resource *ResourceError
	if !errors.As(err, &resource) {
		return nil, err
	}
	log.Warn().Str("game_id", gameID).Int("round", roundNumber).
		Msg("card pool short, retrying with fresh deck")
	deck = s.generateRoundDeck(ctx, roundNumber, needed)
	return s.dealRound(gameID, roundNumber, deck)
}

// generateRoundDeck asks the producer for a round's cards and substitutes
// the static fallback deck on any failure. It never returns an error.
func (s *Server) generateRoundDeck(ctx context.Context, roundNumber, responseCount int) RoundDeck {
	if s.producer != nil {
		deck, err := s.producer.GenerateDeck(ctx, roundNumber, responseCount)
		if err == nil && deck.PromptText != "" && len(deck.ResponseTexts) >= responseCount {
			return deck
		}
		if err != nil {
			log.Warn().Int("round", roundNumber).
				Err(&AIGenerationError{Err: err}).
				Msg("card producer failed, using fallback deck")
		}
	}
	if s.db != nil {
		if deck, err := s.loadDeckLibrary(responseCount); err == nil {
			return deck
		}
	}
	return fallbackDeck(roundNumber, responseCount)
}

// dealRound creates the round's card entries and assigns each connected
// player a hand, all under one conditional store update keyed on the
// distribution phase.
func (s *Server) dealRound(gameID string, roundNumber int, deck RoundDeck) (*Game, error) {
	return s.store.UpdateGameIf(gameID, phaseDistribution, func(game *Game) error {
		round := roundByNumber(game, roundNumber)
		if round == nil {
			return gameStateErrorf("round %d not started", roundNumber)
		}
		if promptCard(round) != nil {
			// Already dealt; a duplicate trigger is a no-op.
			return nil
		}
		players := connectedPlayerIDs(game)
		if len(players)*s.cfg.CardsPerPlayer > len(deck.ResponseTexts) {
			return &ResourceError{Reason: "not enough response cards for all players"}
		}

		round.Cards = append(round.Cards, CardEntry{
			ID:   uuid.NewString(),
			Kind: cardKindPrompt,
			Text: deck.PromptText,
		})
		responses := make([]CardEntry, 0, len(deck.ResponseTexts))
		for _, text := range deck.ResponseTexts {
			responses = append(responses, CardEntry{
				ID:   uuid.NewString(),
				Kind: cardKindResponse,
				Text: text,
			})
		}
		rand.Shuffle(len(responses), func(i, j int) {
			responses[i], responses[j] = responses[j], responses[i]
		})
		dealt := 0
		for _, playerID := range players {
			for n := 0; n < s.cfg.CardsPerPlayer; n++ {
				responses[dealt].OwnerID = playerID
				dealt++
			}
		}
		round.Cards = append(round.Cards, responses...)

		if _, err := s.advancePhase(game, transitionAuto, timeNowUTC()); err != nil {
			return err
		}
		return nil
	})
}

func connectedPlayerIDs(game *Game) []string {
	ids := make([]string, 0, len(game.Players))
	for i := range game.Players {
		if game.Players[i].Connected {
			ids = append(ids, game.Players[i].ID)
		}
	}
	return ids
}

func promptCard(round *RoundState) *CardEntry {
	if round == nil {
		return nil
	}
	for i := range round.Cards {
		if round.Cards[i].Kind == cardKindPrompt {
			return &round.Cards[i]
		}
	}
	return nil
}

func cardsOwnedBy(round *RoundState, playerID string) []CardEntry {
	if round == nil {
		return nil
	}
	owned := make([]CardEntry, 0)
	for _, card := range round.Cards {
		if card.Kind == cardKindResponse && card.OwnerID == playerID {
			owned = append(owned, card)
		}
	}
	return owned
}

func findCard(round *RoundState, cardID string) *CardEntry {
	if round == nil {
		return nil
	}
	for i := range round.Cards {
		if round.Cards[i].ID == cardID {
			return &round.Cards[i]
		}
	}
	return nil
}
