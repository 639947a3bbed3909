package server

import (
	"fmt"

	"card-clash/internal/db"
)

// The static fallback deck keeps rounds playable with no network and no
// database. Selection is deterministic for a given round number.

func fallbackPromptList() []string {
	return []string{
		"My secret talent is ____.",
		"The worst thing to say at a job interview: ____.",
		"Scientists were shocked to discover ____ at the bottom of the ocean.",
		"The real reason the dinosaurs went extinct: ____.",
		"Next year's hottest toy: ____.",
		"I knew the party was over when I saw ____.",
		"____ would make a terrible superpower.",
		"The museum's newest exhibit features ____.",
		"My autobiography will be titled '____'.",
		"Nothing ruins a road trip like ____.",
	}
}

func fallbackResponseList() []string {
	return []string{
		"a suspiciously confident pigeon",
		"grandma's secret wrestling career",
		"an expired coupon for free hugs",
		"the world's loudest whisper",
		"a llama in formal wear",
		"forty-seven rubber ducks",
		"a motivational poster about naps",
		"the office microwave at full power",
		"an encyclopedia of bad haircuts",
		"a skateboard with trust issues",
		"my neighbor's interpretive dance phase",
		"a vending machine that only takes compliments",
		"the last slice of pizza, legally speaking",
		"a very formal apology to a houseplant",
		"socks with individual toes",
		"an alarm clock that screams encouragement",
		"the complete history of soup",
		"a parade float shaped like regret",
		"glitter in the air vents",
		"a haunted fax machine",
		"a raccoon with a business plan",
		"the world record for slowest sprint",
		"an umbrella that attracts rain",
		"my imaginary friend's lawyer",
	}
}

// fallbackDeck builds a round deck from the static lists. The prompt rotates
// by round number and responses cycle with a copy marker once the list is
// exhausted, so any requested pool size can be served.
func fallbackDeck(roundNumber, responseCount int) RoundDeck {
	prompts := fallbackPromptList()
	responses := fallbackResponseList()
	if roundNumber < 1 {
		roundNumber = 1
	}
	deck := RoundDeck{
		PromptText:    prompts[(roundNumber-1)%len(prompts)],
		ResponseTexts: make([]string, 0, responseCount),
	}
	for i := 0; i < responseCount; i++ {
		text := responses[i%len(responses)]
		if copyNumber := i / len(responses); copyNumber > 0 {
			text = fmt.Sprintf("%s (again)", text)
		}
		deck.ResponseTexts = append(deck.ResponseTexts, text)
	}
	return deck
}

// loadDeckLibrary draws a round deck from the pre-authored deck_cards table.
func (s *Server) loadDeckLibrary(responseCount int) (RoundDeck, error) {
	var prompts []db.DeckCard
	if err := s.db.Where("kind = ?", cardKindPrompt).Order("random()").Limit(1).Find(&prompts).Error; err != nil {
		return RoundDeck{}, err
	}
	if len(prompts) == 0 {
		return RoundDeck{}, &ResourceError{Reason: "deck library has no prompt cards"}
	}
	var responses []db.DeckCard
	if err := s.db.Where("kind = ?", cardKindResponse).Order("random()").Limit(responseCount).Find(&responses).Error; err != nil {
		return RoundDeck{}, err
	}
	if len(responses) < responseCount {
		return RoundDeck{}, &ResourceError{Reason: "deck library has too few response cards"}
	}
	deck := RoundDeck{PromptText: prompts[0].Text}
	for _, record := range responses {
		deck.ResponseTexts = append(deck.ResponseTexts, record.Text)
	}
	return deck, nil
}
