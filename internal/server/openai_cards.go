package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// cardProducer generates one round's cards. Implementations may fail; the
// distribution engine always has the static fallback deck behind them.
type cardProducer interface {
	GenerateDeck(ctx context.Context, roundNumber, responseCount int) (RoundDeck, error)
}

type openAIProducer struct {
	apiKey string
	model  string
	client *http.Client
}

func newOpenAIProducer(apiKey, model string) *openAIProducer {
	return &openAIProducer{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const openAICardSystemPrompt = `You write cards for a fill-in-the-blank party game.
Reply with one PROMPT line containing a sentence with a blank written as ____,
followed by numbered RESPONSE lines, each a short funny noun phrase.
Format:
PROMPT: <text with ____>
1. <response>
2. <response>`

func (p *openAIProducer) GenerateDeck(ctx context.Context, roundNumber, responseCount int) (RoundDeck, error) {
	if strings.TrimSpace(p.apiKey) == "" {
		return RoundDeck{}, errors.New("OpenAI API key is not configured")
	}
	userPrompt := fmt.Sprintf("Round %d. Write 1 prompt and %d responses.", roundNumber, responseCount)
	reqBody := openAIChatRequest{
		Model: p.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: openAICardSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.9,
		MaxTokens:   1200,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return RoundDeck{}, fmt.Errorf("failed to build OpenAI request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return RoundDeck{}, fmt.Errorf("failed to build OpenAI request")
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(p.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return RoundDeck{}, fmt.Errorf("failed to reach OpenAI")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RoundDeck{}, fmt.Errorf("failed to read OpenAI response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RoundDeck{}, fmt.Errorf("OpenAI request failed (%d)", resp.StatusCode)
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return RoundDeck{}, fmt.Errorf("failed to parse OpenAI response")
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return RoundDeck{}, fmt.Errorf("OpenAI error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return RoundDeck{}, errors.New("OpenAI returned no choices")
	}

	deck := parseDeckText(parsed.Choices[0].Message.Content)
	if deck.PromptText == "" || len(deck.ResponseTexts) == 0 {
		return RoundDeck{}, errors.New("OpenAI did not return cards in the expected format")
	}
	return deck, nil
}

func parseDeckText(raw string) RoundDeck {
	deck := RoundDeck{}
	seen := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "PROMPT:"); ok {
			if deck.PromptText == "" {
				deck.PromptText = strings.TrimSpace(rest)
			}
			continue
		}
		line = strings.TrimLeft(line, "-*")
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key := strings.ToLower(line)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		deck.ResponseTexts = append(deck.ResponseTexts, line)
	}
	return deck
}
