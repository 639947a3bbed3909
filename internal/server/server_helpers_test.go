package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"card-clash/internal/config"
)

// testConfig disables phase timers so tests drive every transition
// explicitly.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.SubmissionSeconds = 0
	cfg.VotingSeconds = 0
	cfg.ResultsSeconds = 0
	return cfg
}

func createGame(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["game_id"].(string)
}

func createGameWithCode(t *testing.T, ts *httptest.Server) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["game_id"].(string), body["join_code"].(string)
}

func joinPlayer(t *testing.T, ts *httptest.Server, gameID, name string) string {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/join", map[string]string{
		"name": name,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["player_id"].(string)
}

func startGame(t *testing.T, ts *httptest.Server, gameID, hostID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/start", map[string]any{
		"player_id": hostID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func fetchSnapshot(t *testing.T, ts *httptest.Server, gameID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+gameID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

func fetchHand(t *testing.T, ts *httptest.Server, gameID, playerID string) []map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+gameID+"/hand/"+playerID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	raw, ok := body["cards"].([]any)
	if !ok {
		t.Fatalf("expected cards array, got %#v", body["cards"])
	}
	cards := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		cards = append(cards, item.(map[string]any))
	}
	return cards
}

// submitFirstCard plays the first card in the player's hand against the
// round's prompt.
func submitFirstCard(t *testing.T, ts *httptest.Server, gameID, playerID string) {
	t.Helper()
	snapshot := fetchSnapshot(t, ts, gameID)
	prompt, ok := snapshot["prompt_card"].(map[string]any)
	if !ok {
		t.Fatalf("expected prompt card in snapshot, got %#v", snapshot["prompt_card"])
	}
	hand := fetchHand(t, ts, gameID, playerID)
	if len(hand) == 0 {
		t.Fatalf("expected a dealt hand for player %s", playerID)
	}
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/submit", map[string]any{
		"player_id":         playerID,
		"prompt_card_id":    prompt["id"],
		"response_card_ids": []string{hand[0]["id"].(string)},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func assertString(t *testing.T, value any) {
	t.Helper()
	if _, ok := value.(string); !ok {
		t.Fatalf("expected string, got %T", value)
	}
}

// newRoundGame builds an in-memory game sitting in the given phase with one
// round, a prompt card and a five-card hand per player. Player IDs are
// p1..pn.
func newRoundGame(phase string, names ...string) *Game {
	game := &Game{
		ID:           "game-1",
		JoinCode:     "AAAAAA",
		Phase:        phase,
		CurrentRound: 1,
		TargetScore:  5,
		MaxPlayers:   8,
	}
	round := RoundState{Number: 1}
	round.Cards = append(round.Cards, CardEntry{
		ID:   "prompt-1",
		Kind: cardKindPrompt,
		Text: "The prompt.",
	})
	for i, name := range names {
		id := playerIDForIndex(i)
		game.Players = append(game.Players, Player{
			ID:        id,
			Name:      name,
			IsHost:    i == 0,
			Connected: true,
			JoinedAt:  timeNowUTC(),
		})
		if i == 0 {
			game.HostID = id
		}
		for n := 0; n < 5; n++ {
			round.Cards = append(round.Cards, CardEntry{
				ID:      cardIDForPlayer(id, n),
				Kind:    cardKindResponse,
				Text:    "a response",
				OwnerID: id,
			})
		}
	}
	game.Rounds = append(game.Rounds, round)
	return game
}

func playerIDForIndex(i int) string {
	return "p" + string(rune('1'+i))
}

func cardIDForPlayer(playerID string, n int) string {
	return "card-" + playerID + "-" + string(rune('0'+n))
}
