package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSettingsUpdate(t *testing.T) {
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gameID := createGame(t, ts)
	hostID := joinPlayer(t, ts, gameID, "Ada")
	joinPlayer(t, ts, gameID, "Ben")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/settings", map[string]any{
		"player_id":          hostID,
		"target_score":       7,
		"max_players":        4,
		"submission_seconds": 60,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	snapshot := decodeBody(t, resp)
	if snapshot["target_score"] != float64(7) {
		t.Fatalf("expected target score 7, got %v", snapshot["target_score"])
	}
	if snapshot["max_players"] != float64(4) {
		t.Fatalf("expected max players 4, got %v", snapshot["max_players"])
	}
	if snapshot["submission_seconds"] != float64(60) {
		t.Fatalf("expected submission window 60, got %v", snapshot["submission_seconds"])
	}
}

func TestSettingsRejectsNonHost(t *testing.T) {
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gameID := createGame(t, ts)
	joinPlayer(t, ts, gameID, "Ada")
	otherID := joinPlayer(t, ts, gameID, "Ben")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/settings", map[string]any{
		"player_id":    otherID,
		"target_score": 7,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestSettingsRejectsMaxPlayersBelowCurrent(t *testing.T) {
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gameID := createGame(t, ts)
	hostID := joinPlayer(t, ts, gameID, "Ada")
	joinPlayer(t, ts, gameID, "Ben")
	joinPlayer(t, ts, gameID, "Cat")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/settings", map[string]any{
		"player_id":   hostID,
		"max_players": 2,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestSettingsRejectedMidRound(t *testing.T) {
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gameID := createGame(t, ts)
	hostID := joinPlayer(t, ts, gameID, "Ada")
	joinPlayer(t, ts, gameID, "Ben")
	joinPlayer(t, ts, gameID, "Cat")
	startGame(t, ts, gameID, hostID)

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/settings", map[string]any{
		"player_id":    hostID,
		"target_score": 7,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestTransferHostEndpoint(t *testing.T) {
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gameID := createGame(t, ts)
	hostID := joinPlayer(t, ts, gameID, "Ada")
	targetID := joinPlayer(t, ts, gameID, "Ben")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/transfer-host", map[string]any{
		"player_id": targetID,
		"target_id": hostID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d for non-host transfer, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/transfer-host", map[string]any{
		"player_id": hostID,
		"target_id": targetID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	snapshot := decodeBody(t, resp)
	if snapshot["host_id"] != targetID {
		t.Fatalf("expected host moved to %s, got %v", targetID, snapshot["host_id"])
	}
}

func TestEventsUnavailableWithoutDatabase(t *testing.T) {
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gameID := createGame(t, ts)
	resp := doRequest(t, ts, http.MethodGet, "/api/games/"+gameID+"/events", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, resp.StatusCode)
	}
}

func TestUnknownActionNotFound(t *testing.T) {
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gameID := createGame(t, ts)
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/explode", map[string]any{})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestInvalidRequestBody(t *testing.T) {
	srv := New(nil, testConfig())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	gameID := createGame(t, ts)
	joinPlayer(t, ts, gameID, "Ada")

	// Missing player_id fails struct validation.
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/start", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// Unknown fields are rejected outright.
	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/start", map[string]any{
		"player_id": "x",
		"bogus":     true,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestValidateName(t *testing.T) {
	if _, err := validateName("  Ada   Lovelace "); err != nil {
		t.Fatalf("expected normalization to pass, got %v", err)
	}
	name, _ := validateName("  Ada   Lovelace ")
	if name != "Ada Lovelace" {
		t.Fatalf("expected collapsed whitespace, got %q", name)
	}
	for _, bad := range []string{"", "<Ada>", "Adaé"} {
		if _, err := validateName(bad); err == nil {
			t.Fatalf("expected rejection for %q", bad)
		}
	}
}
