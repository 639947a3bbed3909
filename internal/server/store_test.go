package server

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestGame(store *Store) *Game {
	return store.CreateGame(5, 8, 0, 0)
}

func TestCreateGameDefaults(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)
	if game.Phase != phaseLobby {
		t.Fatalf("expected lobby phase, got %s", game.Phase)
	}
	if game.CurrentRound != 1 {
		t.Fatalf("expected round counter at 1, got %d", game.CurrentRound)
	}
	if len(game.JoinCode) != 6 {
		t.Fatalf("expected 6-character join code, got %q", game.JoinCode)
	}
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	for _, r := range game.JoinCode {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("join code %q contains %q outside the alphabet", game.JoinCode, r)
		}
	}
}

func TestFindGameByJoinCode(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)

	found, ok := store.FindGameByJoinCode(strings.ToLower(game.JoinCode))
	if !ok || found.ID != game.ID {
		t.Fatalf("expected lookup by lowercase code to find the game")
	}
	if _, ok := store.FindGameByJoinCode("NOPE12"); ok {
		t.Fatalf("expected unknown code to miss")
	}
}

func TestAddPlayerFirstIsHost(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)

	_, ada, err := store.AddPlayer(game.ID, "Ada")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	if !ada.IsHost || game.HostID != ada.ID {
		t.Fatalf("expected first player to be host")
	}
	_, ben, err := store.AddPlayer(game.ID, "Ben")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	if ben.IsHost {
		t.Fatalf("expected second player not to be host")
	}
}

func TestAddPlayerNameTaken(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)
	if _, _, err := store.AddPlayer(game.ID, "Ada"); err != nil {
		t.Fatalf("add player: %v", err)
	}
	_, _, err := store.AddPlayer(game.ID, "ADA")
	if classifyError(err) != errorKindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddPlayerReclaimsDisconnectedSeat(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)
	_, ada, err := store.AddPlayer(game.ID, "Ada")
	if err != nil {
		t.Fatalf("add player: %v", err)
	}
	adaID := ada.ID
	if _, _, err := store.MarkDisconnected(game.ID, adaID); err != nil {
		t.Fatalf("mark disconnected: %v", err)
	}

	_, reclaimed, err := store.AddPlayer(game.ID, "ada")
	if err != nil {
		t.Fatalf("expected reclaim to succeed, got %v", err)
	}
	if reclaimed.ID != adaID {
		t.Fatalf("expected the same seat back, got %s", reclaimed.ID)
	}
	if !reclaimed.Connected {
		t.Fatalf("expected reclaimed seat to be connected")
	}
}

func TestAddPlayerAfterLobby(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)
	if _, _, err := store.AddPlayer(game.ID, "Ada"); err != nil {
		t.Fatalf("add player: %v", err)
	}
	if _, err := store.UpdateGame(game.ID, func(game *Game) error {
		setPhase(game, phaseSubmission)
		return nil
	}); err != nil {
		t.Fatalf("update game: %v", err)
	}
	_, _, err := store.AddPlayer(game.ID, "Ben")
	if classifyError(err) != errorKindGameState {
		t.Fatalf("expected game-state error, got %v", err)
	}
}

func TestAddPlayerFullCountsConnectedOnly(t *testing.T) {
	store := NewStore()
	game := store.CreateGame(5, 2, 0, 0)
	_, ada, _ := store.AddPlayer(game.ID, "Ada")
	store.AddPlayer(game.ID, "Ben")

	if _, _, err := store.AddPlayer(game.ID, "Cat"); classifyError(err) != errorKindValidation {
		t.Fatalf("expected full game to reject a third player")
	}

	// A disconnected seat frees capacity without being deleted.
	store.MarkDisconnected(game.ID, ada.ID)
	if _, _, err := store.AddPlayer(game.ID, "Cat"); err != nil {
		t.Fatalf("expected join after a disconnect, got %v", err)
	}
}

func TestMarkDisconnectedPromotesEarliestJoined(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)
	_, ada, _ := store.AddPlayer(game.ID, "Ada")
	_, ben, _ := store.AddPlayer(game.ID, "Ben")
	benID := ben.ID
	store.AddPlayer(game.ID, "Cat")

	_, newHostID, err := store.MarkDisconnected(game.ID, ada.ID)
	if err != nil {
		t.Fatalf("mark disconnected: %v", err)
	}
	if newHostID != benID {
		t.Fatalf("expected host to pass to the earliest joined player, got %s", newHostID)
	}
	if game.HostID != benID {
		t.Fatalf("expected game host updated, got %s", game.HostID)
	}
	hostPlayer, _ := findPlayer(game, benID)
	if !hostPlayer.IsHost {
		t.Fatalf("expected promoted player flagged as host")
	}
}

func TestMarkDisconnectedLastPlayerLeavesNoHost(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)
	_, ada, _ := store.AddPlayer(game.ID, "Ada")

	_, newHostID, err := store.MarkDisconnected(game.ID, ada.ID)
	if err != nil {
		t.Fatalf("mark disconnected: %v", err)
	}
	if newHostID != "" || game.HostID != "" {
		t.Fatalf("expected no host with everyone gone, got %q", game.HostID)
	}

	// First returning player picks host status back up.
	if _, err := store.MarkConnected(game.ID, ada.ID); err != nil {
		t.Fatalf("mark connected: %v", err)
	}
	if game.HostID != ada.ID {
		t.Fatalf("expected returning player to become host")
	}
}

func TestTransferHost(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)
	_, ada, _ := store.AddPlayer(game.ID, "Ada")
	_, ben, _ := store.AddPlayer(game.ID, "Ben")
	adaID, benID := ada.ID, ben.ID

	if _, err := store.TransferHost(game.ID, benID, adaID); classifyError(err) != errorKindValidation {
		t.Fatalf("expected non-host transfer to fail")
	}
	if _, err := store.TransferHost(game.ID, adaID, adaID); classifyError(err) != errorKindValidation {
		t.Fatalf("expected self transfer to fail")
	}
	store.MarkDisconnected(game.ID, benID)
	if _, err := store.TransferHost(game.ID, adaID, benID); classifyError(err) != errorKindValidation {
		t.Fatalf("expected transfer to a disconnected player to fail")
	}
	store.MarkConnected(game.ID, benID)
	if _, err := store.TransferHost(game.ID, adaID, benID); err != nil {
		t.Fatalf("transfer host: %v", err)
	}
	if game.HostID != benID {
		t.Fatalf("expected host moved to target")
	}
	previous, _ := findPlayer(game, adaID)
	if previous.IsHost {
		t.Fatalf("expected previous host demoted")
	}
}

func TestUpdateGameBumpsVersion(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)
	before := game.Version

	if _, err := store.UpdateGame(game.ID, func(game *Game) error {
		game.TargetScore = 7
		return nil
	}); err != nil {
		t.Fatalf("update game: %v", err)
	}
	if game.Version != before+1 {
		t.Fatalf("expected version bump, got %d", game.Version)
	}

	_, err := store.UpdateGame(game.ID, func(game *Game) error {
		return gameStateErrorf("rejected")
	})
	if err == nil {
		t.Fatalf("expected update error")
	}
	if game.Version != before+1 {
		t.Fatalf("expected failed update not to bump version, got %d", game.Version)
	}
}

func TestUpdateGameIfPhaseMismatch(t *testing.T) {
	store := NewStore()
	game := newTestGame(store)

	_, err := store.UpdateGameIf(game.ID, phaseVoting, func(game *Game) error {
		t.Fatalf("update should not run")
		return nil
	})
	if classifyError(err) != errorKindGameState {
		t.Fatalf("expected game-state error, got %v", err)
	}
}

func TestUpdateGameUnknownID(t *testing.T) {
	store := NewStore()
	_, err := store.UpdateGame("missing", func(game *Game) error { return nil })
	if !errors.Is(err, errGameNotFound) {
		t.Fatalf("expected game not found, got %v", err)
	}
}

func TestListGameSummaries(t *testing.T) {
	store := NewStore()
	first := newTestGame(store)
	second := newTestGame(store)
	store.AddPlayer(second.ID, "Ada")

	summaries := store.ListGameSummaries()
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != first.ID || summaries[1].ID != second.ID {
		t.Fatalf("expected creation order, got %v", summaries)
	}
	if summaries[1].Players != 1 {
		t.Fatalf("expected connected player count, got %d", summaries[1].Players)
	}
}

func TestEarliestConnectedOrdering(t *testing.T) {
	game := &Game{HostID: "p1"}
	now := time.Now().UTC()
	game.Players = []Player{
		{ID: "p1", Connected: true, JoinedAt: now},
		{ID: "p2", Connected: false, JoinedAt: now.Add(time.Second)},
		{ID: "p3", Connected: true, JoinedAt: now.Add(2 * time.Second)},
		{ID: "p4", Connected: true, JoinedAt: now.Add(3 * time.Second)},
	}
	next := earliestConnected(game)
	if next == nil || next.ID != "p3" {
		t.Fatalf("expected earliest connected non-host, got %#v", next)
	}
}
