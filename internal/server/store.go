package server

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store holds the authoritative session state. Every mutation goes through
// UpdateGame so reads and writes of a game are serialized under one lock,
// and each successful mutation bumps the game's version counter.
type Store struct {
	mu     sync.Mutex
	nextID int
	games  map[string]*Game
}

func NewStore() *Store {
	return &Store{
		nextID: 1,
		games:  make(map[string]*Game),
	}
}

func (s *Store) CreateGame(targetScore, maxPlayers, submissionSeconds, votingSeconds int) *Game {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("game-%d", s.nextID)
	s.nextID++
	code := newJoinCode()
	for s.joinCodeTakenLocked(code) {
		code = newJoinCode()
	}
	game := &Game{
		ID:                id,
		JoinCode:          code,
		Phase:             phaseLobby,
		PhaseStartedAt:    timeNowUTC(),
		CurrentRound:      1,
		TargetScore:       targetScore,
		MaxPlayers:        maxPlayers,
		SubmissionSeconds: submissionSeconds,
		VotingSeconds:     votingSeconds,
	}
	s.games[id] = game
	return game
}

func (s *Store) joinCodeTakenLocked(code string) bool {
	for _, game := range s.games {
		if game.JoinCode == code {
			return true
		}
	}
	return false
}

func (s *Store) GetGame(id string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	return game, ok
}

func (s *Store) FindGameByJoinCode(code string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, game := range s.games {
		if game.JoinCode == code {
			return game, true
		}
	}
	return nil, false
}

// UpdateGame applies update under the store lock. The version counter is
// bumped only when the update succeeds.
func (s *Store) UpdateGame(id string, update func(game *Game) error) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return nil, errGameNotFound
	}
	if err := update(game); err != nil {
		return nil, err
	}
	game.Version++
	return game, nil
}

// UpdateGameIf is the compare-and-swap flavor of UpdateGame: the update only
// runs while the game still sits in the expected phase.
func (s *Store) UpdateGameIf(id, expectedPhase string, update func(game *Game) error) (*Game, error) {
	return s.UpdateGame(id, func(game *Game) error {
		if game.Phase != expectedPhase {
			return gameStateErrorf("expected phase %s, game is in %s", expectedPhase, game.Phase)
		}
		return update(game)
	})
}

// AddPlayer joins a player into a lobby, or reclaims an existing seat when
// the name matches a disconnected player (case-insensitive).
func (s *Store) AddPlayer(gameIDOrCode, name string) (*Game, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[gameIDOrCode]
	if !ok {
		for _, candidate := range s.games {
			if candidate.JoinCode == strings.ToUpper(gameIDOrCode) {
				game = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, nil, errGameNotFound
	}

	for i := range game.Players {
		if !strings.EqualFold(game.Players[i].Name, name) {
			continue
		}
		if game.Players[i].Connected {
			return nil, nil, validationErrorf("name %q is already taken", name)
		}
		game.Players[i].Connected = true
		if game.HostID == "" {
			game.Players[i].IsHost = true
			game.HostID = game.Players[i].ID
		}
		game.Version++
		return game, &game.Players[i], nil
	}

	if game.Phase != phaseLobby {
		return nil, nil, gameStateErrorf("game already started")
	}
	if game.MaxPlayers > 0 && connectedCount(game) >= game.MaxPlayers {
		return nil, nil, validationErrorf("game is full")
	}

	player := Player{
		ID:        uuid.NewString(),
		Name:      name,
		IsHost:    len(game.Players) == 0,
		Connected: true,
		JoinedAt:  timeNowUTC(),
	}
	game.Players = append(game.Players, player)
	if player.IsHost {
		game.HostID = player.ID
	}
	game.Version++
	return game, &game.Players[len(game.Players)-1], nil
}

// MarkDisconnected flags the player as gone without deleting it. When the
// host drops, host status moves to the earliest-joined connected player so
// the session never runs with an absent host. The returned string is the new
// host's id, empty when no transfer happened.
func (s *Store) MarkDisconnected(gameID, playerID string) (*Game, string, error) {
	newHostID := ""
	game, err := s.UpdateGame(gameID, func(game *Game) error {
		player, ok := findPlayer(game, playerID)
		if !ok {
			return validationErrorf("player not found")
		}
		player.Connected = false
		if game.HostID != playerID {
			return nil
		}
		next := earliestConnected(game)
		player.IsHost = false
		if next == nil {
			game.HostID = ""
			return nil
		}
		next.IsHost = true
		game.HostID = next.ID
		newHostID = next.ID
		return nil
	})
	return game, newHostID, err
}

// MarkConnected flags a returning player as connected again.
func (s *Store) MarkConnected(gameID, playerID string) (*Game, error) {
	return s.UpdateGame(gameID, func(game *Game) error {
		player, ok := findPlayer(game, playerID)
		if !ok {
			return validationErrorf("player not found")
		}
		player.Connected = true
		if game.HostID == "" {
			player.IsHost = true
			game.HostID = player.ID
		}
		return nil
	})
}

// TransferHost moves host authority in one step so there is never a window
// with two hosts or none.
func (s *Store) TransferHost(gameID, fromID, toID string) (*Game, error) {
	return s.UpdateGame(gameID, func(game *Game) error {
		if game.HostID != fromID {
			return validationErrorf("only the host can transfer host status")
		}
		target, ok := findPlayer(game, toID)
		if !ok {
			return validationErrorf("target player not found")
		}
		if !target.Connected {
			return validationErrorf("target player is not connected")
		}
		if toID == fromID {
			return validationErrorf("player is already the host")
		}
		if current, ok := findPlayer(game, fromID); ok {
			current.IsHost = false
		}
		target.IsHost = true
		game.HostID = toID
		return nil
	})
}

func (s *Store) GetPlayer(gameID, playerID string) (*Game, *Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[gameID]
	if !ok {
		return nil, nil, false
	}
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return game, &game.Players[i], true
		}
	}
	return game, nil, false
}

func (s *Store) ListGameSummaries() []GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]GameSummary, 0, len(s.games))
	for _, game := range s.games {
		list = append(list, GameSummary{
			ID:       game.ID,
			JoinCode: game.JoinCode,
			Phase:    game.Phase,
			Players:  connectedCount(game),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return gameSortKey(list[i].ID) < gameSortKey(list[j].ID)
	})
	return list
}

func gameSortKey(id string) int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0
	}
	value, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return value
}

func findPlayer(game *Game, playerID string) (*Player, bool) {
	for i := range game.Players {
		if game.Players[i].ID == playerID {
			return &game.Players[i], true
		}
	}
	return nil, false
}

func connectedCount(game *Game) int {
	count := 0
	for i := range game.Players {
		if game.Players[i].Connected {
			count++
		}
	}
	return count
}

func earliestConnected(game *Game) *Player {
	var next *Player
	for i := range game.Players {
		player := &game.Players[i]
		if !player.Connected || player.ID == game.HostID {
			continue
		}
		if next == nil || player.JoinedAt.Before(next.JoinedAt) {
			next = player
		}
	}
	return next
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
