package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(gameID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[gameID]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[gameID] = group
	}
	group[conn] = struct{}{}
}

func (h *wsHub) Remove(gameID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[gameID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, gameID)
	}
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(gameID string, payload any) {
	h.mu.Lock()
	group := h.groups[gameID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(gameID, conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	gameID, ok := parseWebsocketPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if _, exists := s.store.GetGame(gameID); !exists {
		http.NotFound(w, r)
		return
	}
	playerID := r.URL.Query().Get("player_id")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Info().Str("game_id", gameID).Str("remote", r.RemoteAddr).Msg("ws connected")
	s.ws.Add(gameID, conn)
	if playerID != "" {
		if game, err := s.store.MarkConnected(gameID, playerID); err == nil {
			s.broadcastGameUpdate(game)
		}
	}
	if game, ok := s.store.GetGame(gameID); ok {
		s.ws.Send(conn, s.snapshot(game))
	}
	go s.readWS(gameID, playerID, conn)
}

func (s *Server) readWS(gameID, playerID string, conn *websocket.Conn) {
	defer s.ws.Remove(gameID, conn)
	if playerID != "" {
		defer s.handlePlayerDrop(gameID, playerID)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Info().Str("game_id", gameID).Err(err).Msg("ws disconnected")
			return
		}
	}
}

// handlePlayerDrop marks a player disconnected when their socket dies. The
// player record and score survive; host status moves if needed.
func (s *Server) handlePlayerDrop(gameID, playerID string) {
	game, newHostID, err := s.store.MarkDisconnected(gameID, playerID)
	if err != nil {
		return
	}
	if err := s.persistDisconnect(game, playerID, newHostID); err != nil {
		log.Error().Str("game_id", gameID).Err(err).Msg("persist disconnect failed")
	}
	log.Info().Str("game_id", gameID).Str("player_id", playerID).
		Str("new_host_id", newHostID).Msg("player dropped")
	s.broadcastGameUpdate(game)
	s.maybeAdvanceAfterDrop(gameID)
}

// A disconnect can complete the remaining electorate or submitter set, so
// recheck the auto-advance conditions.
func (s *Server) maybeAdvanceAfterDrop(gameID string) {
	game, ok := s.store.GetGame(gameID)
	if !ok {
		return
	}
	switch game.Phase {
	case phaseSubmission:
		game, err := s.store.UpdateGameIf(gameID, phaseSubmission, func(game *Game) error {
			round := currentRound(game)
			if !submissionsComplete(game, round) {
				return gameStateErrorf("waiting for submissions")
			}
			_, err := s.advancePhase(game, transitionAuto, timeNowUTC())
			return err
		})
		if err == nil {
			s.afterPhaseChange(context.Background(), game, phaseSubmission, "player_left")
		}
	case phaseVoting:
		round := currentRound(game)
		if round != nil && votesComplete(game, round) {
			if game, resolved, err := s.resolveRound(gameID); err == nil && resolved {
				s.afterPhaseChange(context.Background(), game, phaseVoting, "player_left")
			}
		}
	}
}

func (s *Server) broadcastGameUpdate(game *Game) {
	if s.ws == nil {
		return
	}
	s.ws.Broadcast(game.ID, s.snapshot(game))
}
