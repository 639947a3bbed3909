package server

import (
	"errors"
	"net/http"

	"card-clash/internal/db"

	"github.com/rs/zerolog/log"
)

type joinRequest struct {
	Name string `json:"name" validate:"required,max=20"`
}

type startRequest struct {
	PlayerID string `json:"player_id" validate:"required"`
}

type submitRequest struct {
	PlayerID        string   `json:"player_id" validate:"required"`
	PromptCardID    string   `json:"prompt_card_id" validate:"required"`
	ResponseCardIDs []string `json:"response_card_ids" validate:"required,min=1,dive,required"`
}

type voteBody struct {
	PlayerID     string `json:"player_id" validate:"required"`
	SubmissionID string `json:"submission_id" validate:"required"`
}

type settingsRequest struct {
	PlayerID          string `json:"player_id" validate:"required"`
	TargetScore       int    `json:"target_score" validate:"omitempty,min=1"`
	MaxPlayers        int    `json:"max_players" validate:"omitempty,min=0"`
	SubmissionSeconds int    `json:"submission_seconds" validate:"omitempty,min=0"`
	VotingSeconds     int    `json:"voting_seconds" validate:"omitempty,min=0"`
}

type transferHostRequest struct {
	PlayerID string `json:"player_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

type leaveRequest struct {
	PlayerID string `json:"player_id" validate:"required"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.CreateGame(s.cfg.TargetScore, s.cfg.MaxPlayers,
		s.cfg.SubmissionSeconds, s.cfg.VotingSeconds)
	if err := s.persistGame(game); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	log.Info().Str("game_id", game.ID).Str("join_code", game.JoinCode).Msg("game created")
	writeJSON(w, http.StatusCreated, map[string]string{
		"game_id":   game.ID,
		"join_code": game.JoinCode,
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	summaries := make([]map[string]any, 0)
	for _, game := range s.store.ListGameSummaries() {
		summaries = append(summaries, map[string]any{
			"game_id":   game.ID,
			"join_code": game.JoinCode,
			"phase":     game.Phase,
			"players":   game.Players,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": summaries})
}

func (s *Server) handleGameSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if gameID, playerID, ok := parseHandPath(r.URL.Path); ok {
			s.handleHand(w, r, gameID, playerID)
			return
		}
	}
	gameID, action, ok := parseGamePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		switch action {
		case "":
			s.handleGetGame(w, r, gameID)
		case "state":
			s.handleState(w, r, gameID)
		case "events":
			s.handleEvents(w, r, gameID)
		default:
			http.NotFound(w, r)
		}
	case http.MethodPost:
		switch action {
		case "join":
			s.handleJoinGame(w, r, gameID)
		case "start":
			s.handleStartGame(w, r, gameID)
		case "submit":
			s.handleSubmit(w, r, gameID)
		case "vote":
			s.handleVote(w, r, gameID)
		case "advance":
			s.handleAdvance(w, r, gameID)
		case "reset":
			s.handleReset(w, r, gameID)
		case "settings":
			s.handleSettings(w, r, gameID)
		case "transfer-host":
			s.handleTransferHost(w, r, gameID)
		case "leave":
			s.handleLeave(w, r, gameID)
		case "reconnect":
			s.handleReconnect(w, r, gameID)
		default:
			http.NotFound(w, r)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request, gameID string) {
	game, ok := s.lookupGame(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(game))
}

// handleState serves the full resync snapshot, including the caller's hand
// when player_id is supplied.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request, gameID string) {
	game, ok := s.lookupGame(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	payload := s.snapshot(game)
	if playerID := r.URL.Query().Get("player_id"); playerID != "" {
		if round := currentRound(game); round != nil {
			payload["hand"] = handPayload(round, playerID)
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHand(w http.ResponseWriter, r *http.Request, gameID, playerID string) {
	game, player, ok := s.store.GetPlayer(gameID, playerID)
	if !ok || player == nil {
		http.NotFound(w, r)
		return
	}
	round := currentRound(game)
	if round == nil {
		writeError(w, http.StatusConflict, "round not started")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id":   game.ID,
		"player_id": playerID,
		"cards":     handPayload(round, playerID),
	})
}

func handPayload(round *RoundState, playerID string) []map[string]any {
	hand := make([]map[string]any, 0)
	for _, card := range cardsOwnedBy(round, playerID) {
		hand = append(hand, map[string]any{
			"id":   card.ID,
			"text": card.Text,
		})
	}
	return hand
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request, gameID string) {
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	name, err := validateName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, player, err := s.store.AddPlayer(gameID, name)
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	if err := s.persistPlayer(game, player); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to join game")
		return
	}
	log.Info().Str("game_id", game.ID).Str("player_id", player.ID).
		Str("player_name", name).Msg("player joined")
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id":   game.ID,
		"player_id": player.ID,
		"player":    player.Name,
		"join_code": game.JoinCode,
		"is_host":   player.IsHost,
	})
	s.broadcastGameUpdate(game)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request, gameID string) {
	var req startRequest
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Phase != phaseLobby {
			return gameStateErrorf("game already started")
		}
		if game.HostID != req.PlayerID {
			return validationErrorf("only the host can start the game")
		}
		_, err := s.advancePhase(game, transitionManual, timeNowUTC())
		return err
	})
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	log.Info().Str("game_id", game.ID).Msg("game started")
	s.afterPhaseChange(r.Context(), game, phaseLobby, "host_start")
	game, _ = s.lookupGame(gameID)
	writeJSON(w, http.StatusOK, s.snapshot(game))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, gameID string) {
	var req submitRequest
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, entry, advanced, err := s.submitCards(gameID, submissionRequest{
		PlayerID:        req.PlayerID,
		PromptCardID:    req.PromptCardID,
		ResponseCardIDs: req.ResponseCardIDs,
	})
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	round := roundByNumber(game, game.CurrentRound)
	if err := s.persistSubmission(game, round, entry); err != nil {
		log.Error().Str("game_id", game.ID).Err(err).Msg("persist submission failed")
	}
	log.Info().Str("game_id", game.ID).Str("player_id", req.PlayerID).
		Int("round", game.CurrentRound).Msg("submission received")
	writeJSON(w, http.StatusOK, map[string]any{
		"submission_id": entry.ID,
		"round":         game.CurrentRound,
	})
	if advanced {
		s.afterPhaseChange(r.Context(), game, phaseSubmission, "all_submitted")
	} else {
		s.broadcastGameUpdate(game)
	}
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, gameID string) {
	var req voteBody
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, entry, complete, err := s.castVote(gameID, voteRequest{
		PlayerID:     req.PlayerID,
		SubmissionID: req.SubmissionID,
	})
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	round := roundByNumber(game, game.CurrentRound)
	if err := s.persistVote(game, round, entry); err != nil {
		log.Error().Str("game_id", game.ID).Err(err).Msg("persist vote failed")
	}
	log.Info().Str("game_id", game.ID).Str("player_id", req.PlayerID).
		Int("round", game.CurrentRound).Msg("vote cast")
	writeJSON(w, http.StatusOK, map[string]any{
		"vote_id": entry.ID,
		"round":   game.CurrentRound,
	})
	if complete {
		if game, resolved, err := s.resolveRound(gameID); err == nil && resolved {
			s.afterPhaseChange(r.Context(), game, phaseVoting, "all_voted")
			return
		}
	}
	s.broadcastGameUpdate(game)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, gameID string) {
	var req startRequest
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fromPhase := ""
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.HostID != req.PlayerID {
			return validationErrorf("only the host can advance the game")
		}
		fromPhase = game.Phase
		_, err := s.advancePhase(game, transitionManual, timeNowUTC())
		return err
	})
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	log.Info().Str("game_id", game.ID).Str("from", fromPhase).Str("to", game.Phase).
		Msg("phase advanced by host")
	s.afterPhaseChange(r.Context(), game, fromPhase, "host_advance")
	game, _ = s.lookupGame(gameID)
	writeJSON(w, http.StatusOK, s.snapshot(game))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, gameID string) {
	var req startRequest
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.HostID != req.PlayerID {
			return validationErrorf("only the host can reset the game")
		}
		resetToLobby(game, timeNowUTC())
		return nil
	})
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	s.cancelPhaseTimer(game.ID)
	if err := s.persistPhase(game, eventGameReset, EventPayload{Phase: game.Phase}); err != nil {
		log.Error().Str("game_id", game.ID).Err(err).Msg("persist reset failed")
	}
	log.Info().Str("game_id", game.ID).Msg("game reset to lobby")
	writeJSON(w, http.StatusOK, s.snapshot(game))
	s.broadcastGameUpdate(game)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, gameID string) {
	var req settingsRequest
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.store.UpdateGame(gameID, func(game *Game) error {
		if game.Phase != phaseLobby && game.Phase != phaseResults {
			return gameStateErrorf("settings cannot change mid-round")
		}
		if game.HostID != req.PlayerID {
			return validationErrorf("only the host can update settings")
		}
		if req.MaxPlayers > 0 {
			if req.MaxPlayers < connectedCount(game) {
				return validationErrorf("max players is below current player count")
			}
			game.MaxPlayers = req.MaxPlayers
		}
		if req.TargetScore > 0 {
			game.TargetScore = req.TargetScore
		}
		if req.SubmissionSeconds > 0 {
			game.SubmissionSeconds = req.SubmissionSeconds
		}
		if req.VotingSeconds > 0 {
			game.VotingSeconds = req.VotingSeconds
		}
		return nil
	})
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	if err := s.persistSettings(game); err != nil {
		log.Error().Str("game_id", game.ID).Err(err).Msg("persist settings failed")
	}
	writeJSON(w, http.StatusOK, s.snapshot(game))
	s.broadcastGameUpdate(game)
}

func (s *Server) handleTransferHost(w http.ResponseWriter, r *http.Request, gameID string) {
	var req transferHostRequest
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.store.TransferHost(gameID, req.PlayerID, req.TargetID)
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	if s.db != nil {
		if err := s.persistHostFlag(game, req.TargetID); err != nil {
			log.Error().Str("game_id", game.ID).Err(err).Msg("persist host transfer failed")
		}
	}
	if err := s.persistEvent(game, eventHostTransferred, EventPayload{
		NewHostID: req.TargetID,
		Reason:    "manual",
	}); err != nil {
		log.Error().Str("game_id", game.ID).Err(err).Msg("persist event failed")
	}
	log.Info().Str("game_id", game.ID).Str("new_host_id", req.TargetID).Msg("host transferred")
	writeJSON(w, http.StatusOK, s.snapshot(game))
	s.broadcastGameUpdate(game)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request, gameID string) {
	var req leaveRequest
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, ok := s.lookupGame(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.handlePlayerDrop(game.ID, req.PlayerID)
	game, _ = s.lookupGame(gameID)
	writeJSON(w, http.StatusOK, s.snapshot(game))
}

// handleReconnect marks the player connected again and returns the full
// snapshot so the client converges on authoritative state in one round trip.
func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request, gameID string) {
	var req leaveRequest
	if err := bindRequest(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	game, err := s.store.MarkConnected(gameID, req.PlayerID)
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	if player, ok := findPlayer(game, req.PlayerID); ok && player.DBID != 0 && s.db != nil {
		if err := s.db.Model(&db.Player{}).Where("id = ?", player.DBID).
			Update("is_connected", true).Error; err != nil {
			log.Error().Str("game_id", game.ID).Err(err).Msg("persist reconnect failed")
		}
	}
	log.Info().Str("game_id", game.ID).Str("player_id", req.PlayerID).Msg("player reconnected")
	payload := s.snapshot(game)
	if round := currentRound(game); round != nil {
		payload["hand"] = handPayload(round, req.PlayerID)
	}
	writeJSON(w, http.StatusOK, payload)
	s.broadcastGameUpdate(game)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, gameID string) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "events not available")
		return
	}
	game, ok := s.lookupGame(gameID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := s.ensureGameDBID(game); err != nil || game.DBID == 0 {
		writeError(w, http.StatusInternalServerError, "failed to load game")
		return
	}
	var records []db.Event
	if err := s.db.Where("game_id = ?", game.DBID).Order("created_at asc").Find(&records).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	events := make([]map[string]any, 0, len(records))
	for _, record := range records {
		events = append(events, map[string]any{
			"id":         record.ID,
			"type":       record.Type,
			"round":      record.Round,
			"player_id":  record.PlayerID,
			"created_at": record.CreatedAt,
			"payload":    record.Payload,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": game.ID,
		"events":  events,
	})
}

func (s *Server) lookupGame(gameIDOrCode string) (*Game, bool) {
	if game, ok := s.store.GetGame(gameIDOrCode); ok {
		return game, true
	}
	return s.store.FindGameByJoinCode(gameIDOrCode)
}

// writeGameError maps the error taxonomy onto HTTP statuses. Unknown errors
// are logged and surfaced as a generic failure without internal detail.
func (s *Server) writeGameError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errGameNotFound) {
		http.NotFound(w, r)
		return
	}
	switch classifyError(err) {
	case errorKindValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case errorKindGameState:
		writeError(w, http.StatusConflict, err.Error())
	case errorKindResource:
		writeError(w, http.StatusConflict, err.Error())
	case errorKindConnection:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
