package server

import (
	"encoding/json"
	"errors"

	"card-clash/internal/db"

	"github.com/jackc/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// The gorm layer mirrors the in-memory store for durability. Every persist
// function tolerates a nil db so the server can run memory-only.

func (s *Server) persistGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	record := db.Game{
		JoinCode:          game.JoinCode,
		Phase:             game.Phase,
		CurrentRound:      game.CurrentRound,
		TargetScore:       game.TargetScore,
		MaxPlayers:        game.MaxPlayers,
		SubmissionSeconds: game.SubmissionSeconds,
		VotingSeconds:     game.VotingSeconds,
		PhaseStartedAt:    game.PhaseStartedAt,
	}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return err
	}
	game.DBID = record.ID
	return s.persistEvent(game, eventGameCreated, EventPayload{
		GameID:   game.ID,
		JoinCode: game.JoinCode,
	})
}

func (s *Server) persistPlayer(game *Game, player *Player) error {
	if s.db == nil {
		return nil
	}
	if player.DBID != 0 {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errGameNotFound
	}
	record := db.Player{
		GameID:      game.DBID,
		PublicID:    player.ID,
		Name:        player.Name,
		Score:       player.Score,
		IsHost:      player.IsHost,
		IsConnected: player.Connected,
		JoinedAt:    player.JoinedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.findPlayerDBID(game.DBID, player.Name)
			if lookupErr == nil && existing != 0 {
				player.DBID = existing
				return nil
			}
		}
		return err
	}
	player.DBID = record.ID
	return s.persistEvent(game, eventPlayerJoined, EventPayload{
		PlayerName: player.Name,
		PlayerID:   player.ID,
	})
}

// persistPhase mirrors a committed phase move. When fromPhase is known the
// update is conditional on it, so a stale mirror write can never march the
// stored phase backwards; a no-row match means another writer already
// applied it.
func (s *Server) persistPhase(game *Game, eventType string, payload EventPayload) error {
	return s.persistPhaseFrom(game, "", eventType, payload)
}

func (s *Server) persistPhaseFrom(game *Game, fromPhase, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errGameNotFound
	}
	updates := map[string]any{
		"current_round":    game.CurrentRound,
		"phase_started_at": game.PhaseStartedAt,
	}
	if fromPhase != "" {
		if err := db.UpdatePhaseIf(s.db, game.DBID, fromPhase, game.Phase, updates); err != nil {
			if !errors.Is(err, db.ErrStaleUpdate) {
				return err
			}
		}
	} else {
		updates["phase"] = game.Phase
		if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).Updates(updates).Error; err != nil {
			return err
		}
	}
	return s.persistEvent(game, eventType, payload)
}

func (s *Server) persistSettings(game *Game) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errGameNotFound
	}
	updates := map[string]any{
		"target_score":       game.TargetScore,
		"max_players":        game.MaxPlayers,
		"submission_seconds": game.SubmissionSeconds,
		"voting_seconds":     game.VotingSeconds,
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).Updates(updates).Error; err != nil {
		return err
	}
	return s.persistEvent(game, eventSettingsUpdated, EventPayload{
		TargetScore:       game.TargetScore,
		MaxPlayers:        game.MaxPlayers,
		SubmissionSeconds: game.SubmissionSeconds,
		VotingSeconds:     game.VotingSeconds,
	})
}

func (s *Server) persistRoundCards(game *Game, round *RoundState) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errGameNotFound
	}
	created := make(map[string]uint, len(round.Cards))
	for i := range round.Cards {
		entry := &round.Cards[i]
		if entry.DBID != 0 {
			continue
		}
		record := db.Card{
			GameID:   game.DBID,
			PublicID: entry.ID,
			Round:    round.Number,
			Kind:     entry.Kind,
			Text:     entry.Text,
			PlayerID: s.cardOwnerDBID(game, entry),
		}
		if err := s.db.Create(&record).Error; err != nil {
			return err
		}
		created[entry.ID] = record.ID
	}
	if len(created) > 0 {
		_, _ = s.store.UpdateGame(game.ID, func(game *Game) error {
			target := roundByNumber(game, round.Number)
			if target == nil {
				return nil
			}
			for i := range target.Cards {
				if id, ok := created[target.Cards[i].ID]; ok {
					target.Cards[i].DBID = id
				}
			}
			return nil
		})
	}
	return nil
}

func (s *Server) cardOwnerDBID(game *Game, entry *CardEntry) *uint {
	if entry.OwnerID == "" {
		return nil
	}
	player, ok := findPlayer(game, entry.OwnerID)
	if !ok || player.DBID == 0 {
		return nil
	}
	id := player.DBID
	return &id
}

func (s *Server) persistSubmission(game *Game, round *RoundState, entry *SubmissionEntry) error {
	if s.db == nil {
		return nil
	}
	if entry == nil || entry.DBID != 0 {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errGameNotFound
	}
	player, ok := findPlayer(game, entry.PlayerID)
	if !ok || player.DBID == 0 {
		return errors.New("player not persisted")
	}
	promptDBID := uint(0)
	if card := findCard(round, entry.PromptCardID); card != nil {
		promptDBID = card.DBID
	}
	responseIDs, err := json.Marshal(entry.ResponseCardIDs)
	if err != nil {
		return err
	}
	record := db.Submission{
		GameID:          game.DBID,
		PublicID:        entry.ID,
		Round:           round.Number,
		PlayerID:        player.DBID,
		PromptCardID:    promptDBID,
		ResponseCardIDs: datatypes.JSON(responseIDs),
		SubmittedAt:     entry.SubmittedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	entry.DBID = record.ID
	return s.persistEvent(game, eventSubmissionReceived, EventPayload{
		PlayerID:     entry.PlayerID,
		SubmissionID: entry.ID,
		Round:        round.Number,
	})
}

// persistVote inserts the vote row and bumps the submission counter with the
// storage layer's atomic increment, never a read-modify-write.
func (s *Server) persistVote(game *Game, round *RoundState, entry *VoteEntry) error {
	if s.db == nil {
		return nil
	}
	if entry == nil || entry.DBID != 0 {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errGameNotFound
	}
	voter, ok := findPlayer(game, entry.VoterID)
	if !ok || voter.DBID == 0 {
		return errors.New("player not persisted")
	}
	target := findSubmission(round, entry.SubmissionID)
	if target == nil || target.DBID == 0 {
		return errors.New("submission not persisted")
	}
	record := db.Vote{
		GameID:       game.DBID,
		PublicID:     entry.ID,
		Round:        round.Number,
		PlayerID:     voter.DBID,
		SubmissionID: target.DBID,
		CastAt:       entry.CastAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	entry.DBID = record.ID
	if err := db.IncrementVoteCount(s.db, target.DBID); err != nil {
		return err
	}
	return s.persistEvent(game, eventVoteCast, EventPayload{
		PlayerID: entry.VoterID,
		Round:    round.Number,
	})
}

func (s *Server) persistRoundScores(game *Game, round *RoundState) error {
	if s.db == nil {
		return nil
	}
	for _, winnerID := range roundWinners(game, round) {
		player, ok := findPlayer(game, winnerID)
		if !ok || player.DBID == 0 {
			continue
		}
		if err := db.AddPlayerScore(s.db, player.DBID, 1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) persistDisconnect(game *Game, playerID, newHostID string) error {
	if s.db == nil {
		return nil
	}
	if player, ok := findPlayer(game, playerID); ok && player.DBID != 0 {
		updates := map[string]any{"is_connected": false, "is_host": false}
		if err := s.db.Model(&db.Player{}).Where("id = ?", player.DBID).Updates(updates).Error; err != nil {
			return err
		}
	}
	if newHostID != "" {
		if err := s.persistHostFlag(game, newHostID); err != nil {
			return err
		}
		if err := s.persistEvent(game, eventHostTransferred, EventPayload{
			NewHostID: newHostID,
			Reason:    "host_disconnected",
		}); err != nil {
			return err
		}
	}
	return s.persistEvent(game, eventPlayerLeft, EventPayload{PlayerID: playerID})
}

func (s *Server) persistHostFlag(game *Game, hostID string) error {
	player, ok := findPlayer(game, hostID)
	if !ok || player.DBID == 0 {
		return nil
	}
	if err := s.db.Model(&db.Player{}).Where("game_id = ?", game.DBID).
		Update("is_host", false).Error; err != nil {
		return err
	}
	return s.db.Model(&db.Player{}).Where("id = ?", player.DBID).
		Update("is_host", true).Error
}

func (s *Server) persistEvent(game *Game, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureGameDBID(game); err != nil {
		return err
	}
	if game.DBID == 0 {
		return errGameNotFound
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := db.Event{
		GameID:   game.DBID,
		Round:    eventRound(game),
		PlayerID: s.resolveEventPlayerID(game, payload),
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	}
	return s.db.Create(&event).Error
}

func eventRound(game *Game) *int {
	if len(game.Rounds) == 0 {
		return nil
	}
	round := game.CurrentRound
	return &round
}

func (s *Server) resolveEventPlayerID(game *Game, payload EventPayload) *uint {
	if payload.PlayerID == "" {
		return nil
	}
	player, found := findPlayer(game, payload.PlayerID)
	if found && player.DBID != 0 {
		value := player.DBID
		return &value
	}
	return nil
}

func (s *Server) ensureGameDBID(game *Game) error {
	if s.db == nil || game.DBID != 0 {
		return nil
	}
	var record db.Game
	if err := s.db.Where("join_code = ?", game.JoinCode).First(&record).Error; err != nil {
		return nil
	}
	game.DBID = record.ID
	return nil
}

func (s *Server) findPlayerDBID(gameDBID uint, name string) (uint, error) {
	var record db.Player
	if err := s.db.Where("game_id = ? AND name = ?", gameDBID, name).First(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
