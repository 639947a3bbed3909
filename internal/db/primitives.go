package db

import (
	"errors"

	"gorm.io/gorm"
)

var ErrStaleUpdate = errors.New("conditional update matched no rows")

// IncrementVoteCount bumps a submission's vote counter in a single UPDATE.
// The increment happens in SQL so concurrent votes never lose updates.
func IncrementVoteCount(conn *gorm.DB, submissionID uint) error {
	if conn == nil {
		return nil
	}
	return conn.Model(&Submission{}).
		Where("id = ?", submissionID).
		UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1)).Error
}

// UpdatePhaseIf moves a game's phase only if it still holds the expected
// value, returning ErrStaleUpdate when another writer got there first.
func UpdatePhaseIf(conn *gorm.DB, gameID uint, expectedPhase, newPhase string, updates map[string]any) error {
	if conn == nil {
		return nil
	}
	if updates == nil {
		updates = map[string]any{}
	}
	updates["phase"] = newPhase
	result := conn.Model(&Game{}).
		Where("id = ? AND phase = ?", gameID, expectedPhase).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleUpdate
	}
	return nil
}

// AddPlayerScore applies a score delta as an atomic column update.
func AddPlayerScore(conn *gorm.DB, playerID uint, delta int) error {
	if conn == nil {
		return nil
	}
	return conn.Model(&Player{}).
		Where("id = ?", playerID).
		UpdateColumn("score", gorm.Expr("score + ?", delta)).Error
}
