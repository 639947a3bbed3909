package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reconnection states for a client's view of a game.
const (
	syncStateDisconnected = "disconnected"
	syncStateResyncing    = "resyncing"
	syncStateSynced       = "synced"
)

// ClientView is one client's local copy of a game. After a connection gap it
// cannot trust partial event replay, so the recovery controller overwrites
// it wholesale from the authoritative store.
type ClientView struct {
	GameID      string
	State       string
	Version     uint64
	Phase       string
	Round       int
	Players     []Player
	Cards       []CardEntry
	Submissions []SubmissionEntry
	Votes       []VoteEntry
	LastSyncAt  time.Time
}

type snapshotSource interface {
	GetGame(id string) (*Game, bool)
}

// RecoveryController wraps operations with retry, backoff and full-state
// resynchronization. It owns no game rules.
type RecoveryController struct {
	source      snapshotSource
	maxAttempts int
	baseDelay   time.Duration
}

func newRecoveryController(source snapshotSource, maxAttempts int, baseDelay time.Duration) *RecoveryController {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	return &RecoveryController{
		source:      source,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// Classify reports the failure class of err.
func (c *RecoveryController) Classify(err error) string {
	return classifyError(err)
}

// RetryWithBackoff runs op, retrying connection-class failures with
// exponentially growing delays up to the bounded attempt count. Any other
// failure class returns immediately.
func (c *RecoveryController) RetryWithBackoff(ctx context.Context, op func() error) error {
	delay := c.baseDelay
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if classifyError(lastErr) != errorKindConnection {
			return lastErr
		}
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

// Resync pulls the full authoritative snapshot and reconciles the view
// against it. Re-running against an already-consistent view is a no-op.
func (c *RecoveryController) Resync(view *ClientView) error {
	if view == nil {
		return validationErrorf("client view is nil")
	}
	game, ok := c.source.GetGame(view.GameID)
	if !ok {
		return errGameNotFound
	}
	if view.State == syncStateSynced && view.Version == game.Version {
		return nil
	}
	view.State = syncStateResyncing

	view.Phase = game.Phase
	view.Round = game.CurrentRound
	view.Players = append([]Player(nil), game.Players...)
	view.Cards = nil
	view.Submissions = nil
	view.Votes = nil
	if round := currentRound(game); round != nil {
		view.Cards = append([]CardEntry(nil), round.Cards...)
		view.Submissions = append([]SubmissionEntry(nil), round.Submissions...)
		view.Votes = append([]VoteEntry(nil), round.Votes...)
	}

	view.Version = game.Version
	view.State = syncStateSynced
	view.LastSyncAt = timeNowUTC()
	return nil
}

// Recover drives the reconnection state machine for one client operation:
// retry with backoff first, then a full resync on sustained connection
// failure. Validation and game-state failures pass through untouched.
func (c *RecoveryController) Recover(ctx context.Context, view *ClientView, op func() error) error {
	err := c.RetryWithBackoff(ctx, op)
	if err == nil {
		return nil
	}
	if classifyError(err) != errorKindConnection {
		return err
	}
	if view != nil {
		view.State = syncStateDisconnected
	}
	log.Warn().Str("game_id", viewGameID(view)).Err(err).
		Msg("sustained connection failure, resyncing from authoritative state")
	return c.Resync(view)
}

func viewGameID(view *ClientView) string {
	if view == nil {
		return ""
	}
	return view.GameID
}
