package server

import (
	"errors"
	"fmt"
)

// Failure classes used by the recovery controller and the HTTP boundary.
const (
	errorKindValidation   = "validation"
	errorKindGameState    = "gameState"
	errorKindResource     = "resource"
	errorKindConnection   = "connection"
	errorKindAIGeneration = "aiGeneration"
	errorKindUnknown      = "unknown"
)

// ValidationError rejects bad caller input. Never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// GameStateError reports a phase or invariant violation. Never retried.
type GameStateError struct {
	Reason string
}

func (e *GameStateError) Error() string { return e.Reason }

// ResourceError reports insufficient cards or players. Retried once
// internally before surfacing.
type ResourceError struct {
	Reason string
}

func (e *ResourceError) Error() string { return e.Reason }

// ConnectionError wraps a transport-level failure. Retried with backoff,
// then triggers a full resync.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection failed during %s", e.Op)
	}
	return fmt.Sprintf("connection failed during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AIGenerationError reports a card-producer failure. Always caught
// internally and replaced by the fallback deck, never surfaced.
type AIGenerationError struct {
	Err error
}

func (e *AIGenerationError) Error() string {
	return fmt.Sprintf("card generation failed: %v", e.Err)
}

func (e *AIGenerationError) Unwrap() error { return e.Err }

var errGameNotFound = errors.New("game not found")

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func gameStateErrorf(format string, args ...any) error {
	return &GameStateError{Reason: fmt.Sprintf(format, args...)}
}

// classifyError sorts any failure into one of the five recovery classes.
func classifyError(err error) string {
	if err == nil {
		return errorKindUnknown
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return errorKindValidation
	}
	var gameState *GameStateError
	if errors.As(err, &gameState) {
		return errorKindGameState
	}
	var resource *ResourceError
	if errors.As(err, &resource) {
		return errorKindResource
	}
	var connection *ConnectionError
	if errors.As(err, &connection) {
		return errorKindConnection
	}
	var generation *AIGenerationError
	if errors.As(err, &generation) {
		return errorKindAIGeneration
	}
	if errors.Is(err, errGameNotFound) {
		return errorKindValidation
	}
	return errorKindUnknown
}
