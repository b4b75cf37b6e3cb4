package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error raised by the engine itself rather than
// by the scoring rules.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// MatchID identifies the affected match, when there is one.
	MatchID string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownMatch indicates no live or stored match has the ID.
	ErrCodeUnknownMatch RuntimeErrorCode = "UNKNOWN_MATCH"

	// ErrCodeEngineStopped indicates the command loop is no longer accepting commands.
	ErrCodeEngineStopped RuntimeErrorCode = "ENGINE_STOPPED"

	// ErrCodeUnknownCommand indicates a command kind the engine does not handle.
	ErrCodeUnknownCommand RuntimeErrorCode = "UNKNOWN_COMMAND"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.MatchID != "" {
		return fmt.Sprintf("%s: %s (match=%s)", e.Code, e.Message, e.MatchID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownMatch returns true if the error is an unknown-match error.
// Uses errors.As to handle wrapped errors.
func IsUnknownMatch(err error) bool {
	return hasRuntimeCode(err, ErrCodeUnknownMatch)
}

// IsEngineStopped returns true if the engine refused the command because it
// has stopped.
func IsEngineStopped(err error) bool {
	return hasRuntimeCode(err, ErrCodeEngineStopped)
}

func hasRuntimeCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// NewUnknownMatchError creates a RuntimeError for a missing match.
func NewUnknownMatchError(matchID, reason string) *RuntimeError {
	msg := "no such match"
	if reason != "" {
		msg = reason
	}
	return &RuntimeError{Code: ErrCodeUnknownMatch, Message: msg, MatchID: matchID}
}

// NewEngineStoppedError creates a RuntimeError for a command submitted after Stop.
func NewEngineStoppedError() *RuntimeError {
	return &RuntimeError{Code: ErrCodeEngineStopped, Message: "engine is not accepting commands"}
}

// NewUnknownCommandError creates a RuntimeError for an unsupported command kind.
func NewUnknownCommandError(kind CommandKind) *RuntimeError {
	return &RuntimeError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command %q", kind)}
}
