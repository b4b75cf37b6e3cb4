package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a rejected call or an unusable document.
//
// Every Error is raised before any mutation, so the State is unchanged when a
// Match method returns one.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes scoring errors.
type ErrorCode string

const (
	// ErrCodeMatchOver indicates a mutation was attempted on a finished match.
	ErrCodeMatchOver ErrorCode = "MATCH_OVER"

	// ErrCodeCannotUndo indicates the history ledger is empty.
	ErrCodeCannotUndo ErrorCode = "CANNOT_UNDO"

	// ErrCodeInvalidPlayer indicates a player outside {1, 2}.
	ErrCodeInvalidPlayer ErrorCode = "INVALID_PLAYER"

	// ErrCodeInvalidPointType indicates an unknown point type.
	ErrCodeInvalidPointType ErrorCode = "INVALID_POINT_TYPE"

	// ErrCodeInvalidConfig indicates a configuration that failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrCodeNotResumable indicates a persisted document of a finished match.
	ErrCodeNotResumable ErrorCode = "NOT_RESUMABLE"

	// ErrCodeInvalidState indicates a persisted document that breaks a State invariant.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewMatchOverError creates an Error for a call on a finished match.
func NewMatchOverError(op string) *Error {
	return &Error{
		Code:    ErrCodeMatchOver,
		Message: fmt.Sprintf("cannot %s: match is over", op),
		Details: map[string]string{"op": op},
	}
}

// NewCannotUndoError creates an Error for an undo with an empty ledger.
func NewCannotUndoError() *Error {
	return &Error{
		Code:    ErrCodeCannotUndo,
		Message: "cannot undo: no history",
	}
}

// NewInvalidPlayerError creates an Error for a player outside {1, 2}.
func NewInvalidPlayerError(got any) *Error {
	return &Error{
		Code:    ErrCodeInvalidPlayer,
		Message: fmt.Sprintf("player must be 1 or 2, got %v", got),
	}
}

// NewInvalidPointTypeError creates an Error for an unknown point type.
func NewInvalidPointTypeError(t PointType) *Error {
	return &Error{
		Code:    ErrCodeInvalidPointType,
		Message: fmt.Sprintf("unknown point type %q", t),
	}
}

// NewInvalidConfigError creates an Error listing every configuration problem.
func NewInvalidConfigError(problems []string) *Error {
	return &Error{
		Code:    ErrCodeInvalidConfig,
		Message: strings.Join(problems, "; "),
	}
}

// NewNotResumableError creates an Error for a persisted match that already ended.
func NewNotResumableError() *Error {
	return &Error{
		Code:    ErrCodeNotResumable,
		Message: "match is over and cannot be resumed",
	}
}

// NewInvalidStateError creates an Error for a document that breaks an invariant.
func NewInvalidStateError(problem string) *Error {
	return &Error{
		Code:    ErrCodeInvalidState,
		Message: problem,
	}
}

// IsCannotUndo returns true if the error is an empty-ledger undo.
// Uses errors.As to handle wrapped errors.
func IsCannotUndo(err error) bool {
	return hasCode(err, ErrCodeCannotUndo)
}

// IsMatchOver returns true if the error rejects a call on a finished match.
func IsMatchOver(err error) bool {
	return hasCode(err, ErrCodeMatchOver)
}

// IsInvalidConfig returns true if the error is a configuration failure.
func IsInvalidConfig(err error) bool {
	return hasCode(err, ErrCodeInvalidConfig)
}

// IsInvalidState returns true if the error is a structurally invalid document.
func IsInvalidState(err error) bool {
	return hasCode(err, ErrCodeInvalidState)
}

// IsNotResumable returns true if the error refuses to resume a finished match.
func IsNotResumable(err error) bool {
	return hasCode(err, ErrCodeNotResumable)
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
