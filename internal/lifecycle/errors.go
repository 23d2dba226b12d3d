package lifecycle

import (
	"fmt"

	"bizmatch/internal/store"
)

// ErrNotFound is returned when a record is missing or hidden from the actor.
var ErrNotFound = store.ErrNotFound

// Reason names the guard a rejected request failed.
type Reason string

const (
	// ReasonStatus: the record is not in a status the transition starts from.
	ReasonStatus Reason = "status"
	// ReasonActor: the acting user is not allowed to perform the transition.
	ReasonActor Reason = "actor"
	// ReasonInput: the request itself is malformed.
	ReasonInput Reason = "input"
)

// ValidationError is a rejected request. No state was changed.
type ValidationError struct {
	Reason Reason
	Msg    string
}

func (e *ValidationError) Error() string { return e.Msg }

func statusError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: ReasonStatus, Msg: fmt.Sprintf(format, args...)}
}

func actorError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: ReasonActor, Msg: fmt.Sprintf(format, args...)}
}

func inputError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: ReasonInput, Msg: fmt.Sprintf(format, args...)}
}

// StoreError is a failure of the underlying record store, passed through
// for the caller to retry or reconcile.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
