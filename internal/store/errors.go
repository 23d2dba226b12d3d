// Package store persists jobs, talent profiles, matches and assignments.
//
// Status updates are compare-and-set on the expected current status, so a
// caller that validated a transition against a stale read gets ErrConflict
// instead of silently overwriting a concurrent change.
package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional write lost against the
	// current persisted state, or a uniqueness rule was violated.
	ErrConflict = errors.New("record changed concurrently")
)
