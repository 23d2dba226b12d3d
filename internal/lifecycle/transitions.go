// Package lifecycle defines the engagement state machines.
//
// Match status graph:
//
//	pending ──► accepted ──► contracted
//	   │
//	   └──────► rejected
//
// Assignment status graph:
//
//	active ◄──► paused
//	   │           │
//	   └───────────┴──► completed
//
// rejected, contracted and completed are terminal.
package lifecycle

import (
	"fmt"

	"bizmatch/internal/model"
)

var matchTransitions = map[model.MatchStatus][]model.MatchStatus{
	model.MatchStatusPending:  {model.MatchStatusAccepted, model.MatchStatusRejected},
	model.MatchStatusAccepted: {model.MatchStatusContracted},
	// rejected and contracted are terminal
}

var assignmentTransitions = map[model.AssignmentStatus][]model.AssignmentStatus{
	model.AssignmentStatusActive: {model.AssignmentStatusPaused, model.AssignmentStatusCompleted},
	model.AssignmentStatusPaused: {model.AssignmentStatusActive, model.AssignmentStatusCompleted},
	// completed is terminal
}

// ParseMatchStatus converts a raw string to a MatchStatus, returning an error
// for unknown values.
func ParseMatchStatus(s string) (model.MatchStatus, error) {
	st := model.MatchStatus(s)
	switch st {
	case model.MatchStatusPending, model.MatchStatusAccepted, model.MatchStatusRejected, model.MatchStatusContracted:
		return st, nil
	}
	return "", fmt.Errorf("unknown match status %q", s)
}

// ParseAssignmentStatus converts a raw string to an AssignmentStatus.
func ParseAssignmentStatus(s string) (model.AssignmentStatus, error) {
	st := model.AssignmentStatus(s)
	switch st {
	case model.AssignmentStatusActive, model.AssignmentStatusPaused, model.AssignmentStatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown assignment status %q", s)
}

// IsMatchTransitionAllowed reports whether a match may move from → to.
func IsMatchTransitionAllowed(from, to model.MatchStatus) bool {
	return allowed(matchTransitions, from, to)
}

// IsAssignmentTransitionAllowed reports whether an assignment may move from → to.
func IsAssignmentTransitionAllowed(from, to model.AssignmentStatus) bool {
	return allowed(assignmentTransitions, from, to)
}

func allowed[S comparable](graph map[S][]S, from, to S) bool {
	for _, s := range graph[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsMatchTerminal reports whether no transition leaves s.
func IsMatchTerminal(s model.MatchStatus) bool { return len(matchTransitions[s]) == 0 }

// IsAssignmentTerminal reports whether no transition leaves s.
func IsAssignmentTerminal(s model.AssignmentStatus) bool { return len(assignmentTransitions[s]) == 0 }
