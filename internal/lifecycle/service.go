package lifecycle

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/internal/events"
	"bizmatch/internal/identity"
	"bizmatch/internal/matcher"
	"bizmatch/internal/model"
	"bizmatch/internal/store"
)

// DefaultAssignmentType is used when a contract request names no type.
const DefaultAssignmentType = "ongoing"

// Store is the persistence the lifecycle needs. Status writes must be
// compare-and-set and CreateContract must be atomic; see package store.
type Store interface {
	GetJob(ctx context.Context, id string) (*model.JobPost, error)
	GetTalent(ctx context.Context, id string) (*model.TalentProfile, error)

	InsertMatch(ctx context.Context, m *model.Match) error
	GetMatch(ctx context.Context, id string) (*model.Match, error)
	ListMatchesForUser(ctx context.Context, userID string) ([]model.Match, error)
	UpdateMatchStatus(ctx context.Context, id string, from, to model.MatchStatus) (*model.Match, error)

	GetAssignment(ctx context.Context, id string) (*model.Assignment, error)
	FindAssignmentByMatch(ctx context.Context, matchID string) (*model.Assignment, error)
	ListAssignmentsForUser(ctx context.Context, userID string) ([]model.Assignment, error)
	CreateContract(ctx context.Context, matchID, assignmentType string, a *model.Assignment) (*model.Assignment, error)
	UpdateAssignmentStatus(ctx context.Context, id string, from, to model.AssignmentStatus) (*model.Assignment, error)
	UpdateAssignmentNotes(ctx context.Context, id, notes string) (*model.Assignment, error)
}

// Policy holds the business rules that are configuration rather than code.
type Policy struct {
	Split                 matcher.SplitPolicy
	DefaultAssignmentType string
}

// DefaultPolicy splits profit evenly and contracts as "ongoing".
func DefaultPolicy() Policy {
	return Policy{Split: matcher.DefaultSplitPolicy(), DefaultAssignmentType: DefaultAssignmentType}
}

// Service drives matches and assignments through their lifecycles.
// It is transport-agnostic: used by both httpapi and grpcserver.
type Service struct {
	store  Store
	events events.Publisher
	policy Policy
	log    *zap.Logger
	newID  func() string
}

// NewService returns a configured Service.
func NewService(st Store, pub events.Publisher, policy Policy, log *zap.Logger) *Service {
	if policy.DefaultAssignmentType == "" {
		policy.DefaultAssignmentType = DefaultAssignmentType
	}
	return &Service{
		store:  st,
		events: pub,
		policy: policy,
		log:    log,
		newID:  uuid.NewString,
	}
}

// ─── Matches ─────────────────────────────────────────────────────────────────

// ProposeMatch records actor's proposal to pair a job with a talent profile.
func (s *Service) ProposeMatch(ctx context.Context, actor identity.Identity, jobID, talentID, message string) (*model.Match, error) {
	if actor.ID == "" {
		return nil, actorError("an authenticated user is required to propose a match")
	}
	if jobID == "" || talentID == "" {
		return nil, inputError("jobId and talentId are required")
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, s.storeErr("load job", err)
	}
	talent, err := s.store.GetTalent(ctx, talentID)
	if err != nil {
		return nil, s.storeErr("load talent", err)
	}
	if job.Status != model.JobStatusActive {
		return nil, statusError("job %s is %s, only active jobs can be matched", job.ID, job.Status)
	}

	m := &model.Match{
		ID:         s.newID(),
		JobID:      job.ID,
		TalentID:   talent.ID,
		ProposerID: actor.ID,
		Message:    strings.TrimSpace(message),
		Status:     model.MatchStatusPending,
	}
	if err := s.store.InsertMatch(ctx, m); err != nil {
		return nil, s.storeErr("insert match", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeMatchProposed,
		EntityID: m.ID,
		ActorID:  actor.ID,
		To:       string(m.Status),
		Parties:  parties(m.ProposerID, job.UserID, talent.UserID),
	})
	return m, nil
}

// AcceptMatch moves a pending match to accepted.
func (s *Service) AcceptMatch(ctx context.Context, actor identity.Identity, matchID string) (*model.Match, error) {
	return s.decide(ctx, actor, matchID, model.MatchStatusAccepted)
}

// RejectMatch moves a pending match to rejected.
func (s *Service) RejectMatch(ctx context.Context, actor identity.Identity, matchID string) (*model.Match, error) {
	return s.decide(ctx, actor, matchID, model.MatchStatusRejected)
}

func (s *Service) decide(ctx context.Context, actor identity.Identity, matchID string, to model.MatchStatus) (*model.Match, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, s.storeErr("load match", err)
	}
	if IsMatchTerminal(m.Status) {
		return nil, statusError("match %s is already %s", m.ID, m.Status)
	}
	if !IsMatchTransitionAllowed(m.Status, to) {
		return nil, statusError("match %s is %s, cannot move to %s", m.ID, m.Status, to)
	}
	if !CanDecide(m, actor) {
		return nil, actorError("the proposer cannot %s their own proposal", verb(to))
	}

	updated, err := s.store.UpdateMatchStatus(ctx, m.ID, m.Status, to)
	if err != nil {
		return nil, s.transitionErr("update match", err, "match %s changed while being %s", m.ID, to)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeMatchUpdated,
		EntityID: m.ID,
		ActorID:  actor.ID,
		From:     string(m.Status),
		To:       string(to),
		Parties:  s.matchParties(ctx, updated),
	})
	return updated, nil
}

// CreateContract turns an accepted match into an active assignment. The match
// status change, the assignment and the job's assigned status are committed
// as one step.
func (s *Service) CreateContract(ctx context.Context, actor identity.Identity, matchID, assignmentType string) (*model.Match, *model.Assignment, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, nil, s.storeErr("load match", err)
	}
	if !IsMatchTransitionAllowed(m.Status, model.MatchStatusContracted) {
		return nil, nil, statusError("match %s is %s, only accepted matches can be contracted", m.ID, m.Status)
	}

	job, err := s.store.GetJob(ctx, m.JobID)
	if err != nil {
		return nil, nil, s.storeErr("load job", err)
	}
	talent, err := s.store.GetTalent(ctx, m.TalentID)
	if err != nil {
		return nil, nil, s.storeErr("load talent", err)
	}
	if !CanContract(m, job, talent, actor) {
		return nil, nil, actorError("only the proposer, the job owner or the talent owner can create the contract")
	}

	assignmentType = strings.TrimSpace(assignmentType)
	if assignmentType == "" {
		assignmentType = s.policy.DefaultAssignmentType
	}

	// A writer without transactions may have created the assignment before
	// failing to flip the match. Reuse it rather than create a duplicate.
	a, err := s.store.FindAssignmentByMatch(ctx, m.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		a = s.newAssignment(m, job, talent)
	case err != nil:
		return nil, nil, s.storeErr("check existing assignment", err)
	default:
		s.log.Info("reusing assignment for match", zap.String("matchId", m.ID), zap.String("assignmentId", a.ID))
	}

	saved, err := s.store.CreateContract(ctx, m.ID, assignmentType, a)
	if err != nil {
		return nil, nil, s.transitionErr("create contract", err, "match %s changed while being contracted", m.ID)
	}

	contracted := *m
	contracted.Status = model.MatchStatusContracted
	contracted.AssignmentType = &assignmentType
	contracted.UpdatedAt = saved.UpdatedAt

	ps := parties(m.ProposerID, job.UserID, talent.UserID)
	s.publish(ctx, events.Event{
		Type: events.TypeMatchUpdated, EntityID: m.ID, ActorID: actor.ID,
		From: string(m.Status), To: string(contracted.Status), Parties: ps,
	})
	s.publish(ctx, events.Event{
		Type: events.TypeAssignmentCreated, EntityID: saved.ID, ActorID: actor.ID,
		To: string(saved.Status), Parties: ps,
	})
	return &contracted, saved, nil
}

func (s *Service) newAssignment(m *model.Match, job *model.JobPost, talent *model.TalentProfile) *model.Assignment {
	profit := matcher.CalculateProfit(job.Budget, talent.Rate, job.WorkDays)
	each := s.policy.Split.Each(profit)
	return &model.Assignment{
		ID:            s.newID(),
		MatchID:       m.ID,
		JobID:         job.ID,
		TalentID:      talent.ID,
		ClientUserID:  job.UserID,
		TalentUserID:  talent.UserID,
		Status:        model.AssignmentStatusActive,
		MonthlyProfit: each,
		TotalProfit:   each,
	}
}

// GetMatch returns a match visible to actor.
func (s *Service) GetMatch(ctx context.Context, actor identity.Identity, matchID string) (*model.Match, error) {
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, s.storeErr("load match", err)
	}
	if actor.IsAdmin() || actor.ID == m.ProposerID {
		return m, nil
	}
	job, err := s.store.GetJob(ctx, m.JobID)
	if err != nil {
		return nil, s.storeErr("load job", err)
	}
	talent, err := s.store.GetTalent(ctx, m.TalentID)
	if err != nil {
		return nil, s.storeErr("load talent", err)
	}
	if !CanViewMatch(m, job, talent, actor) {
		return nil, ErrNotFound
	}
	return m, nil
}

// ListMatches returns the matches actor proposed or is a side of. A non-empty
// status keeps only matches in that status.
func (s *Service) ListMatches(ctx context.Context, actor identity.Identity, status string) ([]model.Match, error) {
	var want model.MatchStatus
	if status != "" {
		st, err := ParseMatchStatus(status)
		if err != nil {
			return nil, inputError("%v", err)
		}
		want = st
	}
	ms, err := s.store.ListMatchesForUser(ctx, actor.ID)
	if err != nil {
		return nil, s.storeErr("list matches", err)
	}
	if want == "" {
		return ms, nil
	}
	out := make([]model.Match, 0, len(ms))
	for _, m := range ms {
		if m.Status == want {
			out = append(out, m)
		}
	}
	return out, nil
}

// ─── Assignments ─────────────────────────────────────────────────────────────

// PauseAssignment moves an active assignment to paused.
func (s *Service) PauseAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error) {
	return s.moveAssignment(ctx, actor, id, model.AssignmentStatusPaused)
}

// ResumeAssignment moves a paused assignment back to active.
func (s *Service) ResumeAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error) {
	return s.moveAssignment(ctx, actor, id, model.AssignmentStatusActive)
}

// CompleteAssignment closes an active or paused assignment.
func (s *Service) CompleteAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error) {
	return s.moveAssignment(ctx, actor, id, model.AssignmentStatusCompleted)
}

func (s *Service) moveAssignment(ctx context.Context, actor identity.Identity, id string, to model.AssignmentStatus) (*model.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return nil, s.storeErr("load assignment", err)
	}
	if IsAssignmentTerminal(a.Status) {
		return nil, statusError("assignment %s is already %s", a.ID, a.Status)
	}
	if !IsAssignmentTransitionAllowed(a.Status, to) {
		return nil, statusError("assignment %s is %s, cannot move to %s", a.ID, a.Status, to)
	}
	if !CanDriveAssignment(a, actor) {
		return nil, actorError("only the client can change the status of an assignment")
	}

	updated, err := s.store.UpdateAssignmentStatus(ctx, a.ID, a.Status, to)
	if err != nil {
		return nil, s.transitionErr("update assignment", err, "assignment %s changed while moving to %s", a.ID, to)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeAssignmentUpdated,
		EntityID: a.ID,
		ActorID:  actor.ID,
		From:     string(a.Status),
		To:       string(to),
		Parties:  parties(a.ClientUserID, a.TalentUserID),
	})
	return updated, nil
}

// UpdateAssignmentNotes replaces the notes on an assignment. Either party may
// edit them, whatever the status.
func (s *Service) UpdateAssignmentNotes(ctx context.Context, actor identity.Identity, id, notes string) (*model.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return nil, s.storeErr("load assignment", err)
	}
	if !a.IsParty(actor.ID) {
		return nil, actorError("only the parties of an assignment can edit its notes")
	}
	updated, err := s.store.UpdateAssignmentNotes(ctx, a.ID, notes)
	if err != nil {
		return nil, s.storeErr("update assignment notes", err)
	}
	s.publish(ctx, events.Event{
		Type:     events.TypeAssignmentUpdated,
		EntityID: a.ID,
		ActorID:  actor.ID,
		Parties:  parties(a.ClientUserID, a.TalentUserID),
	})
	return updated, nil
}

// GetAssignment returns an assignment visible to actor.
func (s *Service) GetAssignment(ctx context.Context, actor identity.Identity, id string) (*model.Assignment, error) {
	a, err := s.store.GetAssignment(ctx, id)
	if err != nil {
		return nil, s.storeErr("load assignment", err)
	}
	if !CanViewAssignment(a, actor) {
		return nil, ErrNotFound
	}
	return a, nil
}

// ListAssignments returns the assignments actor is a party to, optionally
// only those in status.
func (s *Service) ListAssignments(ctx context.Context, actor identity.Identity, status string) ([]model.Assignment, error) {
	var want model.AssignmentStatus
	if status != "" {
		st, err := ParseAssignmentStatus(status)
		if err != nil {
			return nil, inputError("%v", err)
		}
		want = st
	}
	as, err := s.store.ListAssignmentsForUser(ctx, actor.ID)
	if err != nil {
		return nil, s.storeErr("list assignments", err)
	}
	if want == "" {
		return as, nil
	}
	out := make([]model.Assignment, 0, len(as))
	for _, a := range as {
		if a.Status == want {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// storeErr maps missing records to ErrNotFound and wraps everything else.
func (s *Service) storeErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return &StoreError{Op: op, Err: err}
}

// transitionErr reports a lost compare-and-set as a status rejection.
func (s *Service) transitionErr(op string, err error, format string, args ...any) error {
	if errors.Is(err, store.ErrConflict) {
		return statusError(format, args...)
	}
	return s.storeErr(op, err)
}

// publish is best effort: the transition is already committed.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Warn("publish event failed", zap.String("type", e.Type), zap.String("entityId", e.EntityID), zap.Error(err))
	}
}

func (s *Service) matchParties(ctx context.Context, m *model.Match) []string {
	ids := []string{m.ProposerID}
	if job, err := s.store.GetJob(ctx, m.JobID); err == nil {
		ids = append(ids, job.UserID)
	}
	if talent, err := s.store.GetTalent(ctx, m.TalentID); err == nil {
		ids = append(ids, talent.UserID)
	}
	return parties(ids...)
}

// parties de-duplicates ids, dropping empties.
func parties(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func verb(to model.MatchStatus) string {
	if to == model.MatchStatusAccepted {
		return "accept"
	}
	return "reject"
}
