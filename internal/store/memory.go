package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"bizmatch/internal/model"
)

// Memory is an in-process store with the same conditional-write semantics as
// Postgres. It backs tests and offline tooling.
type Memory struct {
	mu          sync.RWMutex
	now         func() time.Time
	jobs        map[string]*model.JobPost
	talents     map[string]*model.TalentProfile
	matches     map[string]*model.Match
	assignments map[string]*model.Assignment
	// insertion order, for deterministic listing
	jobOrder, talentOrder, matchOrder, assignmentOrder []string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		now:         func() time.Time { return time.Now().UTC() },
		jobs:        make(map[string]*model.JobPost),
		talents:     make(map[string]*model.TalentProfile),
		matches:     make(map[string]*model.Match),
		assignments: make(map[string]*model.Assignment),
	}
}

func (m *Memory) InsertJob(_ context.Context, j *model.JobPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[j.ID]; ok {
		return fmt.Errorf("insert job %s: %w", j.ID, ErrConflict)
	}
	j.CreatedAt, j.UpdatedAt = m.now(), m.now()
	c := *j
	m.jobs[j.ID] = &c
	m.jobOrder = append(m.jobOrder, j.ID)
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (*model.JobPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get job %s: %w", id, ErrNotFound)
	}
	c := *j
	return &c, nil
}

func (m *Memory) ListActiveJobs(_ context.Context) ([]model.JobPost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.JobPost, 0)
	for _, id := range m.jobOrder {
		if j := m.jobs[id]; j.Status == model.JobStatusActive {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *Memory) SetJobHot(_ context.Context, id string, hot bool) (*model.JobPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("set job hot %s: %w", id, ErrNotFound)
	}
	j.IsHot, j.UpdatedAt = hot, m.now()
	c := *j
	return &c, nil
}

func (m *Memory) InsertTalent(_ context.Context, t *model.TalentProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.talents {
		if existing.UserID == t.UserID {
			return fmt.Errorf("insert talent for user %s: %w", t.UserID, ErrConflict)
		}
	}
	t.CreatedAt, t.UpdatedAt = m.now(), m.now()
	c := *t
	m.talents[t.ID] = &c
	m.talentOrder = append(m.talentOrder, t.ID)
	return nil
}

func (m *Memory) GetTalent(_ context.Context, id string) (*model.TalentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.talents[id]
	if !ok {
		return nil, fmt.Errorf("get talent %s: %w", id, ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (m *Memory) FindTalentByUser(_ context.Context, userID string) (*model.TalentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.talentOrder {
		if t := m.talents[id]; t.UserID == userID {
			c := *t
			return &c, nil
		}
	}
	return nil, fmt.Errorf("find talent for user %s: %w", userID, ErrNotFound)
}

func (m *Memory) ListAvailableTalents(_ context.Context) ([]model.TalentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.TalentProfile, 0)
	for _, id := range m.talentOrder {
		if t := m.talents[id]; t.Availability == model.AvailabilityAvailable {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *Memory) SetTalentHot(_ context.Context, id string, hot bool) (*model.TalentProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.talents[id]
	if !ok {
		return nil, fmt.Errorf("set talent hot %s: %w", id, ErrNotFound)
	}
	t.IsHot, t.UpdatedAt = hot, m.now()
	c := *t
	return &c, nil
}

func (m *Memory) InsertMatch(_ context.Context, mt *model.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[mt.JobID]; !ok {
		return fmt.Errorf("insert match: job %s: %w", mt.JobID, ErrNotFound)
	}
	if _, ok := m.talents[mt.TalentID]; !ok {
		return fmt.Errorf("insert match: talent %s: %w", mt.TalentID, ErrNotFound)
	}
	mt.CreatedAt, mt.UpdatedAt = m.now(), m.now()
	c := *mt
	m.matches[mt.ID] = &c
	m.matchOrder = append(m.matchOrder, mt.ID)
	return nil
}

func (m *Memory) GetMatch(_ context.Context, id string) (*model.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("get match %s: %w", id, ErrNotFound)
	}
	c := *mt
	return &c, nil
}

func (m *Memory) ListMatchesForUser(_ context.Context, userID string) ([]model.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Match, 0)
	for _, id := range slices.Backward(m.matchOrder) {
		mt := m.matches[id]
		if mt.ProposerID == userID || m.jobs[mt.JobID].UserID == userID || m.talents[mt.TalentID].UserID == userID {
			out = append(out, *mt)
		}
	}
	return out, nil
}

func (m *Memory) UpdateMatchStatus(_ context.Context, id string, from, to model.MatchStatus) (*model.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if mt.Status != from {
		return nil, fmt.Errorf("match %s: %w", id, ErrConflict)
	}
	mt.Status, mt.UpdatedAt = to, m.now()
	c := *mt
	return &c, nil
}

func (m *Memory) GetAssignment(_ context.Context, id string) (*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, fmt.Errorf("get assignment %s: %w", id, ErrNotFound)
	}
	c := *a
	return &c, nil
}

func (m *Memory) FindAssignmentByMatch(_ context.Context, matchID string) (*model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a := m.assignmentForMatch(matchID); a != nil {
		c := *a
		return &c, nil
	}
	return nil, fmt.Errorf("find assignment for match %s: %w", matchID, ErrNotFound)
}

func (m *Memory) assignmentForMatch(matchID string) *model.Assignment {
	for _, a := range m.assignments {
		if a.MatchID == matchID {
			return a
		}
	}
	return nil
}

func (m *Memory) ListAssignmentsForUser(_ context.Context, userID string) ([]model.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Assignment, 0)
	for _, id := range slices.Backward(m.assignmentOrder) {
		if a := m.assignments[id]; a.IsParty(userID) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *Memory) CreateContract(_ context.Context, matchID, assignmentType string, a *model.Assignment) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("create contract for match %s: %w", matchID, ErrNotFound)
	}
	if mt.Status != model.MatchStatusAccepted {
		return nil, fmt.Errorf("create contract for match %s: %w", matchID, ErrConflict)
	}

	now := m.now()
	saved := m.assignmentForMatch(matchID)
	if saved == nil {
		c := *a
		c.MatchID = matchID
		c.CreatedAt, c.UpdatedAt = now, now
		saved = &c
		m.assignments[c.ID] = saved
		m.assignmentOrder = append(m.assignmentOrder, c.ID)
	}

	typ := assignmentType
	mt.Status, mt.AssignmentType, mt.UpdatedAt = model.MatchStatusContracted, &typ, now
	if j, ok := m.jobs[saved.JobID]; ok {
		j.Status, j.UpdatedAt = model.JobStatusAssigned, now
	}
	c := *saved
	return &c, nil
}

func (m *Memory) UpdateAssignmentStatus(_ context.Context, id string, from, to model.AssignmentStatus) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if a.Status != from {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrConflict)
	}
	a.Status, a.UpdatedAt = to, m.now()
	c := *a
	return &c, nil
}

func (m *Memory) UpdateAssignmentNotes(_ context.Context, id, notes string) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, fmt.Errorf("update assignment notes %s: %w", id, ErrNotFound)
	}
	a.Notes, a.UpdatedAt = notes, m.now()
	c := *a
	return &c, nil
}

// PutAssignment inserts a directly, bypassing the contract flow. It exists to
// seed states a partially failed non-transactional writer could leave behind.
func (m *Memory) PutAssignment(a *model.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	m.assignments[a.ID] = &c
	m.assignmentOrder = append(m.assignmentOrder, a.ID)
}
