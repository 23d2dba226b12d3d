package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizmatch/internal/model"
)

func seed(t *testing.T) (*Memory, *model.Match) {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.InsertJob(ctx, &model.JobPost{ID: "j1", UserID: "client", Status: model.JobStatusActive}))
	require.NoError(t, m.InsertTalent(ctx, &model.TalentProfile{ID: "t1", UserID: "talent", Availability: model.AvailabilityAvailable}))
	match := &model.Match{ID: "m1", JobID: "j1", TalentID: "t1", ProposerID: "broker", Status: model.MatchStatusPending}
	require.NoError(t, m.InsertMatch(ctx, match))
	return m, match
}

func TestMemory_UpdateMatchStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	m, _ := seed(t)

	got, err := m.UpdateMatchStatus(ctx, "m1", model.MatchStatusPending, model.MatchStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusAccepted, got.Status)

	_, err = m.UpdateMatchStatus(ctx, "m1", model.MatchStatusPending, model.MatchStatusRejected)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = m.UpdateMatchStatus(ctx, "missing", model.MatchStatusPending, model.MatchStatusRejected)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_InsertTalentOnePerUser(t *testing.T) {
	m, _ := seed(t)
	err := m.InsertTalent(context.Background(), &model.TalentProfile{ID: "t2", UserID: "talent"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemory_InsertMatchRequiresJobAndTalent(t *testing.T) {
	m, _ := seed(t)
	err := m.InsertMatch(context.Background(), &model.Match{ID: "m2", JobID: "nope", TalentID: "t1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_CreateContract(t *testing.T) {
	ctx := context.Background()
	m, _ := seed(t)

	_, err := m.CreateContract(ctx, "m1", "ongoing", &model.Assignment{ID: "a1", JobID: "j1"})
	assert.ErrorIs(t, err, ErrConflict, "pending match cannot be contracted")

	_, err = m.UpdateMatchStatus(ctx, "m1", model.MatchStatusPending, model.MatchStatusAccepted)
	require.NoError(t, err)

	a, err := m.CreateContract(ctx, "m1", "ongoing", &model.Assignment{ID: "a1", JobID: "j1", Status: model.AssignmentStatusActive})
	require.NoError(t, err)
	assert.Equal(t, "m1", a.MatchID)

	match, _ := m.GetMatch(ctx, "m1")
	assert.Equal(t, model.MatchStatusContracted, match.Status)
	require.NotNil(t, match.AssignmentType)
	assert.Equal(t, "ongoing", *match.AssignmentType)

	job, _ := m.GetJob(ctx, "j1")
	assert.Equal(t, model.JobStatusAssigned, job.Status)
}

func TestMemory_CreateContractKeepsExistingAssignment(t *testing.T) {
	ctx := context.Background()
	m, _ := seed(t)
	_, err := m.UpdateMatchStatus(ctx, "m1", model.MatchStatusPending, model.MatchStatusAccepted)
	require.NoError(t, err)
	m.PutAssignment(&model.Assignment{ID: "existing", MatchID: "m1", JobID: "j1"})

	a, err := m.CreateContract(ctx, "m1", "ongoing", &model.Assignment{ID: "fresh", JobID: "j1"})
	require.NoError(t, err)
	assert.Equal(t, "existing", a.ID)

	_, err = m.GetAssignment(ctx, "fresh")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListsAreScoped(t *testing.T) {
	ctx := context.Background()
	m, _ := seed(t)

	for _, user := range []string{"client", "talent", "broker"} {
		matches, err := m.ListMatchesForUser(ctx, user)
		require.NoError(t, err)
		assert.Len(t, matches, 1, user)
	}
	matches, err := m.ListMatchesForUser(ctx, "stranger")
	require.NoError(t, err)
	assert.Empty(t, matches)

	m.PutAssignment(&model.Assignment{ID: "a1", MatchID: "m1", ClientUserID: "client", TalentUserID: "talent"})
	as, _ := m.ListAssignmentsForUser(ctx, "talent")
	assert.Len(t, as, 1)
	as, _ = m.ListAssignmentsForUser(ctx, "broker")
	assert.Empty(t, as)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m, _ := seed(t)

	j, _ := m.GetJob(ctx, "j1")
	j.Status = model.JobStatusCompleted

	again, _ := m.GetJob(ctx, "j1")
	assert.Equal(t, model.JobStatusActive, again.Status)
}
