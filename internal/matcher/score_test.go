package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizmatch/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCalculateMatchScore_EndToEnd(t *testing.T) {
	job := &model.JobPost{
		Budget:    300000,
		WorkDays:  20,
		SkillTags: []string{"React"},
		WorkType:  model.WorkTypeAny,
	}
	talent := &model.TalentProfile{
		Rate:     10000,
		Skills:   []string{"React", "TypeScript"},
		WorkType: model.WorkTypeAny,
	}

	s, err := CalculateMatchScore(job, talent)
	require.NoError(t, err)

	assert.Equal(t, 40.0, s.Skill)
	assert.Equal(t, 0.0, s.Carrier)
	assert.Equal(t, 20.0, s.WorkType)
	assert.Equal(t, 20.0, s.Affordability)
	assert.Equal(t, 80, s.Total)
}

func TestCalculateMatchScore_EmptyJobSkillsScoreZero(t *testing.T) {
	job := &model.JobPost{Budget: 100000, WorkDays: 10, WorkType: model.WorkTypeRemote}
	talent := &model.TalentProfile{Rate: 5000, Skills: []string{"Go", "React"}, WorkType: model.WorkTypeOnsite}

	s, err := CalculateMatchScore(job, talent)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Skill)
}

func TestCalculateMatchScore_PartialSkillAndCarrierOverlap(t *testing.T) {
	job := &model.JobPost{
		Budget:      100000,
		WorkDays:    10,
		SkillTags:   []string{"Go", "React", "AWS", "SQL"},
		CarrierTags: []string{"docomo", "au"},
		WorkType:    model.WorkTypeRemote,
	}
	talent := &model.TalentProfile{
		Rate:     20000,
		Skills:   []string{"Go", "SQL"},
		Carriers: []string{"au", "softbank"},
		WorkType: model.WorkTypeOnsite,
	}

	s, err := CalculateMatchScore(job, talent)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, s.Skill, 1e-9)
	assert.InDelta(t, 10.0, s.Carrier, 1e-9)
	assert.Equal(t, 0.0, s.WorkType)
	// daily budget 10000 against a 20000 rate
	assert.InDelta(t, 10.0, s.Affordability, 1e-9)
	assert.Equal(t, 40, s.Total)
}

func TestCalculateMatchScore_WorkType(t *testing.T) {
	cases := []struct {
		job, talent model.WorkType
		want        float64
	}{
		{model.WorkTypeRemote, model.WorkTypeRemote, 20},
		{model.WorkTypeHybrid, model.WorkTypeHybrid, 20},
		{model.WorkTypeAny, model.WorkTypeOnsite, 20},
		{model.WorkTypeOnsite, model.WorkTypeAny, 20},
		{model.WorkTypeRemote, model.WorkTypeOnsite, 0},
		{model.WorkTypeHybrid, model.WorkTypeRemote, 0},
	}
	for _, c := range cases {
		job := &model.JobPost{Budget: 1000, WorkDays: 1, WorkType: c.job}
		talent := &model.TalentProfile{Rate: 1000, WorkType: c.talent}
		s, err := CalculateMatchScore(job, talent)
		require.NoError(t, err)
		assert.Equal(t, c.want, s.WorkType, "%s vs %s", c.job, c.talent)
	}
}

func TestCalculateMatchScore_DailyRateTakesPrecedence(t *testing.T) {
	job := &model.JobPost{Budget: 1_000_000, WorkDays: 10, DailyRate: int64Ptr(5000)}
	talent := &model.TalentProfile{Rate: 10000}

	s, err := CalculateMatchScore(job, talent)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, s.Affordability, 1e-9)
}

func TestCalculateMatchScore_CheaperTalentCapsAtFullMarks(t *testing.T) {
	job := &model.JobPost{Budget: 1_000_000, WorkDays: 1}
	talent := &model.TalentProfile{Rate: 1}

	s, err := CalculateMatchScore(job, talent)
	require.NoError(t, err)
	assert.Equal(t, 20.0, s.Affordability)
}

func TestCalculateMatchScore_ZeroRateIsComputationError(t *testing.T) {
	job := &model.JobPost{Budget: 1000, WorkDays: 10}
	talent := &model.TalentProfile{Rate: 0}

	_, err := CalculateMatchScore(job, talent)
	var ce *ComputationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "talent.rate", ce.Field)
}

func TestCalculateMatchScore_ZeroWorkDaysIsComputationError(t *testing.T) {
	job := &model.JobPost{Budget: 1000, WorkDays: 0}
	talent := &model.TalentProfile{Rate: 100}

	_, err := CalculateMatchScore(job, talent)
	var ce *ComputationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "job.workDays", ce.Field)
}

func TestCalculateMatchScore_ZeroWorkDaysWithDailyRateIsFine(t *testing.T) {
	job := &model.JobPost{Budget: 1000, WorkDays: 0, DailyRate: int64Ptr(100)}
	talent := &model.TalentProfile{Rate: 100}

	s, err := CalculateMatchScore(job, talent)
	require.NoError(t, err)
	assert.Equal(t, 20.0, s.Affordability)
}

func TestCalculateMatchScore_AlwaysInRange(t *testing.T) {
	skills := [][]string{nil, {"Go"}, {"Go", "React"}, {"Go", "React", "AWS"}}
	budgets := []int64{-5000, 0, 1, 50000, 10_000_000}
	types := []model.WorkType{model.WorkTypeAny, model.WorkTypeRemote, model.WorkTypeOnsite}

	for _, js := range skills {
		for _, ts := range skills {
			for _, b := range budgets {
				for _, wt := range types {
					job := &model.JobPost{Budget: b, WorkDays: 7, SkillTags: js, CarrierTags: js, WorkType: wt}
					talent := &model.TalentProfile{Rate: 3000, Skills: ts, Carriers: ts, WorkType: model.WorkTypeRemote}
					s, err := CalculateMatchScore(job, talent)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, s.Total, 0)
					assert.LessOrEqual(t, s.Total, 100)
				}
			}
		}
	}
}
