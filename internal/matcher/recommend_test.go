package matcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizmatch/internal/model"
)

// strongJob scores 100 against strongTalent.
func strongJob(id, owner string) model.JobPost {
	return model.JobPost{
		ID: id, UserID: owner, Budget: 200000, WorkDays: 20,
		SkillTags: []string{"Go"}, CarrierTags: []string{"au"},
		WorkType: model.WorkTypeRemote, Status: model.JobStatusActive,
	}
}

func strongTalent(id, owner string) model.TalentProfile {
	return model.TalentProfile{
		ID: id, UserID: owner, Rate: 10000,
		Skills: []string{"Go"}, Carriers: []string{"au"},
		WorkType: model.WorkTypeRemote, Availability: model.AvailabilityAvailable,
	}
}

func TestRankRecommendations_TopTwoPerJob(t *testing.T) {
	jobs := []model.JobPost{strongJob("j1", "viewer")}
	talents := []model.TalentProfile{
		strongTalent("t1", "u1"),
		strongTalent("t2", "u2"),
		strongTalent("t3", "u3"),
	}

	recs := RankRecommendations(jobs, talents, "viewer")
	require.Len(t, recs, 2)
	assert.Equal(t, "t1", recs[0].Talent.ID)
	assert.Equal(t, "t2", recs[1].Talent.ID)
	assert.Equal(t, KindTalentForJob, recs[0].Kind)
}

func TestRankRecommendations_SkipsOwnTalentAndUnavailable(t *testing.T) {
	jobs := []model.JobPost{strongJob("j1", "viewer")}
	unavailable := strongTalent("t2", "u2")
	unavailable.Availability = model.AvailabilityUnavailable
	talents := []model.TalentProfile{
		strongTalent("own", "viewer"),
		unavailable,
		strongTalent("t3", "u3"),
	}

	recs := RankRecommendations(jobs, talents, "viewer")
	for _, r := range recs {
		if r.Kind == KindTalentForJob {
			assert.Equal(t, "t3", r.Talent.ID)
		}
	}
}

func TestRankRecommendations_OwnTalentGetsTopThreeJobs(t *testing.T) {
	var jobs []model.JobPost
	for i := range 5 {
		jobs = append(jobs, strongJob(fmt.Sprintf("j%d", i), fmt.Sprintf("owner%d", i)))
	}
	draft := strongJob("draft", "owner9")
	draft.Status = model.JobStatusDraft
	jobs = append(jobs, draft)
	talents := []model.TalentProfile{strongTalent("mine", "viewer")}

	recs := RankRecommendations(jobs, talents, "viewer")
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, KindJobForTalent, r.Kind)
		assert.Equal(t, fmt.Sprintf("j%d", i), r.Job.ID)
	}
}

func TestRankRecommendations_ThresholdAndOrdering(t *testing.T) {
	weak := strongTalent("weak", "u1")
	weak.Skills = nil
	weak.Carriers = nil
	weak.WorkType = model.WorkTypeOnsite // 20 points total

	mid := strongTalent("mid", "u2")
	mid.Carriers = nil // 80 points

	jobs := []model.JobPost{strongJob("j1", "viewer")}
	talents := []model.TalentProfile{weak, mid, strongTalent("best", "u3")}

	recs := RankRecommendations(jobs, talents, "viewer")
	require.Len(t, recs, 2)
	assert.Equal(t, "best", recs[0].Talent.ID)
	assert.Equal(t, 100, recs[0].Score)
	assert.Equal(t, "mid", recs[1].Talent.ID)
	assert.Equal(t, 80, recs[1].Score)
}

func TestRankRecommendations_AtMostSixSortedAboveThreshold(t *testing.T) {
	var jobs []model.JobPost
	for i := range 5 {
		jobs = append(jobs, strongJob(fmt.Sprintf("mine%d", i), "viewer"))
		jobs = append(jobs, strongJob(fmt.Sprintf("other%d", i), fmt.Sprintf("o%d", i)))
	}
	var talents []model.TalentProfile
	for i := range 4 {
		tp := strongTalent(fmt.Sprintf("t%d", i), fmt.Sprintf("u%d", i))
		if i%2 == 1 {
			tp.Carriers = nil
		}
		talents = append(talents, tp)
	}
	talents = append(talents, strongTalent("mine", "viewer"))

	recs := RankRecommendations(jobs, talents, "viewer")
	require.LessOrEqual(t, len(recs), 6)
	require.NotEmpty(t, recs)
	for i, r := range recs {
		assert.GreaterOrEqual(t, r.Score, Threshold)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Score, r.Score)
		}
	}
}

func TestRankRecommendations_SkipsDegeneratePairs(t *testing.T) {
	broken := strongTalent("broken", "u1")
	broken.Rate = 0
	jobs := []model.JobPost{strongJob("j1", "viewer")}

	recs := RankRecommendations(jobs, []model.TalentProfile{broken}, "viewer")
	assert.Empty(t, recs)
}

func TestRankRecommendations_NoJobsNoTalent(t *testing.T) {
	assert.Empty(t, RankRecommendations(nil, nil, "viewer"))
}
