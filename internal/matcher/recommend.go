package matcher

import (
	"cmp"
	"slices"

	"bizmatch/internal/model"
)

// Threshold is the minimum score a pair needs to be recommended.
const Threshold = 60

const (
	perJobLimit    = 2
	perTalentLimit = 3
	overallLimit   = 6
)

// Kind tells which side of a recommendation belongs to the viewer.
type Kind string

const (
	KindTalentForJob Kind = "talent_for_job"
	KindJobForTalent Kind = "job_for_talent"
)

// Recommendation is one scored job/talent pair.
type Recommendation struct {
	Kind   Kind                `json:"kind"`
	Job    model.JobPost       `json:"job"`
	Talent model.TalentProfile `json:"talent"`
	Score  int                 `json:"score"`
}

// RankRecommendations returns at most six pairs for viewerID, best first.
//
// The viewer's active jobs are scored against other users' available talent
// (top two per job), and the viewer's own available profile against other
// users' active jobs (top three). Equal scores keep enumeration order.
// Pairs that cannot be scored are skipped.
func RankRecommendations(jobs []model.JobPost, talents []model.TalentProfile, viewerID string) []Recommendation {
	var out []Recommendation

	for i := range jobs {
		job := &jobs[i]
		if job.UserID != viewerID || job.Status != model.JobStatusActive {
			continue
		}
		var candidates []Recommendation
		for j := range talents {
			t := &talents[j]
			if t.UserID == viewerID || t.UserID == job.UserID || t.Availability != model.AvailabilityAvailable {
				continue
			}
			if rec, ok := scorePair(KindTalentForJob, job, t); ok {
				candidates = append(candidates, rec)
			}
		}
		out = append(out, top(candidates, perJobLimit)...)
	}

	if own := ownAvailableTalent(talents, viewerID); own != nil {
		var candidates []Recommendation
		for i := range jobs {
			job := &jobs[i]
			if job.UserID == viewerID || job.Status != model.JobStatusActive {
				continue
			}
			if rec, ok := scorePair(KindJobForTalent, job, own); ok {
				candidates = append(candidates, rec)
			}
		}
		out = append(out, top(candidates, perTalentLimit)...)
	}

	return top(out, overallLimit)
}

func ownAvailableTalent(talents []model.TalentProfile, viewerID string) *model.TalentProfile {
	for i := range talents {
		if talents[i].UserID == viewerID && talents[i].Availability == model.AvailabilityAvailable {
			return &talents[i]
		}
	}
	return nil
}

func scorePair(kind Kind, job *model.JobPost, talent *model.TalentProfile) (Recommendation, bool) {
	s, err := CalculateMatchScore(job, talent)
	if err != nil || s.Total < Threshold {
		return Recommendation{}, false
	}
	return Recommendation{Kind: kind, Job: *job, Talent: *talent, Score: s.Total}, true
}

// top sorts recs by descending score, stable, and keeps the first n.
func top(recs []Recommendation, n int) []Recommendation {
	slices.SortStableFunc(recs, func(a, b Recommendation) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(recs) > n {
		recs = recs[:n]
	}
	return recs
}
