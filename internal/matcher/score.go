// Package matcher scores job/talent pairs and computes profit figures.
//
// Everything here is pure: no I/O, no clock, no shared state.
package matcher

import (
	"fmt"
	"math"

	"bizmatch/internal/model"
)

// Sub-score weights. They sum to 100.
const (
	skillWeight         = 40.0
	carrierWeight       = 20.0
	workTypeWeight      = 20.0
	affordabilityWeight = 20.0
)

// Score is a match score with its per-facet breakdown.
type Score struct {
	Total         int     `json:"total"`
	Skill         float64 `json:"skill"`
	Carrier       float64 `json:"carrier"`
	WorkType      float64 `json:"workType"`
	Affordability float64 `json:"affordability"`
}

// ComputationError reports degenerate scoring or profit inputs.
type ComputationError struct {
	Field string
	Msg   string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("cannot compute with %s: %s", e.Field, e.Msg)
}

// CalculateMatchScore returns the compatibility of job and talent in [0,100].
func CalculateMatchScore(job *model.JobPost, talent *model.TalentProfile) (Score, error) {
	affordability, err := affordabilityScore(job, talent)
	if err != nil {
		return Score{}, err
	}

	s := Score{
		Skill:         overlapScore(job.SkillTags, talent.Skills, skillWeight),
		Carrier:       overlapScore(job.CarrierTags, talent.Carriers, carrierWeight),
		WorkType:      workTypeScore(job.WorkType, talent.WorkType),
		Affordability: affordability,
	}
	s.Total = int(math.Round(s.Skill + s.Carrier + s.WorkType + s.Affordability))
	return s, nil
}

// overlapScore awards weight in proportion to the job tags the talent has.
// A job without tags scores 0 for the facet.
func overlapScore(jobTags, talentTags []string, weight float64) float64 {
	if len(jobTags) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(talentTags))
	for _, t := range talentTags {
		have[t] = struct{}{}
	}
	matched := 0
	for _, t := range jobTags {
		if _, ok := have[t]; ok {
			matched++
		}
	}
	return weight * float64(matched) / float64(len(jobTags))
}

func workTypeScore(job, talent model.WorkType) float64 {
	if job == model.WorkTypeAny || talent == model.WorkTypeAny || job == talent {
		return workTypeWeight
	}
	return 0
}

func affordabilityScore(job *model.JobPost, talent *model.TalentProfile) (float64, error) {
	if talent.Rate <= 0 {
		return 0, &ComputationError{Field: "talent.rate", Msg: "must be positive"}
	}
	daily, err := DailyBudget(job)
	if err != nil {
		return 0, err
	}
	ratio := daily / float64(talent.Rate)
	ratio = math.Max(0, math.Min(ratio, 1))
	return affordabilityWeight * ratio, nil
}

// DailyBudget returns the job's explicit daily rate, or budget spread over
// its work days when no daily rate is set.
func DailyBudget(job *model.JobPost) (float64, error) {
	if job.DailyRate != nil && *job.DailyRate > 0 {
		return float64(*job.DailyRate), nil
	}
	if job.WorkDays <= 0 {
		return 0, &ComputationError{Field: "job.workDays", Msg: "must be positive when no daily rate is set"}
	}
	return float64(job.Budget) / float64(job.WorkDays), nil
}
