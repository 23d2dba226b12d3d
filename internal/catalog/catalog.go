// Package catalog maintains the jobs and talent profiles the matcher works
// on, and serves scores and recommendations over them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/internal/identity"
	"bizmatch/internal/lifecycle"
	"bizmatch/internal/matcher"
	"bizmatch/internal/model"
	"bizmatch/internal/store"
)

// Store is the persistence the catalog needs.
type Store interface {
	InsertJob(ctx context.Context, j *model.JobPost) error
	GetJob(ctx context.Context, id string) (*model.JobPost, error)
	ListActiveJobs(ctx context.Context) ([]model.JobPost, error)
	SetJobHot(ctx context.Context, id string, hot bool) (*model.JobPost, error)

	InsertTalent(ctx context.Context, t *model.TalentProfile) error
	GetTalent(ctx context.Context, id string) (*model.TalentProfile, error)
	FindTalentByUser(ctx context.Context, userID string) (*model.TalentProfile, error)
	ListAvailableTalents(ctx context.Context) ([]model.TalentProfile, error)
	SetTalentHot(ctx context.Context, id string, hot bool) (*model.TalentProfile, error)
}

// RecommendationReader returns a user's precomputed recommendations.
type RecommendationReader interface {
	Get(ctx context.Context, userID string) ([]matcher.Recommendation, bool, error)
}

// JobInput is the data needed to publish a job.
type JobInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Budget      int64    `json:"budget" validate:"gt=0"`
	DailyRate   *int64   `json:"dailyRate,omitempty" validate:"omitempty,gt=0"`
	WorkDays    int      `json:"workDays" validate:"gt=0"`
	SkillTags   []string `json:"skillTags" validate:"dive,required"`
	CarrierTags []string `json:"carrierTags" validate:"dive,required"`
	WorkType    string   `json:"workType" validate:"omitempty,oneof=any remote onsite hybrid"`
	Draft       bool     `json:"draft,omitempty"`
}

// TalentInput is the data needed to create a talent profile.
type TalentInput struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Rate            int64    `json:"rate" validate:"gt=0"`
	ExperienceYears int      `json:"experienceYears" validate:"gte=0"`
	Skills          []string `json:"skills" validate:"dive,required"`
	Carriers        []string `json:"carriers" validate:"dive,required"`
	WorkType        string   `json:"workType" validate:"omitempty,oneof=any remote onsite hybrid"`
}

// Breakdown is a scored pair together with its profit figures.
type Breakdown struct {
	JobID       string        `json:"jobId"`
	TalentID    string        `json:"talentId"`
	Score       matcher.Score `json:"score"`
	TotalProfit int64         `json:"totalProfit"`
	EachProfit  int64         `json:"eachProfit"`
}

// Service is the catalog's entry point.
type Service struct {
	store    Store
	cache    RecommendationReader
	split    matcher.SplitPolicy
	validate *validator.Validate
	log      *zap.Logger
	newID    func() string
}

// NewService returns a catalog. cache may be nil, in which case
// recommendations are always ranked live.
func NewService(st Store, cache RecommendationReader, split matcher.SplitPolicy, log *zap.Logger) *Service {
	return &Service{
		store:    st,
		cache:    cache,
		split:    split,
		validate: validator.New(),
		log:      log,
		newID:    uuid.NewString,
	}
}

// CreateJob publishes a job owned by actor.
func (s *Service) CreateJob(ctx context.Context, actor identity.Identity, in JobInput) (*model.JobPost, error) {
	if actor.ID == "" {
		return nil, actorError("an authenticated user is required to publish a job")
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	status := model.JobStatusActive
	if in.Draft {
		status = model.JobStatusDraft
	}
	j := &model.JobPost{
		ID:          s.newID(),
		UserID:      actor.ID,
		Title:       strings.TrimSpace(in.Title),
		Budget:      in.Budget,
		DailyRate:   in.DailyRate,
		WorkDays:    in.WorkDays,
		SkillTags:   normalizeTags(in.SkillTags),
		CarrierTags: normalizeTags(in.CarrierTags),
		WorkType:    workType(in.WorkType),
		Status:      status,
	}
	if err := s.store.InsertJob(ctx, j); err != nil {
		return nil, storeErr("insert job", err)
	}
	s.log.Info("job published", zap.String("jobId", j.ID), zap.String("userId", actor.ID))
	return j, nil
}

// CreateTalent creates actor's talent profile. A user owns at most one.
func (s *Service) CreateTalent(ctx context.Context, actor identity.Identity, in TalentInput) (*model.TalentProfile, error) {
	if actor.ID == "" {
		return nil, actorError("an authenticated user is required to create a talent profile")
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	if _, err := s.store.FindTalentByUser(ctx, actor.ID); err == nil {
		return nil, inputError("user %s already has a talent profile", actor.ID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr("find talent", err)
	}

	t := &model.TalentProfile{
		ID:              s.newID(),
		UserID:          actor.ID,
		Name:            strings.TrimSpace(in.Name),
		Rate:            in.Rate,
		ExperienceYears: in.ExperienceYears,
		Skills:          normalizeTags(in.Skills),
		Carriers:        normalizeTags(in.Carriers),
		WorkType:        workType(in.WorkType),
		Availability:    model.AvailabilityAvailable,
	}
	if err := s.store.InsertTalent(ctx, t); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, inputError("user %s already has a talent profile", actor.ID)
		}
		return nil, storeErr("insert talent", err)
	}
	return t, nil
}

// SetJobHot flags or unflags a job. Admins only.
func (s *Service) SetJobHot(ctx context.Context, actor identity.Identity, id string, hot bool) (*model.JobPost, error) {
	if !actor.IsAdmin() {
		return nil, actorError("only admins can change the hot flag")
	}
	j, err := s.store.SetJobHot(ctx, id, hot)
	if err != nil {
		return nil, storeErr("set job hot", err)
	}
	return j, nil
}

// SetTalentHot flags or unflags a talent profile. Admins only.
func (s *Service) SetTalentHot(ctx context.Context, actor identity.Identity, id string, hot bool) (*model.TalentProfile, error) {
	if !actor.IsAdmin() {
		return nil, actorError("only admins can change the hot flag")
	}
	t, err := s.store.SetTalentHot(ctx, id, hot)
	if err != nil {
		return nil, storeErr("set talent hot", err)
	}
	return t, nil
}

func (s *Service) ListActiveJobs(ctx context.Context) ([]model.JobPost, error) {
	jobs, err := s.store.ListActiveJobs(ctx)
	if err != nil {
		return nil, storeErr("list jobs", err)
	}
	return jobs, nil
}

func (s *Service) ListAvailableTalents(ctx context.Context) ([]model.TalentProfile, error) {
	talents, err := s.store.ListAvailableTalents(ctx)
	if err != nil {
		return nil, storeErr("list talents", err)
	}
	return talents, nil
}

// Score computes the match score and profit split of one job/talent pair.
func (s *Service) Score(ctx context.Context, jobID, talentID string) (*Breakdown, error) {
	if jobID == "" || talentID == "" {
		return nil, inputError("jobId and talentId are required")
	}
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, storeErr("load job", err)
	}
	talent, err := s.store.GetTalent(ctx, talentID)
	if err != nil {
		return nil, storeErr("load talent", err)
	}
	score, err := matcher.CalculateMatchScore(job, talent)
	if err != nil {
		return nil, err
	}
	total := matcher.CalculateProfit(job.Budget, talent.Rate, job.WorkDays)
	return &Breakdown{
		JobID:       job.ID,
		TalentID:    talent.ID,
		Score:       score,
		TotalProfit: total,
		EachProfit:  s.split.Each(total),
	}, nil
}

// Recommendations returns actor's recommendations, from the cache when the
// refresher has filled it and ranked live otherwise. Cached pairs whose job
// is no longer active or whose talent is no longer available are dropped.
func (s *Service) Recommendations(ctx context.Context, actor identity.Identity) ([]matcher.Recommendation, error) {
	if actor.ID == "" {
		return nil, actorError("an authenticated user is required for recommendations")
	}
	var (
		cached []matcher.Recommendation
		hit    bool
	)
	if s.cache != nil {
		recs, ok, err := s.cache.Get(ctx, actor.ID)
		switch {
		case err != nil:
			s.log.Warn("recommendation cache unavailable, ranking live", zap.String("userId", actor.ID), zap.Error(err))
		case ok:
			cached, hit = recs, true
		}
	}

	jobs, err := s.ListActiveJobs(ctx)
	if err != nil {
		return nil, err
	}
	talents, err := s.ListAvailableTalents(ctx)
	if err != nil {
		return nil, err
	}
	if hit {
		return stillOpen(cached, jobs, talents), nil
	}
	recs := matcher.RankRecommendations(jobs, talents, actor.ID)
	if recs == nil {
		recs = []matcher.Recommendation{}
	}
	return recs, nil
}

// stillOpen keeps the cached pairs whose job is in jobs and whose talent is
// in talents, refreshing both snapshots.
func stillOpen(recs []matcher.Recommendation, jobs []model.JobPost, talents []model.TalentProfile) []matcher.Recommendation {
	activeJobs := make(map[string]model.JobPost, len(jobs))
	for _, j := range jobs {
		activeJobs[j.ID] = j
	}
	available := make(map[string]model.TalentProfile, len(talents))
	for _, t := range talents {
		available[t.ID] = t
	}

	out := make([]matcher.Recommendation, 0, len(recs))
	for _, rec := range recs {
		job, ok := activeJobs[rec.Job.ID]
		if !ok {
			continue
		}
		talent, ok := available[rec.Talent.ID]
		if !ok {
			continue
		}
		rec.Job, rec.Talent = job, talent
		out = append(out, rec)
	}
	return out
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) && len(ves) > 0 {
			return inputError("invalid %s: %s", ves[0].Field(), ves[0].Tag())
		}
		return inputError("invalid request: %v", err)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func workType(s string) model.WorkType {
	if s == "" {
		return model.WorkTypeAny
	}
	return model.WorkType(s)
}

func actorError(format string, args ...any) error {
	return &lifecycle.ValidationError{Reason: lifecycle.ReasonActor, Msg: fmt.Sprintf(format, args...)}
}

func inputError(format string, args ...any) error {
	return &lifecycle.ValidationError{Reason: lifecycle.ReasonInput, Msg: fmt.Sprintf(format, args...)}
}

func storeErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return lifecycle.ErrNotFound
	}
	return &lifecycle.StoreError{Op: op, Err: err}
}
