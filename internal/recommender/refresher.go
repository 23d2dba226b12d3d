// Package recommender periodically recomputes every user's recommendations
// and caches them for the API.
package recommender

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bizmatch/internal/events"
	"bizmatch/internal/matcher"
	"bizmatch/internal/model"
)

// workers bounds how many users are refreshed at once.
const workers = 8

// Source lists the records recommendations are computed from.
type Source interface {
	ListActiveJobs(ctx context.Context) ([]model.JobPost, error)
	ListAvailableTalents(ctx context.Context) ([]model.TalentProfile, error)
}

// Cache stores one user's recommendation list.
type Cache interface {
	Put(ctx context.Context, userID string, recs []matcher.Recommendation) error
}

// Stats summarises one refresh cycle.
type Stats struct {
	Users    int
	Cached   int
	Failed   int
	Duration time.Duration
}

// Refresher computes and caches recommendations for every user that owns an
// active job or an available talent profile.
type Refresher struct {
	source Source
	cache  Cache
	events events.Publisher
	log    *zap.Logger
}

func NewRefresher(source Source, cache Cache, pub events.Publisher, log *zap.Logger) *Refresher {
	return &Refresher{source: source, cache: cache, events: pub, log: log}
}

// Run executes one refresh cycle. Per-user cache failures are counted and
// logged; only a failure to load the inputs fails the cycle.
func (r *Refresher) Run(ctx context.Context) (Stats, error) {
	start := time.Now()

	jobs, err := r.source.ListActiveJobs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list active jobs: %w", err)
	}
	talents, err := r.source.ListAvailableTalents(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list available talents: %w", err)
	}

	users := owners(jobs, talents)
	var cached, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, userID := range users {
		g.Go(func() error {
			recs := matcher.RankRecommendations(jobs, talents, userID)
			if recs == nil {
				recs = []matcher.Recommendation{}
			}
			if err := r.cache.Put(gctx, userID, recs); err != nil {
				failed.Add(1)
				r.log.Warn("caching recommendations failed", zap.String("userId", userID), zap.Error(err))
				return nil
			}
			cached.Add(1)

			e := events.Event{
				Type:     events.TypeRecommendationsRefresh,
				EntityID: userID,
				Parties:  []string{userID},
				At:       time.Now().UTC(),
			}
			if err := r.events.Publish(gctx, e); err != nil {
				r.log.Warn("publish event failed", zap.String("type", e.Type), zap.String("userId", userID), zap.Error(err))
			}
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	return Stats{
		Users:    len(users),
		Cached:   int(cached.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}, nil
}

// owners returns the distinct owners of jobs and talents in first-seen order.
func owners(jobs []model.JobPost, talents []model.TalentProfile) []string {
	var ids []string
	add := func(id string) {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	for _, j := range jobs {
		add(j.UserID)
	}
	for _, t := range talents {
		add(t.UserID)
	}
	return ids
}
