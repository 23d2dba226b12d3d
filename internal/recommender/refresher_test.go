package recommender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bizmatch/internal/events"
	"bizmatch/internal/matcher"
	"bizmatch/internal/model"
	"bizmatch/internal/store"
)

type memCache struct {
	mu      sync.Mutex
	entries map[string][]matcher.Recommendation
	failFor string
}

func (c *memCache) Put(_ context.Context, userID string, recs []matcher.Recommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if userID == c.failFor {
		return errors.New("redis down")
	}
	if c.entries == nil {
		c.entries = map[string][]matcher.Recommendation{}
	}
	c.entries[userID] = recs
	return nil
}

func (c *memCache) get(userID string) ([]matcher.Recommendation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs, ok := c.entries[userID]
	return recs, ok
}

type countingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *countingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type failingSource struct{}

func (failingSource) ListActiveJobs(context.Context) ([]model.JobPost, error) {
	return nil, errors.New("db down")
}

func (failingSource) ListAvailableTalents(context.Context) ([]model.TalentProfile, error) {
	return nil, nil
}

func seed(t *testing.T) *store.Memory {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.InsertJob(ctx, &model.JobPost{
		ID: "j1", UserID: "client", Budget: 300000, WorkDays: 20,
		SkillTags: []string{"Go"}, WorkType: model.WorkTypeAny, Status: model.JobStatusActive,
	}))
	require.NoError(t, st.InsertTalent(ctx, &model.TalentProfile{
		ID: "t1", UserID: "dev", Rate: 10000, Skills: []string{"Go"},
		WorkType: model.WorkTypeRemote, Availability: model.AvailabilityAvailable,
	}))
	require.NoError(t, st.InsertTalent(ctx, &model.TalentProfile{
		ID: "t2", UserID: "idle", Rate: 10000, Skills: []string{"Cobol"},
		WorkType: model.WorkTypeOnsite, Availability: model.AvailabilityAvailable,
	}))
	return st
}

func TestRefresher_Run(t *testing.T) {
	cache := &memCache{}
	pub := &countingPublisher{}
	r := NewRefresher(seed(t), cache, pub, zap.NewNop())

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Users)
	assert.Equal(t, 3, stats.Cached)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 3, pub.count())

	recs, ok := cache.get("client")
	require.True(t, ok)
	require.Len(t, recs, 1)
	assert.Equal(t, "t1", recs[0].Talent.ID)
	assert.Equal(t, 80, recs[0].Score)

	recs, ok = cache.get("dev")
	require.True(t, ok)
	require.Len(t, recs, 1)
	assert.Equal(t, matcher.KindJobForTalent, recs[0].Kind)

	recs, ok = cache.get("idle")
	require.True(t, ok, "users without matches get an empty list, not a miss")
	assert.Empty(t, recs)
}

func TestRefresher_CacheFailureIsCounted(t *testing.T) {
	cache := &memCache{failFor: "dev"}
	pub := &countingPublisher{}
	r := NewRefresher(seed(t), cache, pub, zap.NewNop())

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Cached)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, pub.count())
}

func TestRefresher_SourceFailure(t *testing.T) {
	r := NewRefresher(failingSource{}, &memCache{}, events.Nop{}, zap.NewNop())
	_, err := r.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestScheduler_RunsImmediately(t *testing.T) {
	cache := &memCache{}
	r := NewRefresher(seed(t), cache, events.Nop{}, zap.NewNop())
	s := NewScheduler(r, 6, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		_, ok := cache.get("client")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

// gatedSource blocks ListActiveJobs until release is closed.
type gatedSource struct {
	*store.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) ListActiveJobs(ctx context.Context) ([]model.JobPost, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Memory.ListActiveJobs(ctx)
}

func TestScheduler_StopWaitsForFirstRun(t *testing.T) {
	src := &gatedSource{Memory: seed(t), entered: make(chan struct{}), release: make(chan struct{})}
	cache := &memCache{}
	s := NewScheduler(NewRefresher(src, cache, events.Nop{}, zap.NewNop()), 6, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-src.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh did not start")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a refresh was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(src.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the refresh finished")
	}
	_, ok := cache.get("client")
	assert.True(t, ok)
}

func TestNewScheduler_Spec(t *testing.T) {
	s := NewScheduler(NewRefresher(seed(t), &memCache{}, events.Nop{}, zap.NewNop()), 3, zap.NewNop())
	assert.Equal(t, "@every 3h", s.spec)
}
