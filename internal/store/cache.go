package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bizmatch/internal/matcher"
)

const recommendationKeyPrefix = "recommendations:"

// RecommendationCache keeps each user's latest recommendation list in Redis.
type RecommendationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRecommendationCache returns a cache whose entries expire after ttl.
func NewRecommendationCache(rdb *redis.Client, ttl time.Duration) *RecommendationCache {
	return &RecommendationCache{rdb: rdb, ttl: ttl}
}

// Put replaces userID's cached list.
func (c *RecommendationCache) Put(ctx context.Context, userID string, recs []matcher.Recommendation) error {
	payload, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	if err := c.rdb.Set(ctx, recommendationKeyPrefix+userID, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache recommendations for %s: %w", userID, err)
	}
	return nil
}

// Get returns userID's cached list. ok is false on a cache miss.
func (c *RecommendationCache) Get(ctx context.Context, userID string) (recs []matcher.Recommendation, ok bool, err error) {
	payload, err := c.rdb.Get(ctx, recommendationKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached recommendations for %s: %w", userID, err)
	}
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, false, fmt.Errorf("decode cached recommendations for %s: %w", userID, err)
	}
	return recs, true, nil
}
