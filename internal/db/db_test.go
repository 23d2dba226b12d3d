package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPostgresPool_BadURL(t *testing.T) {
	_, err := NewPostgresPool(context.Background(), "postgres://%zz")
	assert.ErrorContains(t, err, "parse database url")
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "http://not-redis")
	assert.ErrorContains(t, err, "redis.ParseURL")
}
