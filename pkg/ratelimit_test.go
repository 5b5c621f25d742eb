package pkg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDistributedLimiter_LocalBucket(t *testing.T) {
	limiter := NewDistributedLimiter(nil, "ratelimit:test", 1, 2, time.Minute, 0, zap.NewNop())

	assert.True(t, limiter.Allow(context.Background(), "user-1"))
	assert.True(t, limiter.Allow(context.Background(), "user-1"))
	assert.False(t, limiter.Allow(context.Background(), "user-1"))
}

func TestDistributedLimiter_Unlimited(t *testing.T) {
	limiter := NewDistributedLimiter(nil, "ratelimit:test", 0, 0, time.Minute, 0, zap.NewNop())
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(context.Background(), "user-1"))
	}
}
