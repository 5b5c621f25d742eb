package pkg

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Errors
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// DistributedLimiter combines a local rate.Limiter with a Redis counter so
// every bank-api replica shares one budget per key.
type DistributedLimiter struct {
	localLimiter *rate.Limiter
	redisClient  redis.Cmdable
	prefix       string        // e.g: "ratelimit:transfers"
	window       time.Duration // counter expiry, also the global window
	limit        int64         // max requests per key per window
	logger       *zap.Logger
}

// NewDistributedLimiter creates a limiter; if perSecond=0, it's unlimited.
func NewDistributedLimiter(redisClient redis.Cmdable, prefix string, perSecond, burst int, window time.Duration, limit int64, logger *zap.Logger) *DistributedLimiter {
	var local *rate.Limiter
	if perSecond > 0 {
		local = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return &DistributedLimiter{
		localLimiter: local,
		redisClient:  redisClient,
		prefix:       prefix,
		window:       window,
		limit:        limit,
		logger:       logger,
	}
}

// Allow checks the local bucket, then the shared per-key counter.
// Redis failures fail open so a cache outage never blocks money movement.
func (d *DistributedLimiter) Allow(ctx context.Context, key string) bool {
	if d.localLimiter == nil {
		return true // Unlimited
	}

	// Local check first (fast path)
	if !d.localLimiter.Allow() {
		return false
	}
	if d.redisClient == nil || d.limit <= 0 {
		return true
	}

	redisKey := d.prefix + ":" + key
	pipe := d.redisClient.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, d.window)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Error("redis_rate_limit_error_falling_back_to_local", zap.Error(err))
		return true
	}

	count := incr.Val()
	if count > d.limit {
		d.logger.Warn("global_rate_limit_exceeded", zap.String("key", redisKey), zap.Int64("count", count))
		return false
	}
	return true
}
