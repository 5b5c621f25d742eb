package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"go.uber.org/zap"
)

// Limiter is satisfied by pkg.DistributedLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit throttles per authenticated user, falling back to the client IP.
func RateLimit(logger *zap.Logger, limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if v, ok := c.Get(pkg.UserId); ok {
			if s, ok := v.(interface{ String() string }); ok {
				key = s.String()
			}
		}
		if !limiter.Allow(c.Request.Context(), key) {
			abort(c, logger, pkg.NewCodeError(pkg.ErrRateLimitedCode))
			return
		}
		c.Next()
	}
}
