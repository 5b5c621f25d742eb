package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function, e.g. a redis ping, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type BaseHandler struct {
	logger *zap.Logger
	deps   map[string]Pinger
}

func NewBaseHandler(logger *zap.Logger, deps map[string]Pinger) *BaseHandler {
	return &BaseHandler{logger: logger, deps: deps}
}

func (b *BaseHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", b.GetHealth)
	r.GET("/ready", b.GetReady)
}

func (b *BaseHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// GetReady reports 503 until every dependency answers a ping.
func (b *BaseHandler) GetReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(b.deps))
	status := http.StatusOK
	for name, dep := range b.deps {
		if err := dep.Ping(ctx); err != nil {
			b.logger.Warn("readiness_check_failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
}
