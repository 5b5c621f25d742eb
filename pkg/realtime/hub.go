package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannel is the redis pub/sub channel carrying row changes.
const DefaultChannel = "bank:changes"

// Publisher announces committed row changes.
type Publisher interface {
	PublishChange(ctx context.Context, ev views.ChangeEvent)
}

// Subscriber streams row changes until ctx ends or the returned stop is called.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan views.ChangeEvent, func())
}

// Hub fans change events out through redis pub/sub so every bank-api replica
// can serve every websocket.
type Hub struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewHub(client *redis.Client, channel string, logger *zap.Logger) *Hub {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Hub{client: client, channel: channel, logger: logger}
}

// PublishChange is best effort: subscribers refetch on any later change, so a
// lost event only delays a refresh.
func (h *Hub) PublishChange(ctx context.Context, ev views.ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("realtime_encode_failed", zap.Error(err))
		return
	}
	if err := h.client.Publish(ctx, h.channel, payload).Err(); err != nil {
		h.logger.Warn("realtime_publish_failed", zap.String("table", ev.Table), zap.Error(err))
	}
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan views.ChangeEvent, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sub := h.client.Subscribe(ctx, h.channel)
	out := make(chan views.ChangeEvent, 64)

	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev views.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					h.logger.Warn("realtime_decode_failed", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				default:
					// slow consumer; it will catch up on the next change
					h.logger.Debug("realtime_event_dropped", zap.String("table", ev.Table))
				}
			}
		}
	}()
	return out, cancel
}

// Filter decides which change events a subscriber receives.
type Filter struct {
	UserID  uuid.UUID
	IsAdmin bool
	Tables  map[string]struct{} // empty means all tables
}

func (f Filter) Match(ev views.ChangeEvent) bool {
	if len(f.Tables) > 0 {
		if _, ok := f.Tables[ev.Table]; !ok {
			return false
		}
	}
	return f.IsAdmin || ev.UserID == f.UserID
}
