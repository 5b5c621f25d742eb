package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/realtime"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// RealtimeHandler upgrades to a websocket and forwards the caller's row changes.
type RealtimeHandler struct {
	logger   *zap.Logger
	changes  realtime.Subscriber
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(logger *zap.Logger, changes realtime.Subscriber) *RealtimeHandler {
	return &RealtimeHandler{
		logger:  logger,
		changes: changes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *RealtimeHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/realtime", h.Stream)
}

func (h *RealtimeHandler) Stream(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	filter := realtime.Filter{UserID: req.caller.ID, IsAdmin: req.caller.IsAdmin(), Tables: parseTables(c.Query("tables"))}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("realtime_upgrade_failed", zap.String(pkg.TraceId, req.traceID), zap.Error(err))
		return
	}
	defer conn.Close()

	events, stop := h.changes.Subscribe(c.Request.Context())
	defer stop()
	h.logger.Info("realtime_subscribed", zap.String(pkg.TraceId, req.traceID), zap.String(pkg.UserId, req.caller.ID.String()))

	// the read loop only services pongs and detects the close
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			h.logger.Info("realtime_unsubscribed", zap.String(pkg.TraceId, req.traceID))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !filter.Match(ev) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("realtime_write_failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func parseTables(raw string) map[string]struct{} {
	tables := make(map[string]struct{})
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables[t] = struct{}{}
		}
	}
	return tables
}
