package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type SupportHandler struct {
	logger  *zap.Logger
	service services.SupportService
}

func NewSupportHandler(logger *zap.Logger, svc services.SupportService) *SupportHandler {
	return &SupportHandler{logger: logger, service: svc}
}

func (h *SupportHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/support/conversations")
	g.POST("", h.Open)
	g.GET("", h.ListMine)
	g.GET("/:id/messages", h.Messages)
	g.POST("/:id/messages", h.Post)
}

// RegisterAdminRoutes mounts the back-office inbox. Posting through it sends as admin.
func (h *SupportHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	g := r.Group("/support/conversations")
	g.GET("", h.List)
	g.GET("/:id/messages", h.Messages)
	g.POST("/:id/messages", h.Post)
	g.PATCH("/:id", h.Update)
}

func (h *SupportHandler) Open(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.ConversationRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	conv, msg, err := h.service.Open(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.OpenedConversation{
		Conversation: views.NewConversationView(conv),
		Message:      views.NewMessageView(msg),
	})
}

func (h *SupportHandler) ListMine(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	convs, err := h.service.ListMine(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(convs, views.NewConversationView))
}

func (h *SupportHandler) List(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	convs, err := h.service.ListByStatus(c.Request.Context(), req.traceID, c.Query("status"))
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(convs, views.NewConversationView))
}

func (h *SupportHandler) Messages(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(c, h.logger, req.traceID, "id")
	if !ok {
		return
	}
	msgs, err := h.service.Messages(c.Request.Context(), req.traceID, req.caller, id)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(msgs, views.NewMessageView))
}

func (h *SupportHandler) Post(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(c, h.logger, req.traceID, "id")
	if !ok {
		return
	}
	var body views.MessageRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	msg, err := h.service.Post(c.Request.Context(), req.traceID, req.caller, id, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewMessageView(msg))
}

func (h *SupportHandler) Update(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(c, h.logger, req.traceID, "id")
	if !ok {
		return
	}
	var body views.ConversationUpdateRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	conv, err := h.service.Update(c.Request.Context(), req.traceID, req.caller, id, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.NewConversationView(conv))
}
