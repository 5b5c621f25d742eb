package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type CardHandler struct {
	logger  *zap.Logger
	service services.CardService
}

func NewCardHandler(logger *zap.Logger, svc services.CardService) *CardHandler {
	return &CardHandler{logger: logger, service: svc}
}

func (h *CardHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/cards", h.ListMine)
	r.POST("/cards", h.Request)
	r.POST("/cards/:id/block", h.setStatus(models.CardBlocked))
	r.POST("/cards/:id/unblock", h.setStatus(models.CardActive))
	r.POST("/cards/:id/cancel", h.setStatus(models.CardCancelled))
}

func (h *CardHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/cards", h.List)
	r.PATCH("/cards/:id", h.Update)
}

func (h *CardHandler) Request(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.CardRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	card, err := h.service.Request(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewCardView(card))
}

func (h *CardHandler) ListMine(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	cards, err := h.service.ListMine(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(cards, views.NewCardView))
}

func (h *CardHandler) List(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	cards, err := h.service.ListByStatus(c.Request.Context(), req.traceID, c.Query("status"))
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(cards, views.NewCardView))
}

func (h *CardHandler) Update(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.StatusUpdateRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	h.update(c, req, models.CardStatus(body.Status))
}

func (h *CardHandler) setStatus(status models.CardStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := begin(c, h.logger)
		if !ok {
			return
		}
		h.update(c, req, status)
	}
}

func (h *CardHandler) update(c *gin.Context, req request, status models.CardStatus) {
	id, ok := pathID(c, h.logger, req.traceID, "id")
	if !ok {
		return
	}
	card, err := h.service.UpdateStatus(c.Request.Context(), req.traceID, req.caller, id, string(status))
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.NewCardView(card))
}
