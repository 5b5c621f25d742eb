package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type ApplicationHandler struct {
	logger  *zap.Logger
	service services.ApplicationService
}

func NewApplicationHandler(logger *zap.Logger, svc services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{logger: logger, service: svc}
}

func (h *ApplicationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/applications", h.Submit)
	r.GET("/applications", h.ListMine)
}

// RegisterAdminRoutes expects r to be behind the admin role gate.
func (h *ApplicationHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/applications", h.List)
	r.PATCH("/applications/:id", h.Review)
}

func (h *ApplicationHandler) Submit(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.ApplicationRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	app, err := h.service.Submit(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewApplicationView(app))
}

func (h *ApplicationHandler) ListMine(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	apps, err := h.service.ListMine(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(apps, views.NewApplicationView))
}

func (h *ApplicationHandler) List(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	apps, err := h.service.ListByStatus(c.Request.Context(), req.traceID, c.Query("status"))
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(apps, views.NewApplicationView))
}

// Review godoc
// @Summary  Approve, reject or request more information on an application
// @Tags     admin
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "application id"
// @Param    request body views.StatusUpdateRequest true "decision"
// @Success  200 {object} views.ApplicationDecision
// @Failure  409 {object} pkg.ErrorResponse
// @Router   /admin/applications/{id} [patch]
func (h *ApplicationHandler) Review(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(c, h.logger, req.traceID, "id")
	if !ok {
		return
	}
	var body views.StatusUpdateRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	decision, err := h.service.Review(c.Request.Context(), req.traceID, req.caller, id, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	out := views.ApplicationDecision{Application: views.NewApplicationView(decision.Application)}
	if decision.Account != nil {
		account := views.NewAccountView(*decision.Account)
		out.Account = &account
	}
	if decision.Card != nil {
		card := views.NewCardView(*decision.Card)
		out.Card = &card
	}
	respond(c, http.StatusOK, req.traceID, out)
}
