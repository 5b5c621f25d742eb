package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

// AdminHandler serves the back-office routes that are not owned by a
// product handler: transfer review and KYC.
type AdminHandler struct {
	logger    *zap.Logger
	transfers services.TransferService
	accounts  services.AccountService
}

func NewAdminHandler(logger *zap.Logger, transfers services.TransferService, accounts services.AccountService) *AdminHandler {
	return &AdminHandler{logger: logger, transfers: transfers, accounts: accounts}
}

func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/transfers", h.ListTransfers)
	r.PATCH("/transfers/:id", h.UpdateTransfer)
	r.PATCH("/users/:id/kyc", h.UpdateKyc)
}

func (h *AdminHandler) ListTransfers(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	transfers, err := h.transfers.ListByStatus(c.Request.Context(), req.traceID, c.Query("status"))
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(transfers, views.NewTransferView))
}

// UpdateTransfer godoc
// @Summary  Move a transfer through its lifecycle; failed and cancelled reverse it
// @Tags     admin
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "transfer id"
// @Param    request body views.StatusUpdateRequest true "new status"
// @Success  200 {object} views.TransferView
// @Failure  409 {object} pkg.ErrorResponse
// @Router   /admin/transfers/{id} [patch]
func (h *AdminHandler) UpdateTransfer(c *gin.Context) {
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
	transfer, err := h.transfers.UpdateStatus(c.Request.Context(), req.traceID, req.caller, id, body.Status)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.NewTransferView(transfer))
}

func (h *AdminHandler) UpdateKyc(c *gin.Context) {
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
	profile, err := h.accounts.UpdateKycStatus(c.Request.Context(), req.traceID, req.caller, id, body.Status)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.NewProfileView(profile))
}
