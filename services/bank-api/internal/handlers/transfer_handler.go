package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type TransferHandler struct {
	logger  *zap.Logger
	service services.TransferService
}

func NewTransferHandler(logger *zap.Logger, svc services.TransferService) *TransferHandler {
	return &TransferHandler{logger: logger, service: svc}
}

// RegisterRoutes registers money-moving routes; the caller applies the rate limiter.
func (h *TransferHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transfers/internal", h.CreateInternal)
	r.POST("/transfers/external", h.CreateExternal)
}

// CreateInternal godoc
// @Summary  Transfer between the caller's own accounts
// @Tags     transfers
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    Idempotency-Key header string false "uuid; a replay returns the original transfer"
// @Param    request body views.InternalTransferRequest true "transfer"
// @Success  201 {object} views.TransferView
// @Success  200 {object} views.TransferView "replayed"
// @Failure  400 {object} pkg.ErrorResponse
// @Failure  422 {object} pkg.ErrorResponse
// @Router   /transfers/internal [post]
func (h *TransferHandler) CreateInternal(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	key, ok := h.idempotencyKey(c, req.traceID)
	if !ok {
		return
	}
	var body views.InternalTransferRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	transfer, replayed, err := h.service.CreateInternal(c.Request.Context(), req.traceID, req.caller, body, key)
	h.write(c, req.traceID, transfer, replayed, err)
}

// CreateExternal godoc
// @Summary  Transfer to an account at another bank
// @Tags     transfers
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    Idempotency-Key header string false "uuid"
// @Param    request body views.ExternalTransferRequest true "transfer"
// @Success  201 {object} views.TransferView
// @Router   /transfers/external [post]
func (h *TransferHandler) CreateExternal(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	key, ok := h.idempotencyKey(c, req.traceID)
	if !ok {
		return
	}
	var body views.ExternalTransferRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	transfer, replayed, err := h.service.CreateExternal(c.Request.Context(), req.traceID, req.caller, body, key)
	h.write(c, req.traceID, transfer, replayed, err)
}

func (h *TransferHandler) write(c *gin.Context, traceID string, transfer models.Transfer, replayed bool, err error) {
	if err != nil {
		fail(c, h.logger, traceID, err)
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	respond(c, status, traceID, views.NewTransferView(transfer))
}

func (h *TransferHandler) idempotencyKey(c *gin.Context, traceID string) (*uuid.UUID, bool) {
	raw := c.GetHeader(pkg.HeaderIdempotencyKey)
	if raw == "" {
		return nil, true
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		fail(c, h.logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "Idempotency-Key must be a uuid", err))
		return nil, false
	}
	return &key, true
}
