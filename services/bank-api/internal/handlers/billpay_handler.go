package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type BillPayHandler struct {
	logger  *zap.Logger
	service services.BillPayService
}

func NewBillPayHandler(logger *zap.Logger, svc services.BillPayService) *BillPayHandler {
	return &BillPayHandler{logger: logger, service: svc}
}

func (h *BillPayHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/payees", h.ListPayees)
	r.POST("/payees", h.AddPayee)
	r.GET("/bill-payments", h.ListPayments)
}

// RegisterPaymentRoutes registers the money-moving route separately so it can be rate limited.
func (h *BillPayHandler) RegisterPaymentRoutes(r *gin.RouterGroup) {
	r.POST("/bill-payments", h.Pay)
}

func (h *BillPayHandler) AddPayee(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.PayeeRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	payee, err := h.service.AddPayee(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewPayeeView(payee))
}

func (h *BillPayHandler) ListPayees(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	payees, err := h.service.ListPayees(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(payees, views.NewPayeeView))
}

func (h *BillPayHandler) Pay(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.BillPaymentRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	payment, err := h.service.Pay(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewBillPaymentView(payment))
}

func (h *BillPayHandler) ListPayments(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	payments, err := h.service.ListPayments(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(payments, views.NewBillPaymentView))
}
