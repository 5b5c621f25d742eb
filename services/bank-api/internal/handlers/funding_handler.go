package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type FundingHandler struct {
	logger  *zap.Logger
	service services.FundingService
}

func NewFundingHandler(logger *zap.Logger, svc services.FundingService) *FundingHandler {
	return &FundingHandler{logger: logger, service: svc}
}

func (h *FundingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/deposits", h.ListDeposits)
	r.POST("/deposits", h.RequestDeposit)
	r.GET("/withdrawals", h.ListWithdrawals)
	r.POST("/withdrawals", h.RequestWithdrawal)
}

func (h *FundingHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/deposits", h.ListDepositsByStatus)
	r.PATCH("/deposits/:id", h.ReviewDeposit)
	r.GET("/withdrawals", h.ListWithdrawalsByStatus)
	r.PATCH("/withdrawals/:id", h.ReviewWithdrawal)
}

func (h *FundingHandler) RequestDeposit(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.DepositRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	deposit, err := h.service.RequestDeposit(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewDepositView(deposit))
}

func (h *FundingHandler) ListDeposits(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	deposits, err := h.service.ListDeposits(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(deposits, views.NewDepositView))
}

func (h *FundingHandler) ListDepositsByStatus(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	deposits, err := h.service.ListDepositsByStatus(c.Request.Context(), req.traceID, c.Query("status"))
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(deposits, views.NewDepositView))
}

func (h *FundingHandler) ReviewDeposit(c *gin.Context) {
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
	deposit, err := h.service.ReviewDeposit(c.Request.Context(), req.traceID, req.caller, id, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.NewDepositView(deposit))
}

func (h *FundingHandler) RequestWithdrawal(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.WithdrawalRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	withdrawal, err := h.service.RequestWithdrawal(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewWithdrawalView(withdrawal))
}

func (h *FundingHandler) ListWithdrawals(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	withdrawals, err := h.service.ListWithdrawals(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(withdrawals, views.NewWithdrawalView))
}

func (h *FundingHandler) ListWithdrawalsByStatus(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	withdrawals, err := h.service.ListWithdrawalsByStatus(c.Request.Context(), req.traceID, c.Query("status"))
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(withdrawals, views.NewWithdrawalView))
}

func (h *FundingHandler) ReviewWithdrawal(c *gin.Context) {
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
	withdrawal, err := h.service.ReviewWithdrawal(c.Request.Context(), req.traceID, req.caller, id, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.NewWithdrawalView(withdrawal))
}
