package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type AccountHandler struct {
	logger  *zap.Logger
	service services.AccountService
}

func NewAccountHandler(logger *zap.Logger, svc services.AccountService) *AccountHandler {
	return &AccountHandler{logger: logger, service: svc}
}

func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.GetOverview)
	r.GET("/accounts", h.ListAccounts)
	r.GET("/accounts/:id", h.GetAccount)
	r.GET("/transfers", h.ListTransfers)
	r.GET("/notifications", h.ListNotifications)
}

// GetOverview godoc
// @Summary  Dashboard overview
// @Tags     accounts
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} views.Overview
// @Router   /me [get]
func (h *AccountHandler) GetOverview(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	overview, err := h.service.Overview(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.Overview{
		Profile:         views.NewProfileView(overview.Profile),
		Accounts:        views.MapSlice(overview.Accounts, views.NewAccountView),
		RecentTransfers: views.MapSlice(overview.Transfers, views.NewTransferView),
	})
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	accounts, err := h.service.ListAccounts(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(accounts, views.NewAccountView))
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(c, h.logger, req.traceID, "id")
	if !ok {
		return
	}
	account, err := h.service.GetAccount(c.Request.Context(), req.traceID, req.caller, id)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.NewAccountView(account))
}

// ListTransfers godoc
// @Summary  Transfer history, optionally for one account
// @Tags     transfers
// @Produce  json
// @Security BearerAuth
// @Param    accountId query string false "account id"
// @Success  200 {array} views.TransferView
// @Router   /transfers [get]
func (h *AccountHandler) ListTransfers(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var accountID *uuid.UUID
	if raw := c.Query("accountId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(c, h.logger, req.traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "accountId must be a uuid", err))
			return
		}
		accountID = &id
	}
	transfers, err := h.service.ListTransfers(c.Request.Context(), req.traceID, req.caller, accountID)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(transfers, views.NewTransferView))
}

func (h *AccountHandler) ListNotifications(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	notifications, err := h.service.ListNotifications(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(notifications, views.NewNotificationView))
}
