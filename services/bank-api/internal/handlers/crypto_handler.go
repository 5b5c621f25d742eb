package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type CryptoHandler struct {
	logger  *zap.Logger
	service services.ExchangeService
}

func NewCryptoHandler(logger *zap.Logger, svc services.ExchangeService) *CryptoHandler {
	return &CryptoHandler{logger: logger, service: svc}
}

func (h *CryptoHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/crypto")
	g.GET("/wallets", h.ListWallets)
	g.POST("/wallets", h.CreateWallet)
	g.GET("/prices", h.Prices)
	g.POST("/quote", h.Quote)
	g.GET("/exchanges", h.ListExchanges)
}

func (h *CryptoHandler) RegisterExchangeRoutes(r *gin.RouterGroup) {
	r.POST("/crypto/exchange", h.Exchange)
}

func (h *CryptoHandler) ListWallets(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	wallets, err := h.service.ListWallets(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(wallets, views.NewWalletView))
}

func (h *CryptoHandler) CreateWallet(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.WalletRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	wallet, err := h.service.CreateWallet(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewWalletView(wallet))
}

func (h *CryptoHandler) Prices(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	prices, err := h.service.Prices(c.Request.Context(), req.traceID)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, prices)
}

func (h *CryptoHandler) Quote(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.ExchangeRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	quote, err := h.service.Quote(c.Request.Context(), req.traceID, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, quote)
}

// Exchange godoc
// @Summary  Exchange between two of the caller's crypto wallets
// @Tags     crypto
// @Accept   json
// @Produce  json
// @Security BearerAuth
// @Param    request body views.ExchangeRequest true "exchange"
// @Success  201 {object} views.ExchangeView
// @Failure  422 {object} pkg.ErrorResponse
// @Router   /crypto/exchange [post]
func (h *CryptoHandler) Exchange(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	var body views.ExchangeRequest
	if !bind(c, h.logger, req.traceID, &body) {
		return
	}
	exchange, err := h.service.Exchange(c.Request.Context(), req.traceID, req.caller, body)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusCreated, req.traceID, views.NewExchangeView(exchange))
}

func (h *CryptoHandler) ListExchanges(c *gin.Context) {
	req, ok := begin(c, h.logger)
	if !ok {
		return
	}
	exchanges, err := h.service.ListExchanges(c.Request.Context(), req.traceID, req.caller)
	if err != nil {
		fail(c, h.logger, req.traceID, err)
		return
	}
	respond(c, http.StatusOK, req.traceID, views.MapSlice(exchanges, views.NewExchangeView))
}
