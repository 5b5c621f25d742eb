package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"go.uber.org/zap"
)

// request carries what every handler needs from the gin context.
type request struct {
	traceID string
	caller  services.Caller
}

// begin resolves trace id and caller, writing the error response itself on failure.
func begin(c *gin.Context, logger *zap.Logger) (request, bool) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		fail(c, logger, "", pkg.NewAppError(pkg.ErrServerCode, pkg.ErrServerCode.Message, err))
		return request{}, false
	}
	userID, err := utils.GetUserID(c)
	if err != nil {
		fail(c, logger, traceID, pkg.NewAppError(pkg.ErrUnauthorizedCode, pkg.ErrUnauthorizedCode.Message, err))
		return request{}, false
	}
	return request{
		traceID: traceID,
		caller: services.Caller{
			ID:    userID,
			Email: c.GetString(pkg.UserEmail),
			Role:  utils.GetUserRole(c),
		},
	}, true
}

func respond(c *gin.Context, status int, traceID string, data any) {
	c.JSON(status, views.APIResponse{TraceID: traceID, Data: data})
}

func fail(c *gin.Context, logger *zap.Logger, traceID string, err error) {
	resp := pkg.ToErrorResponse(logger, traceID, err)
	c.AbortWithStatusJSON(resp.Status, resp)
}

// bind decodes the JSON body; binding failures are invalid input.
func bind(c *gin.Context, logger *zap.Logger, traceID string, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid request body", err))
		return false
	}
	return true
}

func pathID(c *gin.Context, logger *zap.Logger, traceID, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, name+" must be a uuid", err))
		return uuid.Nil, false
	}
	return id, true
}
