package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"go.uber.org/zap"
)

// ProfileEnsurer creates a profile row for a subject seen for the first time.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, traceID string, userID uuid.UUID, email string, role pkg.Role) error
}

// EnsureProfile runs after Authenticate. Every write that names the caller
// references profiles(id), so the row has to exist before any handler runs.
func EnsureProfile(logger *zap.Logger, ensurer ProfileEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := utils.GetUserID(c)
		if err != nil {
			abort(c, logger, pkg.NewAppError(pkg.ErrUnauthorizedCode, pkg.ErrUnauthorizedCode.Message, err))
			return
		}
		if err := ensurer.EnsureProfile(c.Request.Context(), c.GetString(pkg.TraceId), userID,
			c.GetString(pkg.UserEmail), utils.GetUserRole(c)); err != nil {
			abort(c, logger, err)
			return
		}
		c.Next()
	}
}
