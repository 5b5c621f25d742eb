package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/auth"
	"go.uber.org/zap"
)

// Authenticate verifies the bearer token and stores the caller in the gin context.
// Browsers cannot set headers on websocket upgrades, so an access_token query
// parameter is accepted as a fallback.
func Authenticate(logger *zap.Logger, tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader(pkg.HeaderAuthorization))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			abort(c, logger, pkg.NewAppError(pkg.ErrUnauthorizedCode, "missing bearer token", nil))
			return
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			abort(c, logger, pkg.NewAppError(pkg.ErrUnauthorizedCode, pkg.ErrUnauthorizedCode.Message, err))
			return
		}
		userID, _ := claims.Subject()
		c.Set(pkg.UserId, userID)
		c.Set(pkg.UserRole, claims.Role)
		c.Set(pkg.UserEmail, claims.Email)
		c.Next()
	}
}

// RequireRole rejects callers whose role differs from role.
func RequireRole(logger *zap.Logger, role pkg.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, _ := c.Get(pkg.UserRole)
		if r, ok := v.(pkg.Role); !ok || r != role {
			abort(c, logger, pkg.NewCodeError(pkg.ErrForbiddenCode))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abort(c *gin.Context, logger *zap.Logger, err error) {
	resp := pkg.ToErrorResponse(logger, c.GetString(pkg.TraceId), err)
	c.AbortWithStatusJSON(resp.Status, resp)
}
