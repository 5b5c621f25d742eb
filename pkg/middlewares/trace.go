package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
)

const maxTraceIDLen = 128

// TraceID adopts the caller's X-Trace-Id or mints one, stores it under
// pkg.TraceId and echoes it (and any X-Request-Id) on the response.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(pkg.HeaderTraceId)
		if traceID == "" || len(traceID) > maxTraceIDLen {
			traceID = uuid.NewString()
		}
		c.Set(pkg.TraceId, traceID)
		c.Header(pkg.HeaderTraceId, traceID)

		if requestID := c.GetHeader(pkg.HeaderRequestId); requestID != "" {
			c.Set(pkg.RequestId, requestID)
			c.Header(pkg.HeaderRequestId, requestID)
		}
		c.Next()
	}
}
