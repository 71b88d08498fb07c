// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"servo-service/internal/utils"
)

// RecoveryMiddleware turns handler panics into a JSON 500 and logs them with
// the request ID. A response that has already started is aborted as is.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := utils.GetRequestID(c)
		if requestID == "" {
			requestID = c.GetHeader(RequestIDHeader)
		}

		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("client_ip", c.ClientIP()),
			zap.Bool("response_started", c.Writer.Written()),
			zap.Stack("stacktrace"),
		)

		if c.Writer.Written() {
			c.Abort()
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", nil)
	})
}
