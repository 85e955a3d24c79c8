package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dwelora/api/internal/logger"
	"github.com/gin-gonic/gin"
)

// Recovery creates a middleware that recovers from panics and logs them.
// It returns a 500 error to the client instead of crashing the server.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Get request ID for logging
				requestID := GetRequestID(c)
				requestLogger := log.WithRequestID(requestID)

				// Log the panic with stack trace
				requestLogger.Error("Panic recovered", fmt.Errorf("%v", err), map[string]interface{}{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"stack":  string(debug.Stack()),
				})

				// Return 500 error to client
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"code":      "INTERNAL_ERROR",
						"message":   "An internal server error occurred",
						"requestId": requestID,
					},
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
