package middlewares

import (
	"github.com/gin-gonic/gin"
)

// LoggingMiddleware returns a gin middleware that logs each request, with
// an option to silence the health check endpoint so it doesn't flood logs
// under a liveness probe's poll interval.
func LoggingMiddleware(disableHealthcheckLog bool) gin.HandlerFunc {
	logger := gin.Logger()

	if !disableHealthcheckLog {
		return logger
	}

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		logger(c)
	}
}
