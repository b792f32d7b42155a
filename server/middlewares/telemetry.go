package middlewares

import (
	"time"

	"github.com/a2a-go/runtime/server/otel"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Telemetry wraps the otel recorder into a mountable gin middleware.
type Telemetry interface {
	Middleware() gin.HandlerFunc
}

type telemetryImpl struct {
	telemetry otel.OpenTelemetry
	logger    *zap.Logger
}

// NewTelemetryMiddleware builds the request/response/duration recorder,
// labeling each request with method and route path.
func NewTelemetryMiddleware(telemetry otel.OpenTelemetry, logger *zap.Logger) Telemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &telemetryImpl{telemetry: telemetry, logger: logger}
}

func (t *telemetryImpl) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		attrs := otel.RequestAttributes{Method: c.Request.Method, Path: c.FullPath()}

		t.telemetry.RecordRequest(c.Request.Context(), attrs)

		c.Next()

		durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)
		status := c.Writer.Status()

		t.telemetry.RecordResponseStatus(c.Request.Context(), attrs, status)
		t.telemetry.RecordRequestDuration(c.Request.Context(), attrs, durationMs)

		t.logger.Debug("request telemetry recorded",
			zap.String("method", attrs.Method),
			zap.String("path", attrs.Path),
			zap.Int("status_code", status),
			zap.Float64("duration_ms", durationMs))
	}
}
