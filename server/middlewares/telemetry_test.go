package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a2a-go/runtime/server/otel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTelemetry struct {
	otel.NoOp

	requests  []otel.RequestAttributes
	statuses  []int
	durations []float64
}

func (r *recordingTelemetry) RecordRequest(_ context.Context, attrs otel.RequestAttributes) {
	r.requests = append(r.requests, attrs)
}

func (r *recordingTelemetry) RecordResponseStatus(_ context.Context, _ otel.RequestAttributes, statusCode int) {
	r.statuses = append(r.statuses, statusCode)
}

func (r *recordingTelemetry) RecordRequestDuration(_ context.Context, _ otel.RequestAttributes, durationMs float64) {
	r.durations = append(r.durations, durationMs)
}

func TestTelemetryMiddleware_RecordsRequestAndResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &recordingTelemetry{}

	r := gin.New()
	r.Use(NewTelemetryMiddleware(recorder, nil).Middleware())
	r.GET("/v1/tasks/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/tasks/t1", nil))

	require.Len(t, recorder.requests, 1)
	assert.Equal(t, "GET", recorder.requests[0].Method)
	assert.Equal(t, "/v1/tasks/:id", recorder.requests[0].Path, "route template, not the raw URL")

	require.Len(t, recorder.statuses, 1)
	assert.Equal(t, http.StatusNotFound, recorder.statuses[0])
	require.Len(t, recorder.durations, 1)
	assert.GreaterOrEqual(t, recorder.durations[0], 0.0)
}

func TestLoggingMiddleware_SkipsHealthcheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(LoggingMiddleware(true))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
