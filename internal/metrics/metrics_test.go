package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, "/items/:id", "204"))
	for _, path := range []string{"/items/1", "/items/2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
	after := testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, "/items/:id", "204"))
	assert.Equal(t, 2.0, after-before)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(submissionsTotal.WithLabelValues(ResultAccepted))
	ObserveSubmission(ResultAccepted)
	assert.Equal(t, 1.0, testutil.ToFloat64(submissionsTotal.WithLabelValues(ResultAccepted))-before)

	before = testutil.ToFloat64(statusTransitionsTotal.WithLabelValues("completed"))
	ObserveTransition("completed")
	assert.Equal(t, 1.0, testutil.ToFloat64(statusTransitionsTotal.WithLabelValues("completed"))-before)

	before = testutil.ToFloat64(loginAttemptsTotal.WithLabelValues("failure"))
	ObserveLogin("failure")
	assert.Equal(t, 1.0, testutil.ToFloat64(loginAttemptsTotal.WithLabelValues("failure"))-before)
}

func TestGinMiddlewareSkipsAndGroupsUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware("/metrics"))
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	skipped := testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, "/metrics", "200"))
	unknown := testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, unmatched, "404"))

	for _, path := range []string{"/metrics", "/wp-admin.php"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, skipped, testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, "/metrics", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requestTotal.WithLabelValues(http.MethodGet, unmatched, "404"))-unknown)
}

func TestAsynqMiddlewareOutcome(t *testing.T) {
	handler := AsynqMetricsMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return fmt.Errorf("bad payload: %w", asynq.SkipRetry)
	}))

	before := testutil.ToFloat64(taskProcessedTotal.WithLabelValues("test:task", "dropped"))
	err := handler.ProcessTask(context.Background(), asynq.NewTask("test:task", nil))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 1.0, testutil.ToFloat64(taskProcessedTotal.WithLabelValues("test:task", "dropped"))-before)
	assert.Equal(t, "ok", taskOutcome(nil))
	assert.Equal(t, "failed", taskOutcome(errors.New("boom")))
}
