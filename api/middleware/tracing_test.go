package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *mocktracer.MockTracer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tracer := mocktracer.New()
	previous := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	t.Cleanup(func() { opentracing.SetGlobalTracer(previous) })

	r := gin.New()
	r.Use(TracingMiddleware())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return r, tracer
}

func TestTracingMiddleware_TagsErrorResponses(t *testing.T) {
	r, tracer := newTracedRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, true, spans[0].Tag("error"))
	assert.Equal(t, uint16(http.StatusNotFound), spans[0].Tag("http.status_code"))
}

func TestTracingMiddleware_SuccessLeavesSpanClean(t *testing.T) {
	r, tracer := newTracedRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 1)
	assert.Nil(t, spans[0].Tag("error"))
}
