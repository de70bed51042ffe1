package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})

	return sr
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_IdentityAttributesAndErrors(t *testing.T) {
	sr := setupTestTracer(t)
	tenant := uuid.New()

	router := gin.New()
	router.Use(RequestID(), Tracing(DefaultTracingConfig()), Identity(DefaultIdentityConfig()), TracingAttributes())
	router.POST("/api/v1/journal-entries/:id/post", func(c *gin.Context) {
		SetErrorCode(c, "CLOSED_PERIOD")
		c.Status(http.StatusConflict)
	})

	req := httptest.NewRequest("POST", "/api/v1/journal-entries/"+uuid.NewString()+"/post", nil)
	req.Header.Set(TenantHeaderKey, tenant.String())
	req.Header.Set(RequestIDHeader, "corr-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "POST /api/v1/journal-entries/:id/post", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)

	a := attrs(span)
	assert.Equal(t, tenant.String(), a["tenant_id"].AsString())
	assert.Equal(t, "corr-1", a["request_id"].AsString())
	assert.Equal(t, "CLOSED_PERIOD", a["ledger.error_code"].AsString())
}

func TestTracing_SuccessLeavesStatusUnset(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(DefaultTracingConfig()), TracingAttributes())
	router.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}
