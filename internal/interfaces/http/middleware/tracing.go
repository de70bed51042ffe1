// Package middleware provides the gin middleware of the ledger HTTP API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "ledger",
		Enabled:     true,
	}
}

// Tracing wraps otelgin. Span names follow "METHOD route" (for example
// "POST /api/v1/journal-entries/:id/post"); identity attributes are added by
// TracingAttributes once Identity has run.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributes stamps request, tenant and actor ids on the current
// span and marks 4xx and 5xx responses as errors. Place it after Identity.
func TracingAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if tenant := GetTenantID(c); tenant != uuid.Nil {
			span.SetAttributes(attribute.String("tenant_id", tenant.String()))
		}
		if actor := GetActorID(c); actor != uuid.Nil {
			span.SetAttributes(attribute.String("actor_id", actor.String()))
		}

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if code, ok := c.Get(errorCodeKey); ok {
			span.SetAttributes(attribute.String("ledger.error_code", code.(string)))
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// errorCodeKey carries the ledger error code of a failed request so the
// span can record it
const errorCodeKey = "ledger_error_code"

// SetErrorCode records the ledger error code of the response
func SetErrorCode(c *gin.Context, code string) {
	c.Set(errorCodeKey, code)
}
