package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys and headers carrying the caller identity
const (
	TenantIDKey     = "tenant_id"
	ActorIDKey      = "actor_id"
	RequestIDKey    = "request_id"
	TenantHeaderKey = "X-Tenant-ID"
	ActorHeaderKey  = "X-User-ID"
	RequestIDHeader = "X-Request-ID"
)

// IdentityConfig holds configuration for the identity middleware
type IdentityConfig struct {
	// SkipPaths do not require a tenant (health checks)
	SkipPaths []string
	// RequireActor rejects requests without X-User-ID
	RequireActor bool
	Logger       *zap.Logger
}

// DefaultIdentityConfig returns the default identity configuration
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/api/v1/health"},
	}
}

// Identity extracts the tenant and actor of a request. Every ledger call is
// tenant scoped so a missing or malformed X-Tenant-ID is rejected. The actor
// defaults to uuid.Nil when X-User-ID is absent and RequireActor is false.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		raw := c.GetHeader(TenantHeaderKey)
		if raw == "" {
			abortIdentity(c, dto.ErrCodeNoTenant, "X-Tenant-ID header is required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abortIdentity(c, dto.ErrCodeNoTenant, "X-Tenant-ID must be a UUID")
			return
		}

		actorID := uuid.Nil
		if rawActor := c.GetHeader(ActorHeaderKey); rawActor != "" {
			actorID, err = uuid.Parse(rawActor)
			if err != nil {
				abortIdentity(c, dto.ErrCodeBadRequest, "X-User-ID must be a UUID")
				return
			}
		} else if cfg.RequireActor {
			abortIdentity(c, dto.ErrCodeBadRequest, "X-User-ID header is required")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Set(ActorIDKey, actorID)

		// logger.GinMiddleware already tagged the request logger from the
		// raw headers; only the validated ids are stored here.
		if cfg.Logger != nil {
			cfg.Logger.Debug("Identity resolved",
				zap.String("tenant_id", tenantID.String()),
				zap.String("actor_id", actorID.String()),
			)
		}
		c.Next()
	}
}

func abortIdentity(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetTenantID returns the tenant resolved by Identity, or uuid.Nil
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetActorID returns the actor resolved by Identity, or uuid.Nil
func GetActorID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ActorIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetRequestID returns the request id set by RequestID, falling back to the
// inbound header.
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if len(id) > MaxRequestIDLength {
		return id[:MaxRequestIDLength]
	}
	return id
}
