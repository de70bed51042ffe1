package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// NewMemoryLimiter builds an in-process limiter allowing requests per window
func NewMemoryLimiter(requests int, window time.Duration) *limiter.Limiter {
	rate := limiter.Rate{Period: window, Limit: int64(requests)}
	return limiter.New(memory.NewStore(), rate)
}

// RateLimitKey derives the bucket a request counts against
type RateLimitKey func(c *gin.Context) string

// TenantIPKey buckets by tenant header and client IP. It runs before
// Identity, so the raw header is used.
func TenantIPKey(c *gin.Context) string {
	return c.GetHeader(TenantHeaderKey) + "|" + c.ClientIP()
}

// RateLimit rejects requests once their bucket is exhausted. Limiter store
// failures let the request through.
func RateLimit(l *limiter.Limiter, key RateLimitKey) gin.HandlerFunc {
	if key == nil {
		key = TenantIPKey
	}
	return func(c *gin.Context) {
		k := key(c)
		lctx, err := l.Get(c.Request.Context(), k)
		if err != nil {
			logger.FromContext(c.Request.Context()).Error("Rate limit lookup failed", zap.String("key", k), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			logger.FromContext(c.Request.Context()).Warn("Rate limit exceeded",
				zap.String("key", k),
				zap.Int64("limit", lctx.Limit),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				fmt.Sprintf("Too many requests, limit is %d", lctx.Limit),
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
