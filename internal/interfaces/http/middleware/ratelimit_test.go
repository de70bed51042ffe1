package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func limitedRouter(requests int) *gin.Engine {
	router := gin.New()
	router.Use(RateLimit(NewMemoryLimiter(requests, time.Minute), nil))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func send(router *gin.Engine, tenant string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if tenant != "" {
		req.Header.Set(TenantHeaderKey, tenant)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	t.Run("blocks after limit", func(t *testing.T) {
		router := limitedRouter(3)
		for i := 0; i < 3; i++ {
			w := send(router, "t1")
			assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		}
		w := send(router, "t1")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMITED")
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("tenants have separate buckets", func(t *testing.T) {
		router := limitedRouter(1)
		assert.Equal(t, http.StatusOK, send(router, "t1").Code)
		assert.Equal(t, http.StatusTooManyRequests, send(router, "t1").Code)
		assert.Equal(t, http.StatusOK, send(router, "t2").Code)
	})

	t.Run("headers", func(t *testing.T) {
		w := send(limitedRouter(10), "t1")
		assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	})
}
