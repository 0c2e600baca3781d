package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryLimiter_RefillsOverTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryLimiter(2)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := m.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := m.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	// 其他 IP 不受影响
	ok, _ = m.Allow(ctx, "5.6.7.8")
	assert.True(t, ok)

	// 2 次/分钟，45 秒补充 1.5 个令牌
	now = now.Add(45 * time.Second)
	ok, _ = m.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
	ok, _ = m.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
}

func TestMemoryLimiter_SweepsIdleVisitors(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryLimiter(5)
	m.now = func() time.Time { return now }

	_, _ = m.Allow(context.Background(), "a")
	now = now.Add(5 * time.Minute)
	_, _ = m.Allow(context.Background(), "b")

	assert.NotContains(t, m.visitors, "a")
	assert.Contains(t, m.visitors, "b")
}

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("redis down")
}

func rateLimitedRouter(limiter Limiter) *gin.Engine {
	r := gin.New()
	r.POST("/login", RateLimit(limiter, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimit_Returns429(t *testing.T) {
	r := rateLimitedRouter(NewMemoryLimiter(1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := rateLimitedRouter(errLimiter{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
