package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter 按 key 限流
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	tokens   float64
	lastSeen time.Time
}

// MemoryLimiter 进程内令牌桶，每个 IP 一个桶
type MemoryLimiter struct {
	capacity float64
	rate     float64 // 每秒补充的令牌数
	now      func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func NewMemoryLimiter(requestsPerMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		capacity: float64(requestsPerMinute),
		rate:     float64(requestsPerMinute) / 60,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)

	v, exists := m.visitors[key]
	if !exists {
		v = &visitor{tokens: m.capacity, lastSeen: now}
		m.visitors[key] = v
	}

	v.tokens += now.Sub(v.lastSeen).Seconds() * m.rate
	if v.tokens > m.capacity {
		v.tokens = m.capacity
	}
	v.lastSeen = now

	if v.tokens < 1 {
		return false, nil
	}
	v.tokens--
	return true, nil
}

// sweep 清理过期访问者
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < time.Minute {
		return
	}
	m.lastSweep = now
	for key, v := range m.visitors {
		if now.Sub(v.lastSeen) > 3*time.Minute {
			delete(m.visitors, key)
		}
	}
}

// RedisLimiter 固定窗口计数，多实例共享
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, requestsPerMinute int) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  int64(requestsPerMinute),
		window: time.Minute,
		prefix: "rbac:ratelimit:",
		now:    time.Now,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowKey := fmt.Sprintf("%s%s:%d", r.prefix, key, r.now().Unix()/int64(r.window.Seconds()))

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, r.window)
		return nil
	})
	if err != nil {
		return true, err
	}
	return incr.Val() <= r.limit, nil
}

// RateLimit 速率限制中间件，限流器出错时放行
func RateLimit(limiter Limiter, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			l.Warn("rate limiter unavailable", zap.String("ip", c.ClientIP()), zap.Error(err))
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"code":    "rate_limited",
				"message": "请求过于频繁，请稍后再试",
			})
			return
		}
		c.Next()
	}
}
