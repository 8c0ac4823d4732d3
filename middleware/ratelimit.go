package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"wavecrest-planner/utils"
)

// RateLimiter counts requests per IP + route in a fixed Redis window. When
// Redis is missing or failing it falls back to an in-process token bucket
// per key, so limits still hold on a single instance.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	clock  func() time.Time

	mu        sync.Mutex
	local     map[string]*localBucket
	lastSweep time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		clock:  time.Now,
		local:  map[string]*localBucket{},
	}
}

func (rl *RateLimiter) localAllow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.clock()
	rl.sweep(now)
	b, ok := rl.local[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Limit(float64(rl.limit)/rl.window.Seconds()), rl.limit)}
		rl.local[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for a full window, at most once per window. Such
// a bucket is full again. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	for key, b := range rl.local {
		if now.Sub(b.lastSeen) >= rl.window {
			delete(rl.local, key)
		}
	}
}

// allow returns whether the request may proceed and the remaining budget
// (-1 when unknown).
func (rl *RateLimiter) allow(c *gin.Context, key string) (bool, int) {
	if rl.rdb == nil {
		return rl.localAllow(key), -1
	}
	ctx, cancel := utils.WithShortTimeout(c.Request.Context())
	defer cancel()
	count, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return rl.localAllow(key), -1
	}
	// Set expiration on first request
	if count == 1 {
		rl.rdb.Expire(ctx, key, rl.window)
	}
	return count <= int64(rl.limit), rl.limit - int(count)
}

// Middleware limits requests per IP + endpoint combination.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip rate limiting for health checks
		if c.FullPath() == "/health" {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP() + ":" + c.FullPath()
		ok, remaining := rl.allow(c, key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		if !ok {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rl.window).Unix(), 10))
			utils.RespondWithError(c, http.StatusTooManyRequests,
				"rate_limit_exceeded",
				"Too many requests. Please try again later.",
				gin.H{
					"retry_after": int(rl.window.Seconds()),
					"limit":       rl.limit,
				})
			c.Abort()
			return
		}
		if remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}
		c.Next()
	}
}
