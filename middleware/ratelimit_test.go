package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLocalLimiterBlocksOverBudget(t *testing.T) {
	rl := NewRateLimiter(nil, 2, time.Minute)
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/api/plans/:month", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/plans/2025-06", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}

func TestLocalLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(nil, 5, time.Minute)
	rl.clock = func() time.Time { return now }

	for _, key := range []string{"ratelimit:a:/x", "ratelimit:b:/x", "ratelimit:c:/x"} {
		rl.localAllow(key)
	}
	if len(rl.local) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(rl.local))
	}

	now = now.Add(30 * time.Second)
	rl.localAllow("ratelimit:a:/x")

	now = now.Add(45 * time.Second)
	rl.localAllow("ratelimit:d:/x")
	if len(rl.local) != 2 {
		t.Fatalf("idle buckets should be swept, have %d", len(rl.local))
	}
	for _, key := range []string{"ratelimit:a:/x", "ratelimit:d:/x"} {
		if _, ok := rl.local[key]; !ok {
			t.Fatalf("active bucket %s was evicted", key)
		}
	}
}
