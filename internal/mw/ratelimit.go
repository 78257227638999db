package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiters hands out one token bucket per client IP, created on first
// request from that IP.
type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newClientLimiters(r rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		buckets: make(map[string]*rate.Limiter),
		limit:   r,
		burst:   burst,
	}
}

func (c *clientLimiters) allow(ip string) bool {
	c.mu.Lock()
	bucket, ok := c.buckets[ip]
	if !ok {
		bucket = rate.NewLimiter(c.limit, c.burst)
		c.buckets[ip] = bucket
	}
	c.mu.Unlock()
	return bucket.Allow()
}

// RateLimiter is a middleware for per-IP rate limiting.
func RateLimiter(r rate.Limit, burst int) gin.HandlerFunc {
	limiters := newClientLimiters(r, burst)
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
