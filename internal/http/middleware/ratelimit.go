package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ErrRateLimited is attached to the Gin context of rejected requests so the
// 429 error view can log a cause.
var ErrRateLimited = errors.New("rate limit exceeded")

const (
	visitorTTL    = 10 * time.Minute
	sweepInterval = 5000 // lookups between idle-bucket sweeps
)

// keyFunc maps a request to the identity that owns a token bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the "userID" context value when an upstream
// auth layer set one, else by client IP. Keys are namespaced ("user:", "ip:").
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if s, ok := c.Get("userID"); ok {
			if id, _ := s.(string); id != "" {
				return "user:" + id
			}
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token-bucket limiter with one bucket per
// key. It only decides; the 429 body comes from the error view installed by
// Exceptions, so throttled clients see the same page as any other 429.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter returns a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    max(burst, 1),
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      visitorTTL,
	}
}

// getVisitor returns the bucket for key, creating it on first use. Every
// sweepInterval lookups idle buckets are dropped; the sweep runs before the
// lookup so a stale bucket for key itself is replaced, not refreshed.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.cleanupN++; rl.cleanupN >= sweepInterval {
		rl.sweep(now)
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweep requires rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.ttl {
			delete(rl.visitors, k)
		}
	}
	rl.cleanupN = 0
}

// Handler aborts over-limit requests with a bare 429 and Retry-After.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", rl.retryAfter())
		_ = c.Error(ErrRateLimited)
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
}

// retryAfter is the whole number of seconds until one token is replenished.
func (rl *RateLimiter) retryAfter() string {
	if rl.rps <= 0 {
		return "60"
	}
	return strconv.Itoa(max(1, int(math.Ceil(1/float64(rl.rps)))))
}
