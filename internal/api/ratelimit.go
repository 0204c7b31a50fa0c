package api

import (
	"net/http"
	"sync"
	"time"

	"file-access-ledger-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultWritesPerMinute = 60

// A bucket refills completely within a minute, so dropping one idle that long loses nothing.
const limiterIdleTTL = time.Minute

type callerBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// callerLimiter hands out one token bucket per caller identity
type callerLimiter struct {
	mu        sync.Mutex
	perMinute int
	buckets   map[string]*callerBucket
	lastSweep time.Time
	now       func() time.Time
}

func newCallerLimiter(perMinute int) *callerLimiter {
	return &callerLimiter{
		perMinute: perMinute,
		buckets:   make(map[string]*callerBucket),
		now:       time.Now,
	}
}

func (c *callerLimiter) allow(identity string) bool {
	if c == nil || c.perMinute <= 0 {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= limiterIdleTTL {
		c.sweep(now)
	}

	bucket, ok := c.buckets[identity]
	if !ok {
		bucket = &callerBucket{
			limiter: rate.NewLimiter(rate.Limit(float64(c.perMinute)/60.0), c.perMinute),
		}
		c.buckets[identity] = bucket
	}
	bucket.lastSeen = now

	return bucket.limiter.AllowN(now, 1)
}

func (c *callerLimiter) sweep(now time.Time) {
	for identity, bucket := range c.buckets {
		if now.Sub(bucket.lastSeen) >= limiterIdleTTL {
			delete(c.buckets, identity)
		}
	}
	c.lastSweep = now
}

// RateLimitMiddleware rejects mutating requests once the caller exhausts its bucket.
// Must run after AuthMiddleware.
func (h *Handler) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := models.CallerFromContext(r.Context())
		if !h.writes.allow(caller) {
			zap.L().Warn("Rate limit exceeded", zap.String("caller", caller))
			w.Header().Set("Retry-After", "60")
			h.respondWithError(w, http.StatusTooManyRequests, "RateLimited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
