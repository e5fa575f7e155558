package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client key
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client per minute, with a
// burst of the same size. Idle clients are forgotten after ten minutes.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > rl.idleTTL {
			delete(rl.limiters, k)
		}
	}

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// RateLimit rejects requests over the limit with 429, keyed by actor when
// known and by client IP otherwise.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if actorID, ok := GetActorID(c); ok {
			key = actorID.String()
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		if !rl.Allow(key) {
			c.Header("Retry-After", "60")
			abortWithError(c, http.StatusTooManyRequests, "ERR_RATE_LIMITED", "Too many requests, please retry later")
			return
		}
		c.Next()
	}
}
