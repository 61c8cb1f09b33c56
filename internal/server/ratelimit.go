package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterConfig bounds per-IP request rates.
type RateLimiterConfig struct {
	RequestsPerSecond int
	Burst             int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

type visitorTable struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

func (t *visitorTable) get(ip string, rps, burst int) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, exists := t.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rate.Limit(rps), burst)
		t.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (t *visitorTable) cleanup(ttl, interval time.Duration) {
	for {
		time.Sleep(interval)
		t.mu.Lock()
		for ip, v := range t.visitors {
			if time.Since(v.lastSeen) > ttl {
				delete(t.visitors, ip)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimiterMiddleware enforces a per-client-IP token bucket.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 20
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerSecond * 2
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}
	if config.TTL == 0 {
		config.TTL = 3 * time.Minute
	}

	table := &visitorTable{visitors: make(map[string]*visitor)}
	go table.cleanup(config.TTL, config.CleanupInterval)

	return func(c *gin.Context) {
		limiter := table.get(c.ClientIP(), config.RequestsPerSecond, config.Burst)

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}

		c.Next()
	}
}
