package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"ecrwatch/internal/config"
	"ecrwatch/pkg/metrics"
)

type Limiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

type RateLimitConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:             10.0,
		Burst:           20,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// FromConfig converts the api.rate_limit section, whose intervals are in
// seconds. Zero values fall back to DefaultConfig.
func FromConfig(cfg config.RateLimitConfig) RateLimitConfig {
	out := DefaultConfig()
	if cfg.RPS > 0 {
		out.RPS = cfg.RPS
	}
	if cfg.Burst > 0 {
		out.Burst = cfg.Burst
	}
	if cfg.CleanupInterval > 0 {
		out.CleanupInterval = time.Duration(cfg.CleanupInterval) * time.Second
	}
	if cfg.MaxAge > 0 {
		out.MaxAge = time.Duration(cfg.MaxAge) * time.Second
	}
	return out
}

// RateLimitMiddleware limits requests per client IP. The idle-limiter sweep
// stops when ctx is done.
func RateLimitMiddleware(ctx context.Context, cfg RateLimitConfig) gin.HandlerFunc {
	limiters := make(map[string]*Limiter)
	var mu sync.RWMutex

	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			mu.Lock()
			now := time.Now()
			for ip, limiter := range limiters {
				limiter.mu.Lock()
				lastSeen := limiter.lastSeen
				limiter.mu.Unlock()
				if now.Sub(lastSeen) > cfg.MaxAge {
					delete(limiters, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		mu.RLock()
		limiter, exists := limiters[clientIP]
		mu.RUnlock()

		if !exists {
			mu.Lock()
			limiter, exists = limiters[clientIP]
			if !exists {
				limiter = &Limiter{
					limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
					lastSeen: time.Now(),
				}
				limiters[clientIP] = limiter
			}
			mu.Unlock()
		}

		limiter.mu.Lock()
		limiter.lastSeen = time.Now()
		limiter.mu.Unlock()

		if !limiter.limiter.Allow() {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("X-RateLimit-Limit", formatRate(cfg.RPS))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			c.Abort()
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()

		c.Header("X-RateLimit-Limit", formatRate(cfg.RPS))
		remaining := limiter.limiter.Burst() - int(limiter.limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

func formatRate(rps float64) string {
	return strconv.Itoa(int(rps))
}
