package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"homefront-backend/internal/config"
)

// RateLimit is a per-IP fixed-window limiter for the public endpoints.
// In-memory on purpose: one instance fronts the site.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var (
		mu      sync.Mutex
		windows = make(map[string][]int64)
	)

	go func() {
		for range time.Tick(time.Minute) {
			cutoff := time.Now().Add(-time.Minute).UnixNano()
			mu.Lock()
			for ip, hits := range windows {
				kept := hits[:0]
				for _, t := range hits {
					if t >= cutoff {
						kept = append(kept, t)
					}
				}
				if len(kept) == 0 {
					delete(windows, ip)
				} else {
					windows[ip] = kept
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()
		cutoff := now.Add(-time.Minute).UnixNano()

		mu.Lock()
		hits := windows[ip]
		kept := hits[:0]
		for _, t := range hits {
			if t >= cutoff {
				kept = append(kept, t)
			}
		}
		if len(kept) >= cfg.RequestsPerMinute {
			windows[ip] = kept
			mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		windows[ip] = append(kept, now.UnixNano())
		mu.Unlock()

		c.Next()
	}
}
