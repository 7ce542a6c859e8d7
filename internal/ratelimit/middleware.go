package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/platform-api/internal/auth"
)

// Middleware limits requests per client IP within scope. Limiter errors let
// the request through.
func Middleware(l Limiter, prefix, scope string) gin.HandlerFunc {
	if prefix == "" {
		prefix = "rl"
	}
	return func(c *gin.Context) {
		key := buildKey(prefix, scope, c)

		d, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "rate limit unavailable", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}

func buildKey(prefix, scope string, c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := []string{prefix, scope, "ip", ip}
	if uid := auth.UserID(c); uid != "" {
		parts = append(parts, "user", uid)
	}
	return strings.Join(parts, ":")
}
