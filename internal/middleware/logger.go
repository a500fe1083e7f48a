package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/foliopulse/internal/logger"
)

// RequestLogger logs method, path, status, latency and request id (when
// RequestID ran earlier in the chain) for every request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		rid, _ := c.Get(RequestIDKey)
		logger.L().Info().
			Str("request_id", toString(rid)).
			Str("method", method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

type client struct {
	lastSeen time.Time
	count    int
}

// In-memory rate limit state. Good enough for a single instance; a
// multi-instance deployment needs a shared store instead.
var (
	clients         = make(map[string]*client)
	window          = time.Minute
	limit           = 60
	rateLimiterLock sync.Mutex
)

// RateLimiter allows up to 60 requests per minute per client IP and
// responds 429 beyond that.
func RateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		rateLimiterLock.Lock()
		cl, ok := clients[ip]
		if !ok || now.Sub(cl.lastSeen) > window {
			cl = &client{lastSeen: now, count: 1}
			clients[ip] = cl
		} else {
			cl.count++
			cl.lastSeen = now
		}
		exceeded := cl.count > limit
		rateLimiterLock.Unlock()

		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
