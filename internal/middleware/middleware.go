// Package middleware provides the gin middleware chain shared by all HTTP
// routes: request identification, CORS, and per-client rate limiting.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pharmaguard/pgx-server/internal/domain"
)

// RequestIDKey is the gin context key carrying the request ID.
const RequestIDKey = "request_id"

// RequestID attaches a unique ID to each request, honoring an inbound
// X-Request-ID header so upstream traces survive the hop.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set(RequestIDKey, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// CORS adds permissive CORS headers and short-circuits preflight requests.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Request-ID, Authorization")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// clientLimiter pairs a token bucket with its last-seen time so idle
// clients can be evicted.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-client-IP token bucket to expensive routes.
type RateLimiter struct {
	cfg     domain.RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter creates the limiter and starts its idle-client sweeper.
func NewRateLimiter(cfg domain.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
	}
	if cfg.Enabled {
		go rl.sweep()
	}
	return rl
}

// Middleware returns the gin handler enforcing the limit. Disabled config
// yields a pass-through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	if !rl.cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			apiErr := domain.NewAPIError(domain.ErrCodeRateLimit,
				"rate limit exceeded", "retry after a short delay", GetRequestID(c))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": apiErr})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[clientIP]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst),
		}
		rl.clients[clientIP] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

// sweep drops limiters for clients idle longer than ten minutes.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		rl.mu.Lock()
		for ip, cl := range rl.clients {
			if cl.lastSeen.Before(cutoff) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}
