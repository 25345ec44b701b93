package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"ramwatch/internal/logging"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting per IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
}

// NewRateLimiter creates a limiter allowing perSecond requests per IP with
// the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// GetLimiter gets or creates a limiter for an IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// RateLimitMiddleware enforces rate limiting per IP
func RateLimitMiddleware(limiter *RateLimiter, security *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			security.LogRateLimited(ip, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 1,
			})
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// IPWhitelist restricts access to loopback plus a configured set of IPs.
type IPWhitelist struct {
	ips map[string]bool
	mu  sync.RWMutex
}

// NewIPWhitelist creates a new IP whitelist
func NewIPWhitelist(ips []string) *IPWhitelist {
	wl := &IPWhitelist{
		ips: make(map[string]bool),
	}
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			wl.ips[ip] = true
		}
	}
	return wl
}

// IsAllowed checks if an IP is whitelisted. Loopback is always allowed;
// unlike a public service, an empty whitelist admits nothing else.
func (wl *IPWhitelist) IsAllowed(ip string) bool {
	// Strip port from IP if present
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	if ip == "localhost" {
		return true
	}
	if parsed := net.ParseIP(ip); parsed != nil && parsed.IsLoopback() {
		return true
	}

	wl.mu.RLock()
	defer wl.mu.RUnlock()
	return wl.ips[ip]
}

// IPWhitelistMiddleware enforces IP whitelisting
func IPWhitelistMiddleware(whitelist *IPWhitelist, security *SecurityLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !whitelist.IsAllowed(ip) {
			security.LogAccessDenied(ip, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request through the application logger.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
			logging.String("client", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			logger.Warn("http request", append(fields, logging.String("errors", c.Errors.String()))...)
			return
		}
		logger.Debug("http request", fields...)
	}
}

// SecurityLogger logs security events
type SecurityLogger struct {
	logger logging.Logger
}

// NewSecurityLogger creates a new security logger. A nil logger discards
// events.
func NewSecurityLogger(logger logging.Logger) *SecurityLogger {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SecurityLogger{logger: logger}
}

// LogFailedAuth logs failed authentication attempts
func (sl *SecurityLogger) LogFailedAuth(ip string, reason string) {
	sl.logger.Warn("authentication failed", logging.String("client", ip), logging.String("reason", reason))
}

// LogRateLimited logs a rejected request.
func (sl *SecurityLogger) LogRateLimited(ip, path string) {
	sl.logger.Warn("rate limit exceeded", logging.String("client", ip), logging.String("path", path))
}

// LogAccessDenied logs a request from a non-whitelisted IP.
func (sl *SecurityLogger) LogAccessDenied(ip, path string) {
	sl.logger.Warn("access denied for non-whitelisted IP", logging.String("client", ip), logging.String("path", path))
}

// LogStreamConnected logs successful WebSocket connections
func (sl *SecurityLogger) LogStreamConnected(ip string, clientName string) {
	sl.logger.Info("stream connected", logging.String("client", ip), logging.String("name", clientName))
}

// LogStreamDisconnected logs WebSocket disconnections
func (sl *SecurityLogger) LogStreamDisconnected(ip string, clientID string) {
	sl.logger.Info("stream disconnected", logging.String("client", ip), logging.String("id", clientID))
}

// LogTokenIssued logs a token printed by the CLI.
func (sl *SecurityLogger) LogTokenIssued(clientName string, expiresAt time.Time) {
	sl.logger.Info("stream token issued", logging.String("name", clientName), logging.String("expires_at", expiresAt.Format(time.RFC3339)))
}

// InputValidator validates and sanitizes user input
type InputValidator struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateToken checks if token format is valid
func (iv *InputValidator) ValidateToken(token string) bool {
	// JWT tokens are in format: header.payload.signature
	if len(token) < 20 || len(token) > 4096 {
		return false
	}
	return strings.Count(token, ".") == 2
}

// ValidateClientName checks if a client name is safe to log and embed in
// connection IDs.
func (iv *InputValidator) ValidateClientName(name string) bool {
	if len(name) < 1 || len(name) > 255 {
		return false
	}

	// Allow alphanumeric, hyphens, underscores, dots
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.') {
			return false
		}
	}

	return true
}
