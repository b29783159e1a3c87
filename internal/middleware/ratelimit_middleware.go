package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/GTDGit/catalog_sync/internal/utils"
)

// LoginThrottle limits failed login attempts per client IP.
type LoginThrottle struct {
	attempts *gocache.Cache
	limit    int
}

// NewLoginThrottle allows limit failed attempts per IP within window.
func NewLoginThrottle(limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		attempts: gocache.New(window, 5*time.Minute),
		limit:    limit,
	}
}

// Handle rejects blocked IPs and counts 401 responses against the caller.
func (t *LoginThrottle) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if n, ok := t.attempts.Get(ip); ok && n.(int) >= t.limit {
			utils.Error(c, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many failed login attempts")
			c.Abort()
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusUnauthorized {
			if err := t.attempts.Add(ip, 1, gocache.DefaultExpiration); err != nil {
				_, _ = t.attempts.IncrementInt(ip, 1)
			}
		}
	}
}
