package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// requireAdminReadiness rejects admin traffic with 503 until all
// required ADMIN_* secrets are configured. The read-only runtime
// configuration path stays unaffected.
func (s *Server) requireAdminReadiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		ready, missing := s.auth.Readiness()
		if !ready {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Admin configuration missing",
				"message": "Set ADMIN_PANEL_PASSWORD, ADMIN_SESSION_SECRET, and ADMIN_ENCRYPTION_KEY.",
				"missing": missing,
			})
			return
		}
		c.Next()
	}
}

// requireAdminSession rejects requests without a valid session cookie.
func (s *Server) requireAdminSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookieName)
		if err != nil || !s.auth.VerifySessionToken(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Admin authentication required.",
			})
			return
		}
		c.Next()
	}
}

// loginRateLimit throttles password attempts process-wide: a small
// burst, then one attempt per 2 seconds.
func (s *Server) loginRateLimit() gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(0.5), 5)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many attempts",
				"message": "Try again in a few seconds.",
			})
			return
		}
		c.Next()
	}
}
