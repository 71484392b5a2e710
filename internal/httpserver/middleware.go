package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"ordercloud-storefront/internal/domain"
	"ordercloud-storefront/internal/ordercloud"
)

const (
	sessionCookie = "sid"
	sessionScheme = "Session "
	sessionIDKey  = "sessionID"
)

// sessionIDFromRequest reads the session id from the Authorization header,
// falling back to the session cookie.
func sessionIDFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, sessionScheme) {
		return strings.TrimSpace(strings.TrimPrefix(h, sessionScheme))
	}
	if v, err := c.Cookie(sessionCookie); err == nil {
		return v
	}
	return ""
}

// sessionMiddleware resolves the shopper session and attaches its access token
// to the request context.
func sessionMiddleware(sessions sessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := sessionIDFromRequest(c)
		if sid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		token, err := sessions.Lookup(c.Request.Context(), sid)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired, please log in again"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable, please retry"})
			return
		}
		c.Set(sessionIDKey, sid)
		c.Request = c.Request.WithContext(ordercloud.WithAccessToken(c.Request.Context(), token))
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
