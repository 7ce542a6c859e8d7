package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/creatorhub/platform-api/internal/auth"
	"github.com/creatorhub/platform-api/internal/auth/identity"
)

// SessionAuth validates the session cookie, or a Bearer ID token, and stores
// the identity in the Gin context.
func SessionAuth(provider identity.Provider, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
			return
		}

		id, err := provider.VerifySession(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}

		auth.SetIdentity(c, id)
		c.Next()
	}
}

// extractToken prefers the Authorization header over the session cookie.
func extractToken(c *gin.Context, cookieName string) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}
