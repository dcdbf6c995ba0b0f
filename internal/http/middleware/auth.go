// README: Firebase bearer-token auth middleware.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gofer/internal/infra"
)

const (
	ctxUIDKey  = "auth_uid"
	ctxRoleKey = "auth_role"
)

// Auth verifies the Authorization bearer token and stores the caller's
// uid and role claim on the request context.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUIDKey, token.UID)
		if role, ok := token.Claims["role"].(string); ok {
			c.Set(ctxRoleKey, role)
		}
		c.Next()
	}
}

// CallerUID returns the authenticated caller's uid, or "" when unauthenticated.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUIDKey)
}

// CallerRole returns the caller's role claim, or "" when absent.
func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRoleKey)
}
