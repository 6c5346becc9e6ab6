// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"servana/utils"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware validates the bearer token and stores the caller's
// identity and role in the request context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		// Tokens that already failed validation (or were revoked) are cached
		// by hash so repeated requests skip signature verification.
		cache := utils.GetAuthCacheClient()
		cacheKey := utils.AuthCachePrefix + utils.HashToken(tokenString)
		if val, err := cache.Get(c.Request.Context(), cacheKey).Result(); err == nil && val != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		subject, role, err := utils.ExtractClaims(tokenString)
		if err != nil {
			cache.Set(c.Request.Context(), cacheKey, "invalid", utils.AuthCacheTTL)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("userID", subject)
		c.Set("role", role)
		c.Next()
	}
}

// AdminOnly gates admin endpoints (refund resolution, dispute resolution).
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}
