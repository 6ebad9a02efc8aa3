package middleware

import (
	"net/http"
	"strings"

	"task-marketplace-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeyIsAdmin  = "is_admin"
)

// JWTAuthMiddleware validates JWT token in Authorization header
func JWTAuthMiddleware(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		// Extract token from "Bearer <token>"
		if parts := strings.Fields(c.GetHeader("Authorization")); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			tokenString = parts[1]
		}
		// Browsers cannot set headers on a WebSocket upgrade.
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUsername, claims.Username)
		c.Set(KeyIsAdmin, claims.IsAdmin())

		c.Next()
	}
}
