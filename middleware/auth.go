package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"event-marketplace-server/database"
	"event-marketplace-server/models"
	"event-marketplace-server/utils"
)

// AuthMiddleware validates JWT tokens and sets user context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authorization header required",
				"message": "Please provide a valid token",
			})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token format",
				"message": "Token must be in format: Bearer <token>",
			})
			c.Abort()
			return
		}

		claims, err := utils.VerifyToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"message": "Token is invalid or expired",
			})
			c.Abort()
			return
		}

		setAuthenticatedUser(c, claims.UserID)
	}
}

// WebSocketAuthMiddleware validates JWT tokens from query parameters for
// WebSocket connections. Browsers cannot set headers on socket upgrades, so
// the token rides in the query string; rejection here happens before the
// upgrade, so an unauthenticated connection never reaches the hub.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Token required",
				"message": "Please provide a valid token in query parameters",
			})
			c.Abort()
			return
		}

		claims, err := utils.VerifyToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid token",
				"message": "Token is invalid or expired",
			})
			c.Abort()
			return
		}

		setAuthenticatedUser(c, claims.UserID)
	}
}

// RequireRole restricts a route to one role; runs after AuthMiddleware
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := c.MustGet("user").(models.User)
		if !ok || user.Role != role {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "You do not have access to this resource",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setAuthenticatedUser loads the user behind a validated token and aborts
// for missing or deactivated accounts
func setAuthenticatedUser(c *gin.Context, userID uint) {
	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "User not found",
			"message": "User associated with token not found",
		})
		c.Abort()
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "User inactive",
			"message": "User account is deactivated",
		})
		c.Abort()
		return
	}

	c.Set("user", user)
	c.Set("user_id", user.ID)
	c.Set("role", string(user.Role))

	c.Next()
}
