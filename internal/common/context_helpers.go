package common

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GetTokenFromContext retrieves the bearer token from the Authorization header.
// Returns an empty string if not found.
func GetTokenFromContext(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], AuthorizationTypeBearer) {
		return ""
	}
	return parts[1]
}

// GetUserIDFromContext retrieves the authenticated user's ID from the Gin context.
// Returns 0 if not found.
func GetUserIDFromContext(c *gin.Context) uint {
	val, exists := c.Get(UserIDKey)
	if !exists {
		return 0
	}
	userID, ok := val.(uint)
	if !ok {
		return 0
	}
	return userID
}

// GetUserRoleFromContext retrieves the authenticated user's role id.
func GetUserRoleFromContext(c *gin.Context) (int, bool) {
	val, exists := c.Get(UserRoleKey)
	if !exists {
		return 0, false
	}
	role, ok := val.(int)
	return role, ok
}
