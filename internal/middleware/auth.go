package middleware

import (
	"strconv"
	"strings"

	"guestreport_client/internal/common"
	"guestreport_client/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserClaimsKey stores the whole claims object.
const UserClaimsKey = "userClaims"

// AuthMiddleware creates a Gin middleware for bearer token authentication.
func AuthMiddleware(tokenService shared.TokenService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(common.AuthorizationHeader)
		if authHeader == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], common.AuthorizationTypeBearer) {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := tokenService.ValidateToken(parts[1])
		if err != nil {
			logger.Info("Token validation failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Session expired or invalid."))
			return
		}
		userID, err := strconv.ParseUint(claims.NameID, 10, 64)
		if err != nil {
			logger.Warn("Token carries a non-numeric nameid", zap.String("nameid", claims.NameID))
			common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Session expired or invalid."))
			return
		}

		c.Set(common.UserIDKey, uint(userID))
		c.Set(common.UserEmailKey, claims.Email)
		c.Set(common.UserRoleKey, claims.RoleID)
		c.Set(UserClaimsKey, claims)

		logger.Debug("User authenticated successfully",
			zap.Uint64("userID", userID),
			zap.String("email", claims.Email),
			zap.Int("roleId", claims.RoleID),
		)
		c.Next()
	}
}

// GetUserClaimsFromContext retrieves the full claims object from the Gin context.
func GetUserClaimsFromContext(c *gin.Context) *shared.Claims {
	val, exists := c.Get(UserClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := val.(*shared.Claims)
	if !ok {
		return nil
	}
	return claims
}

// RoleAuthMiddleware checks that the authenticated user has one of the allowed role ids.
func RoleAuthMiddleware(allowedRoles ...int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := common.GetUserRoleFromContext(c)
		if !ok {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
