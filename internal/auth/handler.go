package auth

import (
	"errors"
	"net/http"

	"guestreport_client/internal/common"
	"guestreport_client/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	userService  shared.Service
	tokenService shared.TokenService
	verifier     IDTokenVerifier
	logger       *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(
	userService shared.Service,
	tokenService shared.TokenService,
	verifier IDTokenVerifier,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userService:  userService,
		tokenService: tokenService,
		verifier:     verifier,
		logger:       logger.Named("auth_handler"),
	}
}

// RegisterRoutes sets up the sign-in routes under /User.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/User")
	{
		authGroup.POST("/login", h.login)
		authGroup.POST("/google", h.googleLogin)
	}
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Login: Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	usr, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.StatusCode == http.StatusUnauthorized {
			c.AbortWithStatusJSON(http.StatusUnauthorized, LoginResponse{IsSuccess: false, Message: apiErr.Message})
			return
		}
		common.RespondWithError(c, err)
		return
	}

	token, _, err := h.tokenService.GenerateAccessToken(usr)
	if err != nil {
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Could not generate access token."))
		return
	}
	roleID := usr.RoleID
	common.RespondOK(c, LoginResponse{IsSuccess: true, Token: token, RoleID: &roleID})
}

func (h *Handler) googleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Google login: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithMessage("A Google credential is required."))
		return
	}

	identity, err := h.verifier.Verify(c.Request.Context(), req.Token)
	if err != nil {
		h.logger.Warn("Google ID token rejected", zap.Error(err))
		common.RespondWithError(c, common.ErrUnauthorized.WithMessage("Google sign-in failed."))
		return
	}

	usr, created, err := h.userService.FindOrCreateGoogleUser(c.Request.Context(), *identity)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if created {
		h.logger.Info("New user signed up with Google", zap.Uint("userID", usr.ID))
	}

	token, _, err := h.tokenService.GenerateAccessToken(usr)
	if err != nil {
		common.RespondWithError(c, common.ErrInternalServer.WithDetails("Could not generate access token."))
		return
	}
	common.RespondOK(c, GoogleLoginResponse{
		Token: token,
		User: GoogleUserResponse{
			ID:             usr.ID,
			Email:          usr.Email,
			UserName:       usr.UserName,
			AuthProvider:   usr.AuthProvider,
			RoleID:         usr.RoleID,
			ProfilePicture: usr.ProfilePicture,
		},
	})
}
