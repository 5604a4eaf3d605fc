package user

import (
	"errors"
	"strconv"

	"guestreport_client/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service *ServiceImplementation
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service *ServiceImplementation, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("user_handler"),
	}
}

// RegisterRoutes sets up the routes for user operations.
// Registration is public; reading or editing a profile needs a bearer token.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	userGroup := router.Group("/User")
	{
		userGroup.POST("", h.register)
		userGroup.GET("/:id", authMW, h.getProfile)
		userGroup.PUT("/:id", authMW, h.updateProfile)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("User registration: Invalid request body", zap.Error(err))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}

	usr, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, ToUserResponse(usr))
}

func (h *Handler) getProfile(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithMessage("User id must be a number."))
		return
	}
	role, _ := common.GetUserRoleFromContext(c)

	usr, err := h.service.GetProfile(c.Request.Context(), uint(id), common.GetUserIDFromContext(c), role)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, ToProfileResponse(usr))
}

func (h *Handler) updateProfile(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithMessage("User id must be a number."))
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	role, _ := common.GetUserRoleFromContext(c)

	usr, err := h.service.UpdateProfile(c.Request.Context(), uint(id), common.GetUserIDFromContext(c), role, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, ToProfileResponse(usr))
}
