package geography

import (
	"errors"
	"strconv"

	"guestreport_client/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for geography handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new geography handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("geography_handler"),
	}
}

// RegisterRoutes sets up the Country, State and City routes. Reads are
// public; creation is admin only.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	router.GET("/Country", h.getAllCountries)
	router.GET("/State/:countryId", h.getStatesByCountry)
	router.GET("/City/:stateId", h.getCitiesByState)

	admin := router.Group("", authMW, adminRoleMW)
	{
		admin.POST("/Country", h.adminCreateCountry)
		admin.POST("/State", h.adminCreateState)
		admin.POST("/City", h.adminCreateCity)
	}
}

func (h *Handler) getAllCountries(c *gin.Context) {
	countries, err := h.service.GetAllCountries(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]CountryResponse, len(countries))
	for i := range countries {
		resp[i] = ToCountryResponse(&countries[i])
	}
	common.RespondOK(c, resp)
}

func (h *Handler) getStatesByCountry(c *gin.Context) {
	countryID, ok := parseIDParam(c, "countryId")
	if !ok {
		return
	}
	states, err := h.service.GetStatesByCountry(c.Request.Context(), countryID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]StateResponse, len(states))
	for i := range states {
		resp[i] = ToStateResponse(&states[i])
	}
	common.RespondOK(c, resp)
}

func (h *Handler) getCitiesByState(c *gin.Context) {
	stateID, ok := parseIDParam(c, "stateId")
	if !ok {
		return
	}
	cities, err := h.service.GetCitiesByState(c.Request.Context(), stateID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp := make([]CityResponse, len(cities))
	for i := range cities {
		resp[i] = ToCityResponse(&cities[i])
	}
	common.RespondOK(c, resp)
}

func (h *Handler) adminCreateCountry(c *gin.Context) {
	var req CreateCountryRequest
	if !h.bind(c, &req) {
		return
	}
	country, err := h.service.AdminCreateCountry(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, ToCountryResponse(country))
}

func (h *Handler) adminCreateState(c *gin.Context) {
	var req CreateStateRequest
	if !h.bind(c, &req) {
		return
	}
	state, err := h.service.AdminCreateState(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, ToStateResponse(state))
}

func (h *Handler) adminCreateCity(c *gin.Context) {
	var req CreateCityRequest
	if !h.bind(c, &req) {
		return
	}
	city, err := h.service.AdminCreateCity(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, ToCityResponse(city))
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err), zap.String("path", c.FullPath()))
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return false
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithMessage(name+" must be a number."))
		return 0, false
	}
	return uint(id), true
}
