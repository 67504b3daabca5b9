package settings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/middleware"
	"schoolbooking/internal/pkg/response"
	"schoolbooking/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects an authenticated group.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/settings")
	{
		g.GET("", h.Get)
		g.PUT("", middleware.AdminOnly(), h.Update)
	}
}

func (h *Handler) Get(c *gin.Context) {
	s, err := h.service.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load settings")
		return
	}
	response.Success(c, http.StatusOK, s)
}

func (h *Handler) Update(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req domain.SchoolSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	s, err := h.service.Update(c.Request.Context(), actor, req)
	if err != nil {
		var fe validator.FieldErrors
		switch {
		case errors.Is(err, ErrForbidden):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
		case errors.As(err, &fe):
			response.ValidationFailed(c, fe)
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save settings")
		}
		return
	}
	response.Success(c, http.StatusOK, s)
}
