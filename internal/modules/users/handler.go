package users

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"schoolbooking/internal/middleware"
	"schoolbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/users")
	{
		g.GET("", middleware.AdminOnly(), h.List)
		g.POST("", middleware.AdminOnly(), h.Create)
		g.POST("/bulk-delete", middleware.AdminOnly(), h.BulkDelete)
		g.POST("/reset-password", middleware.AdminOnly(), h.ResetPassword)
		g.GET("/:id", h.Get)
		g.PUT("/:id", middleware.AdminOnly(), h.Update)
		g.PUT("/:id/password", h.ChangePassword)
		g.DELETE("/:id", middleware.AdminOnly(), h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	list, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": list})
}

func (h *Handler) Create(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	u, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"user": u})
}

func (h *Handler) Get(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	u, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": u})
}

func (h *Handler) Update(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	u, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": u})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), actor, id, req); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *Handler) Delete(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": 1})
}

func (h *Handler) BulkDelete(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	n, err := h.service.BulkDelete(c.Request.Context(), actor, req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	out, err := h.service.ResetPassword(c.Request.Context(), actor, req.Email, req.NewPassword)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", err.Error())
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to do this")
	case errors.Is(err, ErrEmailExists):
		response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
	case errors.Is(err, ErrSelfDelete), errors.Is(err, ErrLastAdmin):
		response.Error(c, http.StatusConflict, "OPERATION_NOT_ALLOWED", err.Error())
	case errors.Is(err, ErrWrongPassword):
		response.Error(c, http.StatusBadRequest, "WRONG_PASSWORD", err.Error())
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrPasswordTooWeak):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid id")
		return 0, false
	}
	return id, true
}
