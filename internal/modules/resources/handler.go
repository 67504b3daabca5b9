package resources

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

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

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/resources")
	{
		g.GET("", h.List)
		g.GET("/tags", h.Tags)
		g.GET("/:id", h.Get)
		g.GET("/:id/availability", h.Availability)
		g.POST("", middleware.AdminOnly(), h.Create)
		g.PUT("/:id", middleware.AdminOnly(), h.Update)
		g.DELETE("/:id", middleware.AdminOnly(), h.Delete)
	}
}

// List supports ?type=, ?q= and ?tags=a,b (every tag must match).
func (h *Handler) List(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query")
		return
	}
	list, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resources": list})
}

func (h *Handler) Tags(c *gin.Context) {
	tags, err := h.service.Tags(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tags": tags})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resource": r})
}

func (h *Handler) Availability(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.service.Availability(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Create(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	var req ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	r, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"resource": r})
}

func (h *Handler) Update(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	r, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resource": r})
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
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) fail(c *gin.Context, err error) {
	var fe validator.FieldErrors
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "RESOURCE_NOT_FOUND", err.Error())
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.As(err, &fe):
		response.ValidationFailed(c, fe)
	case errors.Is(err, ErrValidation):
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
