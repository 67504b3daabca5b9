package reservations

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"schoolbooking/internal/middleware"
	"schoolbooking/internal/pkg/response"
	"schoolbooking/internal/pkg/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/reservations")
	{
		g.GET("", h.List)
		g.POST("", h.Create)
		g.GET("/export", middleware.AdminOnly(), h.Export)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.POST("/:id/cancel", h.Cancel)
		g.PATCH("/:id/status", middleware.AdminOnly(), h.SetStatus)
		g.DELETE("/:id", middleware.AdminOnly(), h.Delete)
	}
}

func (h *Handler) Create(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	r, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"reservation": r})
}

func (h *Handler) List(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query")
		return
	}
	list, err := h.service.List(c.Request.Context(), actor, q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservations": list})
}

func (h *Handler) Get(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) Update(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	r, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	r, err := h.service.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) SetStatus(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	r, err := h.service.SetStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
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

// Export streams an xlsx workbook. Takes the same filters as List.
func (h *Handler) Export(c *gin.Context) {
	actor, _ := middleware.CurrentActor(c)
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query")
		return
	}

	var buf bytes.Buffer
	if _, err := h.service.Export(c.Request.Context(), actor, q, &buf); err != nil {
		h.fail(c, err)
		return
	}
	name := fmt.Sprintf("reservations-%s.xlsx", time.Now().Format("20060102-1504"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) fail(c *gin.Context, err error) {
	var (
		conflict *ConflictError
		fe       validator.FieldErrors
	)
	switch {
	case errors.As(err, &conflict):
		response.ErrorWithDetails(c, http.StatusConflict, "RESERVATION_CONFLICT", ErrConflict.Error(), ConflictDetails{
			ReservationID: conflict.Existing.ID,
			ResourceID:    conflict.Existing.ResourceID,
			StartTime:     conflict.Existing.StartTime,
			EndTime:       conflict.Existing.EndTime,
		})
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, "RESERVATION_CONFLICT", ErrConflict.Error())
	case errors.Is(err, ErrBusy):
		c.Header("Retry-After", "1")
		response.Error(c, http.StatusServiceUnavailable, "RESOURCE_BUSY", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "RESERVATION_NOT_FOUND", err.Error())
	case errors.Is(err, ErrResourceNotFound):
		response.Error(c, http.StatusNotFound, "RESOURCE_NOT_FOUND", err.Error())
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "USER_NOT_FOUND", err.Error())
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to do this")
	case errors.As(err, &fe):
		response.ValidationFailed(c, fe)
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidInterval),
		errors.Is(err, ErrInPast),
		errors.Is(err, ErrClosedDay),
		errors.Is(err, ErrOutsideHours):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrAlreadyCancelled), errors.Is(err, ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATE", err.Error())
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
