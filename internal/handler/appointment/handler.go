package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/booking"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	svc *booking.Service
}

func NewHandler(svc *booking.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appts := r.Group("/appointments")
	{
		appts.POST("", h.Book)
		appts.GET("/my", h.ListMine)
		appts.GET("/:id", h.Get)
		appts.PATCH("/:id/status", h.UpdateStatus)
	}
}

func (h *Handler) Book(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	result, err := h.svc.Book(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, "appointment booked", result)
}

func (h *Handler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var filters model.AppointmentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}

	appts, err := h.svc.ListMine(c.Request.Context(), claims, &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "appointments retrieved", appts)
}

func (h *Handler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	appt, err := h.svc.Get(c.Request.Context(), claims, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "appointment retrieved", appt)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	appt, err := h.svc.UpdateStatus(c.Request.Context(), claims, id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "appointment status updated", appt)
}
