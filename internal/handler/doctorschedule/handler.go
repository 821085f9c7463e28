package doctorschedule

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/doctorschedule"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	svc *doctorschedule.Service
}

func NewHandler(svc *doctorschedule.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires slot management for the calling doctor.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	slots := r.Group("/doctor/schedules")
	{
		slots.POST("", h.SelectSchedules)
		slots.GET("", h.MySlots)
		slots.DELETE("/:scheduleId", h.RemoveSlot)
	}
}

func (h *Handler) SelectSchedules(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.SelectSchedulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	created, err := h.svc.SelectSchedules(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, "schedules selected", gin.H{
		"selected": created,
	})
}

func (h *Handler) MySlots(c *gin.Context) {
	claims := middleware.GetClaims(c)

	slots, err := h.svc.MySlots(c.Request.Context(), claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "slots retrieved", slots)
}

func (h *Handler) RemoveSlot(c *gin.Context) {
	claims := middleware.GetClaims(c)

	scheduleID, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid schedule id", err))
		return
	}

	if err := h.svc.RemoveSlot(c.Request.Context(), claims.UserID, scheduleID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "slot removed", nil)
}
