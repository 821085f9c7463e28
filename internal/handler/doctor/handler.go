package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	authService "github.com/jwalitptl/telehealth-api/internal/service/auth"
	"github.com/jwalitptl/telehealth-api/internal/service/doctor"
	"github.com/jwalitptl/telehealth-api/internal/service/doctorschedule"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	svc     *doctor.Service
	authSvc *authService.Service
	slotSvc *doctorschedule.Service
}

func NewHandler(svc *doctor.Service, authSvc *authService.Service, slotSvc *doctorschedule.Service) *Handler {
	return &Handler{svc: svc, authSvc: authSvc, slotSvc: slotSvc}
}

// RegisterRoutes wires the public doctor directory.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors")
	{
		doctors.GET("", h.List)
		doctors.GET("/:id", h.Get)
		doctors.GET("/:id/schedules", h.AvailableSchedules)
	}
}

// RegisterAdminRoutes wires doctor provisioning, admin only.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/doctors", h.Create)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	created, err := h.authSvc.CreateDoctor(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, "doctor created", created)
}

func (h *Handler) List(c *gin.Context) {
	var filters model.DoctorFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	doctors, err := h.svc.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "doctors retrieved", doctors)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid doctor id", err))
		return
	}

	found, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "doctor retrieved", found)
}

// AvailableSchedules lists the doctor's free upcoming slots.
func (h *Handler) AvailableSchedules(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid doctor id", err))
		return
	}

	schedules, err := h.slotSvc.AvailableSchedules(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "available schedules retrieved", schedules)
}
