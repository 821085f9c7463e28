package schedule

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/schedule"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
)

type Handler struct {
	svc *schedule.Service
}

func NewHandler(svc *schedule.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires schedule browsing, available to any authenticated user.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/schedules", h.List)
}

// RegisterAdminRoutes wires schedule generation and removal, admin only.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/schedules", h.Generate)
	r.DELETE("/schedules/:id", h.Delete)
}

func (h *Handler) Generate(c *gin.Context) {
	var req model.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	created, err := h.svc.Generate(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, "schedules generated", created)
}

func (h *Handler) List(c *gin.Context) {
	var filters model.ScheduleFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	schedules, err := h.svc.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "schedules retrieved", schedules)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid schedule id", err))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "schedule deleted", nil)
}
