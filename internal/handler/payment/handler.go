package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/payment"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/httputil"
	"github.com/jwalitptl/telehealth-api/pkg/paygate"
)

type Handler struct {
	svc *payment.Service
	cfg config.GatewayConfig
}

func NewHandler(svc *payment.Service, cfg config.GatewayConfig) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

// RegisterRoutes wires payment initiation for authenticated patients.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/appointments/:id/payment", h.Initiate)
}

// RegisterCallbackRoutes wires the gateway redirect/IPN endpoints. These are
// public; trust comes from server-side validation, not from the caller.
func (h *Handler) RegisterCallbackRoutes(r *gin.RouterGroup) {
	callbacks := r.Group("/payments/callback")
	{
		callbacks.POST("/success", h.Success)
		callbacks.POST("/fail", h.Fail)
		callbacks.POST("/cancel", h.Cancel)
	}
	r.POST("/payments/ipn", h.IPN)
}

func (h *Handler) Initiate(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	resp, err := h.svc.Initiate(c.Request.Context(), claims.UserID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "payment session created", resp)
}

// Success handles the gateway's success redirect. The payment only counts
// once the gateway's validation endpoint confirms it; then the payer lands
// on the success page, otherwise on the failure page.
func (h *Handler) Success(c *gin.Context) {
	var cb paygate.Callback
	if err := c.ShouldBind(&cb); err != nil {
		c.Redirect(http.StatusSeeOther, h.cfg.FailRedirect)
		return
	}

	outcome, err := h.svc.Confirm(c.Request.Context(), &cb)
	if err != nil {
		_ = c.Error(err)
		c.Redirect(http.StatusSeeOther, h.cfg.FailRedirect)
		return
	}

	if outcome == model.PaymentOutcomePaid {
		c.Redirect(http.StatusSeeOther, h.cfg.SuccessRedirect)
		return
	}
	c.Redirect(http.StatusSeeOther, h.cfg.FailRedirect)
}

func (h *Handler) Fail(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, h.cfg.FailRedirect)
}

func (h *Handler) Cancel(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, h.cfg.CancelRedirect)
}

// IPN is the gateway's server-to-server notification. Same confirmation path
// as the redirect, but the response is for the gateway, not a browser.
func (h *Handler) IPN(c *gin.Context) {
	var cb paygate.Callback
	if err := c.ShouldBind(&cb); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	outcome, err := h.svc.Confirm(c.Request.Context(), &cb)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "callback processed", gin.H{
		"outcome": outcome,
	})
}
