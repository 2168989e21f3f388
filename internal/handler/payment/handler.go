package payment

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/service/payment"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

type Handler struct {
	service *payment.Service
}

func NewHandler(service *payment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the checkout and webhook endpoints the
// payment provider and the booking page call without a session.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/payments/checkout-session", h.CreateCheckoutSession)
	r.POST("/webhooks/payments", h.Webhook)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.GET("", h.List)
		payments.GET("/consultations/:id", h.GetForConsultation)
	}
}

func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req model.CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid checkout payload: %v", err))
		return
	}

	resp, err := h.service.CreateCheckoutSession(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, resp)
}

// Webhook ingests provider events. The signature check happens in the
// service; unknown event types are acknowledged so the provider stops
// retrying them.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("unreadable webhook body"))
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), body, c.GetHeader("Webhook-Signature")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"received": true})
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	doctorID := actor.ID
	if raw := c.Query("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validationf("invalid doctor_id"))
			return
		}
		doctorID = id
	}

	payments, err := h.service.ListForDoctor(c.Request.Context(), actor, doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, payments)
}

func (h *Handler) GetForConsultation(c *gin.Context) {
	if _, ok := middleware.ActorFrom(c); !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid consultation id"))
		return
	}

	p, err := h.service.GetForConsultation(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}
