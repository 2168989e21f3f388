package consultation

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/service/consultation"
	"github.com/teleclinic/consult-api/internal/service/doctor"
	"github.com/teleclinic/consult-api/internal/service/scheduling"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

type Handler struct {
	scheduling    *scheduling.Service
	consultations *consultation.Service
	doctors       *doctor.Service
}

func NewHandler(s *scheduling.Service, c *consultation.Service, d *doctor.Service) *Handler {
	return &Handler{scheduling: s, consultations: c, doctors: d}
}

// RegisterPublicRoutes mounts the unauthenticated booking surface.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/doctors", h.PublicDirectory)
	r.POST("/consultations/book", h.BookPublic)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.POST("", h.BookInternal)
		consultations.GET("/me", h.MySchedule)
		consultations.GET("/:id", h.Get)
		consultations.POST("/:id/status", h.ChangeStatus)
		consultations.GET("/:id/video", h.VideoInfo)
		consultations.POST("/:id/video/start", h.StartVideo)
		consultations.POST("/:id/video/end", h.EndVideo)
	}
}

func (h *Handler) PublicDirectory(c *gin.Context) {
	doctors, err := h.doctors.PublicDirectory(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) BookPublic(c *gin.Context) {
	var req model.PublicBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid booking payload: %v", err))
		return
	}

	resp, err := h.scheduling.BookPublic(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, resp)
}

func (h *Handler) BookInternal(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.InternalBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid booking payload: %v", err))
		return
	}

	resp, err := h.scheduling.BookInternal(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, resp)
}

// MySchedule returns the acting doctor's consultations, optionally limited
// to one calendar day in the clinic timezone via ?day=YYYY-MM-DD.
func (h *Handler) MySchedule(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	list, err := h.consultations.ListForDoctor(c.Request.Context(), actor, actor.ID, c.Query("day"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid consultation id"))
		return
	}

	consult, err := h.consultations.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if consult.DoctorID != actor.ID && !actor.CanManageConsultations() {
		httputil.RespondWithError(c, apperrors.Forbidden("not your consultation"))
		return
	}
	httputil.RespondWithSuccess(c, consult)
}

type statusChangeRequest struct {
	Status model.ConsultationStatus `json:"status" binding:"required"`
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid consultation id"))
		return
	}

	var req statusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid status payload: %v", err))
		return
	}

	consult, err := h.consultations.Transition(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, consult)
}

func (h *Handler) VideoInfo(c *gin.Context) {
	h.withConsultation(c, func(actor model.Actor, id uuid.UUID) (interface{}, error) {
		return h.consultations.VideoInfo(c.Request.Context(), actor, id)
	})
}

func (h *Handler) StartVideo(c *gin.Context) {
	h.withConsultation(c, func(actor model.Actor, id uuid.UUID) (interface{}, error) {
		return h.consultations.StartVideo(c.Request.Context(), actor, id)
	})
}

func (h *Handler) EndVideo(c *gin.Context) {
	h.withConsultation(c, func(actor model.Actor, id uuid.UUID) (interface{}, error) {
		return h.consultations.EndVideo(c.Request.Context(), actor, id)
	})
}

func (h *Handler) withConsultation(c *gin.Context, fn func(model.Actor, uuid.UUID) (interface{}, error)) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid consultation id"))
		return
	}

	result, err := fn(actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}
