package admin

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/service/consultation"
	"github.com/teleclinic/consult-api/internal/service/doctor"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

// Handler serves the front-desk and operations screens: the consultation
// board, the patient list and medical professional management.
type Handler struct {
	consultations *consultation.Service
	doctors       *doctor.Service
}

func NewHandler(c *consultation.Service, d *doctor.Service) *Handler {
	return &Handler{consultations: c, doctors: d}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.GET("/consultations", h.ConsultationBoard)
		admin.PATCH("/consultations/:id", h.UpdateConsultation)
		admin.GET("/patients", h.ListPatients)

		admin.GET("/medical-professionals", h.ListDoctors)
		admin.POST("/medical-professionals", h.CreateDoctor)
		admin.PATCH("/medical-professionals/:id", h.UpdateDoctor)
	}
}

// ConsultationBoard lists consultations across all doctors, filterable by
// ?day=YYYY-MM-DD, ?status=, ?doctor_id= and ?limit=.
func (h *Handler) ConsultationBoard(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	filters := &model.ConsultationFilters{
		Day:    c.Query("day"),
		Status: model.ConsultationStatus(c.Query("status")),
	}
	if raw := c.Query("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validationf("invalid doctor_id"))
			return
		}
		filters.DoctorID = id
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.RespondWithError(c, apperrors.Validationf("invalid limit"))
			return
		}
		filters.Limit = n
	}

	list, err := h.consultations.AdminList(c.Request.Context(), actor, filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
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

	var req model.ConsultationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid update payload: %v", err))
		return
	}

	consult, err := h.consultations.AdminUpdate(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, consult)
}

func (h *Handler) ListPatients(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	patients, err := h.consultations.AdminListPatients(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	doctors, err := h.doctors.List(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) CreateDoctor(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid doctor payload: %v", err))
		return
	}

	d, tempPassword, err := h.doctors.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, gin.H{"doctor": d, "temporary_password": tempPassword})
}

func (h *Handler) UpdateDoctor(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid doctor id"))
		return
	}

	var req model.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid doctor payload: %v", err))
		return
	}

	d, err := h.doctors.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}
