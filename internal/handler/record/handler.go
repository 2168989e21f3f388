package record

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/service/record"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

type Handler struct {
	service *record.Service
}

func NewHandler(service *record.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients", h.ListPatients)

	records := r.Group("/patients/:patientID/records")
	{
		records.GET("", h.List)
		records.POST("", h.Create)
		records.PATCH("/:recordID", h.Update)
		records.DELETE("/:recordID", h.Delete)
	}
}

// ListPatients returns the doctor-facing roster with record counts.
func (h *Handler) ListPatients(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	patients, err := h.service.ListPatients(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patients)
}

// List returns a patient's history, optionally filtered by ?q= substring
// search across the clinical fields.
func (h *Handler) List(c *gin.Context) {
	actor, patientID, ok := h.actorAndPatient(c)
	if !ok {
		return
	}

	var (
		records []*model.ClinicalRecord
		err     error
	)
	if q := c.Query("q"); q != "" {
		records, err = h.service.Search(c.Request.Context(), actor, patientID, q)
	} else {
		records, err = h.service.ListForPatient(c.Request.Context(), actor, patientID)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, records)
}

func (h *Handler) Create(c *gin.Context) {
	actor, patientID, ok := h.actorAndPatient(c)
	if !ok {
		return
	}

	var req model.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid record payload: %v", err))
		return
	}

	rec, err := h.service.Create(c.Request.Context(), actor, patientID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, rec)
}

func (h *Handler) Update(c *gin.Context) {
	actor, patientID, ok := h.actorAndPatient(c)
	if !ok {
		return
	}
	recordID, err := uuid.Parse(c.Param("recordID"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid record id"))
		return
	}

	var req model.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid record payload: %v", err))
		return
	}

	rec, err := h.service.Update(c.Request.Context(), actor, patientID, recordID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, patientID, ok := h.actorAndPatient(c)
	if !ok {
		return
	}
	recordID, err := uuid.Parse(c.Param("recordID"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid record id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, patientID, recordID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

func (h *Handler) actorAndPatient(c *gin.Context) (model.Actor, uuid.UUID, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return model.Actor{}, uuid.Nil, false
	}
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid patient id"))
		return model.Actor{}, uuid.Nil, false
	}
	return actor, patientID, true
}
