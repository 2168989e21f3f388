package export

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/service/export"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

type Handler struct {
	service *export.Service
}

func NewHandler(service *export.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:patientID/records/export.pdf", h.ExportHistory)
}

// ExportHistory streams the patient's record history as a PDF. With
// ?complaint= only records matching that chief complaint are included.
func (h *Handler) ExportHistory(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid patient id"))
		return
	}

	var (
		pdf      []byte
		filename string
	)
	if complaint := c.Query("complaint"); complaint != "" {
		pdf, filename, err = h.service.ForComplaint(c.Request.Context(), actor, patientID, complaint)
	} else {
		pdf, filename, err = h.service.PatientHistory(c.Request.Context(), actor, patientID)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
