package template

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/middleware"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/service/template"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/httputil"
)

type Handler struct {
	service *template.Service
}

func NewHandler(service *template.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/templates")
	{
		templates.GET("", h.List)
		templates.POST("", h.Create)
		templates.GET("/:id", h.Get)
		templates.PUT("/:id", h.Update)
		templates.DELETE("/:id", h.Delete)
		templates.POST("/:id/apply", h.Apply)
	}
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	templates, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, templates)
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}

	var req model.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid template payload: %v", err))
		return
	}

	tpl, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, tpl)
}

func (h *Handler) Get(c *gin.Context) {
	h.withTemplate(c, func(actor model.Actor, id uuid.UUID) (interface{}, error) {
		return h.service.Get(c.Request.Context(), actor, id)
	})
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid template id"))
		return
	}

	var req model.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid template payload: %v", err))
		return
	}

	tpl, err := h.service.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tpl)
}

func (h *Handler) Delete(c *gin.Context) {
	h.withTemplate(c, func(actor model.Actor, id uuid.UUID) (interface{}, error) {
		if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
			return nil, err
		}
		return gin.H{"deleted": true}, nil
	})
}

// Apply returns a prefilled record draft; the caller then posts it to the
// patient's history, edited or not.
func (h *Handler) Apply(c *gin.Context) {
	h.withTemplate(c, func(actor model.Actor, id uuid.UUID) (interface{}, error) {
		return h.service.Apply(c.Request.Context(), actor, id)
	})
}

func (h *Handler) withTemplate(c *gin.Context, fn func(model.Actor, uuid.UUID) (interface{}, error)) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized(nil))
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validationf("invalid template id"))
		return
	}

	result, err := fn(actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}
