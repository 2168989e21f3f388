package template

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

// Service manages clinician-owned record templates. Templates belong
// exclusively to their creator; applying one copies values and keeps no link.
type Service struct {
	templates repository.TemplateRepository
}

func NewService(templates repository.TemplateRepository) *Service {
	return &Service{templates: templates}
}

func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateTemplateRequest) (*model.ClinicalTemplate, error) {
	if !actor.CanAccessClinicalData() {
		return nil, apperrors.Forbidden("role cannot manage templates")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("template name is required")
	}
	existing, err := s.templates.GetByName(ctx, actor.ID, name)
	if err != nil && apperrors.CodeOf(err) != apperrors.ErrNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Validationf("template %q already exists", name)
	}

	t := &model.ClinicalTemplate{
		OwnerID:        actor.ID,
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		ChiefComplaint: req.ChiefComplaint,
		Background:     req.Background,
		Assessment:     req.Assessment,
		Plan:           req.Plan,
		Allergies:      req.Allergies,
		Medications:    req.Medications,
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ClinicalTemplate, error) {
	return s.getOwned(ctx, actor, id)
}

func (s *Service) List(ctx context.Context, actor model.Actor) ([]*model.ClinicalTemplate, error) {
	if !actor.CanAccessClinicalData() {
		return nil, apperrors.Forbidden("role cannot manage templates")
	}
	return s.templates.ListForOwner(ctx, actor.ID)
}

func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateTemplateRequest) (*model.ClinicalTemplate, error) {
	t, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("template name is required")
		}
		t.Name = name
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&t.Description, req.Description)
	apply(&t.ChiefComplaint, req.ChiefComplaint)
	apply(&t.Background, req.Background)
	apply(&t.Assessment, req.Assessment)
	apply(&t.Plan, req.Plan)
	apply(&t.Allergies, req.Allergies)
	apply(&t.Medications, req.Medications)

	if err := s.templates.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a template. Records created from it are untouched; nothing
// links back.
func (s *Service) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if _, err := s.getOwned(ctx, actor, id); err != nil {
		return err
	}
	return s.templates.Delete(ctx, id)
}

// Apply projects a template's clinical fields for pre-filling a new record.
// Pure read: no link to the template is created.
func (s *Service) Apply(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.CreateRecordRequest, error) {
	t, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	fields := t.Apply()
	return &fields, nil
}

// getOwned loads a template and enforces exclusive ownership.
func (s *Service) getOwned(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.ClinicalTemplate, error) {
	if !actor.CanAccessClinicalData() {
		return nil, apperrors.Forbidden("role cannot manage templates")
	}
	t, err := s.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != actor.ID {
		return nil, apperrors.NotFound("template")
	}
	return t, nil
}
