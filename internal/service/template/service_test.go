package template

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository/memory"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

func setup() (*Service, model.Actor) {
	svc := NewService(memory.NewTemplateRepository())
	actor := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, IsMedicalProfessional: true}
	return svc, actor
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, actor := setup()

	_, err := svc.Create(context.Background(), actor, &model.CreateTemplateRequest{Name: "Migraine intake"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), actor, &model.CreateTemplateRequest{Name: "Migraine intake"})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// Another clinician may reuse the name.
	other := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, IsMedicalProfessional: true}
	_, err = svc.Create(context.Background(), other, &model.CreateTemplateRequest{Name: "Migraine intake"})
	assert.NoError(t, err)
}

func TestTemplatesAreOwnerScoped(t *testing.T) {
	svc, owner := setup()

	tpl, err := svc.Create(context.Background(), owner, &model.CreateTemplateRequest{Name: "Allergy check"})
	require.NoError(t, err)

	intruder := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, IsMedicalProfessional: true}

	// Foreign templates are indistinguishable from missing ones.
	_, err = svc.Get(context.Background(), intruder, tpl.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))

	err = svc.Delete(context.Background(), intruder, tpl.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))

	list, err := svc.List(context.Background(), intruder)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApplyCopiesFields(t *testing.T) {
	svc, actor := setup()

	tpl, err := svc.Create(context.Background(), actor, &model.CreateTemplateRequest{
		Name:           "Migraine intake",
		ChiefComplaint: "Migraine",
		Plan:           "hydration, dark room",
		Medications:    "sumatriptan",
	})
	require.NoError(t, err)

	draft, err := svc.Apply(context.Background(), actor, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Migraine", draft.ChiefComplaint)
	assert.Equal(t, "sumatriptan", draft.Medications)
	assert.Empty(t, draft.Background)
}

func TestDeleteLeavesNothingBehind(t *testing.T) {
	svc, actor := setup()

	tpl, err := svc.Create(context.Background(), actor, &model.CreateTemplateRequest{Name: "Allergy check"})
	require.NoError(t, err)

	// A draft taken before deletion survives the template.
	draft, err := svc.Apply(context.Background(), actor, tpl.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), actor, tpl.ID))
	_, err = svc.Get(context.Background(), actor, tpl.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	assert.NotNil(t, draft)
}

type brokenNameLookup struct {
	*memory.TemplateRepository
	err error
}

func (b *brokenNameLookup) GetByName(context.Context, uuid.UUID, string) (*model.ClinicalTemplate, error) {
	return nil, b.err
}

func TestCreateSurfacesDuplicateLookupFailure(t *testing.T) {
	repo := &brokenNameLookup{
		TemplateRepository: memory.NewTemplateRepository(),
		err:                apperrors.Internal(errors.New("connection reset")),
	}
	svc := NewService(repo)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, IsMedicalProfessional: true}

	// A failed duplicate lookup must not pass as "no duplicate".
	_, err := svc.Create(context.Background(), actor, &model.CreateTemplateRequest{Name: "Intake"})
	assert.Equal(t, apperrors.ErrInternal, apperrors.CodeOf(err))

	list, err := svc.List(context.Background(), actor)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTemplatesRequireClinicalRole(t *testing.T) {
	svc, _ := setup()
	reception := model.Actor{ID: uuid.New(), Role: model.RoleReception}

	_, err := svc.Create(context.Background(), reception, &model.CreateTemplateRequest{Name: "Intake"})
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	_, err = svc.List(context.Background(), reception)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
}

func TestUpdate(t *testing.T) {
	svc, actor := setup()

	tpl, err := svc.Create(context.Background(), actor, &model.CreateTemplateRequest{
		Name: "Allergy check", Allergies: "pollen",
	})
	require.NoError(t, err)

	newName := "Seasonal allergy check"
	newAllergies := "pollen, dust"
	updated, err := svc.Update(context.Background(), actor, tpl.ID, &model.UpdateTemplateRequest{
		Name:      &newName,
		Allergies: &newAllergies,
	})
	require.NoError(t, err)
	assert.Equal(t, "Seasonal allergy check", updated.Name)
	assert.Equal(t, "pollen, dust", updated.Allergies)

	blank := "  "
	_, err = svc.Update(context.Background(), actor, tpl.ID, &model.UpdateTemplateRequest{Name: &blank})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}
