package record

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository/memory"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
)

func setup(t *testing.T) (*Service, *model.Patient, model.Actor) {
	t.Helper()

	records := memory.NewClinicalRecordRepository()
	patients := memory.NewPatientRepository()

	patient, err := patients.UpsertByEmail(context.Background(), &model.Patient{
		FullName: "Jane Roe", Email: "jane@example.com",
	})
	require.NoError(t, err)

	actor := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, IsMedicalProfessional: true}
	return NewService(records, patients, logger.NewLogger(nil)), patient, actor
}

func TestCreateRequiresOneField(t *testing.T) {
	svc, patient, actor := setup(t)

	_, err := svc.Create(context.Background(), actor, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "   ",
		Background:     "",
	})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	rec, err := svc.Create(context.Background(), actor, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "  headache  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "headache", rec.ChiefComplaint)
	assert.Equal(t, actor.ID, rec.AuthorID)
}

func TestCreateRequiresClinicalRole(t *testing.T) {
	svc, patient, _ := setup(t)

	reception := model.Actor{ID: uuid.New(), Role: model.RoleReception}
	_, err := svc.Create(context.Background(), reception, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "headache",
	})
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
}

func TestUpdatePreservesOmittedAndClearsEmpty(t *testing.T) {
	svc, patient, actor := setup(t)

	rec, err := svc.Create(context.Background(), actor, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "headache",
		Assessment:     "tension type",
		Plan:           "hydration",
	})
	require.NoError(t, err)

	empty := ""
	newPlan := "ibuprofen"
	updated, err := svc.Update(context.Background(), actor, patient.ID, rec.ID, &model.UpdateRecordRequest{
		Assessment: &empty,   // explicit clear
		Plan:       &newPlan, // replace
		// ChiefComplaint omitted: preserved
	})
	require.NoError(t, err)

	assert.Equal(t, "headache", updated.ChiefComplaint)
	assert.Empty(t, updated.Assessment)
	assert.Equal(t, "ibuprofen", updated.Plan)
}

func TestUpdateCannotClearEverything(t *testing.T) {
	svc, patient, actor := setup(t)

	rec, err := svc.Create(context.Background(), actor, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "headache",
	})
	require.NoError(t, err)

	empty := ""
	_, err = svc.Update(context.Background(), actor, patient.ID, rec.ID, &model.UpdateRecordRequest{
		ChiefComplaint: &empty,
	})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestRecordNotAddressableThroughOtherPatient(t *testing.T) {
	svc, patient, actor := setup(t)

	rec, err := svc.Create(context.Background(), actor, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "headache",
	})
	require.NoError(t, err)

	otherPatient := uuid.New()
	err = svc.Delete(context.Background(), actor, otherPatient, rec.ID)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestSearch(t *testing.T) {
	svc, patient, actor := setup(t)

	_, err := svc.Create(context.Background(), actor, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "Migraine",
		Medications:    "sumatriptan",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), actor, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "Back pain",
	})
	require.NoError(t, err)

	// Case-insensitive substring across any field.
	hits, err := svc.Search(context.Background(), actor, patient.ID, "SUMA")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Migraine", hits[0].ChiefComplaint)

	// Blank query falls back to the full history.
	all, err := svc.Search(context.Background(), actor, patient.ID, "   ")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDelete(t *testing.T) {
	svc, patient, actor := setup(t)

	rec, err := svc.Create(context.Background(), actor, patient.ID, &model.CreateRecordRequest{
		ChiefComplaint: "headache",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), actor, patient.ID, rec.ID))

	list, err := svc.ListForPatient(context.Background(), actor, patient.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
