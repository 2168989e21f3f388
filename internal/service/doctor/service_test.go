package doctor

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
	"github.com/teleclinic/consult-api/pkg/security"
)

func setup(t *testing.T) (*Service, *memory.DoctorRepository) {
	t.Helper()
	doctors := memory.NewDoctorRepository()
	return NewService(doctors, security.NewBcryptHasher(4), logger.NewLogger(nil)), doctors
}

func itAdmin() model.Actor {
	return model.Actor{ID: uuid.New(), Role: model.RoleITAdmin}
}

func TestCreateReturnsTemporaryPasswordOnce(t *testing.T) {
	svc, doctors := setup(t)

	d, tempPassword, err := svc.Create(context.Background(), itAdmin(), &model.CreateDoctorRequest{
		Email:    " Dr.New@Example.com ",
		FullName: "New Doctor",
		Role:     model.RoleSpecialist,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tempPassword)
	assert.Equal(t, "dr.new@example.com", d.Email)
	assert.True(t, d.IsActive)
	assert.True(t, d.IsMedicalProfessional)

	stored, err := doctors.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.NotEqual(t, tempPassword, stored.PasswordHash)
	assert.NoError(t, security.NewBcryptHasher(4).Compare(stored.PasswordHash, tempPassword))
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, _ := setup(t)

	_, _, err := svc.Create(context.Background(), itAdmin(), &model.CreateDoctorRequest{
		Email:    "x@example.com",
		FullName: "X",
		Role:     model.Role("janitor"),
	})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestManagementRequiresITAdmin(t *testing.T) {
	svc, _ := setup(t)

	for _, role := range []model.Role{model.RoleSpecialist, model.RoleMedicalAdmin, model.RoleReception, model.RoleAdministration} {
		actor := model.Actor{ID: uuid.New(), Role: role}
		_, err := svc.List(context.Background(), actor)
		assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err), "role %s", role)
	}
}

func TestPublicDirectoryOmitsInactiveAndCaches(t *testing.T) {
	svc, doctors := setup(t)

	require.NoError(t, doctors.Create(context.Background(), &model.Doctor{
		FullName: "Visible", Specialty: "dermatology",
		IsActive: true, IsMedicalProfessional: true,
	}))
	require.NoError(t, doctors.Create(context.Background(), &model.Doctor{
		FullName: "Hidden", IsActive: false, IsMedicalProfessional: true,
	}))

	dir, err := svc.PublicDirectory(context.Background())
	require.NoError(t, err)
	require.Len(t, dir, 1)
	assert.Equal(t, "Visible", dir[0].FullName)

	// Served from cache until an account change invalidates it.
	require.NoError(t, doctors.Create(context.Background(), &model.Doctor{
		FullName: "Late Arrival", IsActive: true, IsMedicalProfessional: true,
	}))
	dir, err = svc.PublicDirectory(context.Background())
	require.NoError(t, err)
	assert.Len(t, dir, 1)
}

func TestUpdateDeactivatesAndInvalidatesDirectory(t *testing.T) {
	svc, _ := setup(t)

	d, _, err := svc.Create(context.Background(), itAdmin(), &model.CreateDoctorRequest{
		Email: "doc@example.com", FullName: "Doc", Role: model.RoleSpecialist,
	})
	require.NoError(t, err)

	dir, err := svc.PublicDirectory(context.Background())
	require.NoError(t, err)
	require.Len(t, dir, 1)

	inactive := false
	updated, err := svc.Update(context.Background(), itAdmin(), d.ID, &model.UpdateDoctorRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	dir, err = svc.PublicDirectory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dir)
}

func TestUpdateUnknownDoctor(t *testing.T) {
	svc, _ := setup(t)

	name := "Nobody"
	_, err := svc.Update(context.Background(), itAdmin(), uuid.New(), &model.UpdateDoctorRequest{FullName: &name})
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}
