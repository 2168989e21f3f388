package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository/memory"
	"github.com/teleclinic/consult-api/internal/service/video"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

type fixture struct {
	svc           *Service
	consultations *memory.ConsultationRepository
	doctors       *memory.DoctorRepository
	patients      *memory.PatientRepository
	doctor        *model.Doctor
	patient       *model.Patient
	tz            *time.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tz, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	consultations := memory.NewConsultationRepository()
	doctors := memory.NewDoctorRepository()
	patients := memory.NewPatientRepository()
	consultations.Patients = patients
	consultations.Loc = tz

	doctor := &model.Doctor{
		Email: "dr@example.com", FullName: "Dr. Example", Role: model.RoleSpecialist,
		IsActive: true, IsMedicalProfessional: true,
	}
	require.NoError(t, doctors.Create(context.Background(), doctor))

	patient, err := patients.UpsertByEmail(context.Background(), &model.Patient{
		FullName: "Jane Roe", Email: "jane@example.com",
	})
	require.NoError(t, err)

	m := metrics.New("test", prometheus.NewRegistry())
	svc := NewService(consultations, doctors, patients, video.NewJitsiProvisioner(""), nil, m,
		logger.NewLogger(nil), tz, "meet.jit.si")
	return &fixture{
		svc: svc, consultations: consultations, doctors: doctors, patients: patients,
		doctor: doctor, patient: patient, tz: tz,
	}
}

func (f *fixture) seed(t *testing.T, status model.ConsultationStatus, ctype model.ConsultationType) *model.Consultation {
	t.Helper()
	c := &model.Consultation{
		PatientID:        f.patient.ID,
		DoctorID:         f.doctor.ID,
		ConsultationType: ctype,
		Specialty:        "Dermatology",
		ScheduledAt:      time.Now().Add(24 * time.Hour).UTC(),
		DurationMinutes:  30,
		Status:           status,
	}
	if ctype == model.ConsultationTypeVideo && status != model.ConsultationStatusPending {
		c.JitsiRoomName = "Telemed_test_abcd1234"
		c.JitsiRoomURL = "https://meet.jit.si/Telemed_test_abcd1234"
	}
	require.NoError(t, f.consultations.Create(context.Background(), c))
	return c
}

func (f *fixture) treating() model.Actor {
	return model.Actor{ID: f.doctor.ID, Role: model.RoleSpecialist, IsMedicalProfessional: true}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from    model.ConsultationStatus
		to      model.ConsultationStatus
		allowed bool
	}{
		{model.ConsultationStatusPending, model.ConsultationStatusConfirmed, true},
		{model.ConsultationStatusPending, model.ConsultationStatusCancelled, true},
		{model.ConsultationStatusPending, model.ConsultationStatusInProgress, false},
		{model.ConsultationStatusPending, model.ConsultationStatusCompleted, false},
		{model.ConsultationStatusConfirmed, model.ConsultationStatusInProgress, true},
		{model.ConsultationStatusConfirmed, model.ConsultationStatusCancelled, true},
		{model.ConsultationStatusConfirmed, model.ConsultationStatusCompleted, false},
		{model.ConsultationStatusInProgress, model.ConsultationStatusCompleted, true},
		{model.ConsultationStatusInProgress, model.ConsultationStatusCancelled, false},
		{model.ConsultationStatusCompleted, model.ConsultationStatusConfirmed, false},
		{model.ConsultationStatusCompleted, model.ConsultationStatusCancelled, false},
		{model.ConsultationStatusCancelled, model.ConsultationStatusConfirmed, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			f := newFixture(t)
			c := f.seed(t, tc.from, model.ConsultationTypeVideo)

			_, err := f.svc.Transition(context.Background(), f.treating(), c.ID, tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))
			}
		})
	}
}

func TestTransitionSetsTimestamps(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)

	started, err := f.svc.Transition(context.Background(), f.treating(), c.ID, model.ConsultationStatusInProgress)
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)

	done, err := f.svc.Transition(context.Background(), f.treating(), c.ID, model.ConsultationStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.EndedAt)
	assert.False(t, done.EndedAt.Before(*done.StartedAt))
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)
	room := c.JitsiRoomName

	again, err := f.svc.Transition(context.Background(), f.treating(), c.ID, model.ConsultationStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusConfirmed, again.Status)
	assert.Equal(t, room, again.JitsiRoomName)
}

func TestConfirmProvisionsMissingRoom(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusPending, model.ConsultationTypeVideo)
	require.Empty(t, c.JitsiRoomURL)

	confirmed, err := f.svc.Transition(context.Background(), f.treating(), c.ID, model.ConsultationStatusConfirmed)
	require.NoError(t, err)
	assert.NotEmpty(t, confirmed.JitsiRoomName)
	assert.NotEmpty(t, confirmed.JitsiRoomURL)
}

func TestTransitionAuthorization(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)

	reception := model.Actor{ID: uuid.New(), Role: model.RoleReception}

	// Front desk cannot run the encounter.
	_, err := f.svc.Transition(context.Background(), reception, c.ID, model.ConsultationStatusInProgress)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	// But may cancel.
	_, err = f.svc.Transition(context.Background(), reception, c.ID, model.ConsultationStatusCancelled)
	assert.NoError(t, err)
}

func TestStartAndEndVideo(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)

	info, err := f.svc.StartVideo(context.Background(), f.treating(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusInProgress, info.Status)
	assert.Equal(t, c.JitsiRoomURL, info.RoomURL)

	done, err := f.svc.EndVideo(context.Background(), f.treating(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusCompleted, done.Status)
}

func TestStartVideoRequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusPending, model.ConsultationTypeVideo)

	_, err := f.svc.StartVideo(context.Background(), f.treating(), c.ID)
	assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))
}

func TestStartVideoRejectsNonVideo(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeInPerson)

	_, err := f.svc.StartVideo(context.Background(), f.treating(), c.ID)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestStartVideoOwnershipCheck(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)

	other := model.Actor{ID: uuid.New(), Role: model.RoleSpecialist, IsMedicalProfessional: true}
	_, err := f.svc.StartVideo(context.Background(), other, c.ID)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
}

func TestVideoInfoCancelledNotJoinable(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)

	_, err := f.svc.Transition(context.Background(), f.treating(), c.ID, model.ConsultationStatusCancelled)
	require.NoError(t, err)

	_, err = f.svc.VideoInfo(context.Background(), f.treating(), c.ID)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestListForDoctorDayBoundary(t *testing.T) {
	f := newFixture(t)

	// 23:50 and next-day 00:10 in the clinic timezone must land on
	// different calendar days.
	lateNight := time.Date(2026, 9, 14, 23, 50, 0, 0, f.tz)
	earlyMorning := time.Date(2026, 9, 15, 0, 10, 0, 0, f.tz)

	for _, at := range []time.Time{lateNight, earlyMorning} {
		c := &model.Consultation{
			PatientID:        f.patient.ID,
			DoctorID:         f.doctor.ID,
			ConsultationType: model.ConsultationTypeVideo,
			Specialty:        "Dermatology",
			ScheduledAt:      at.UTC(),
			DurationMinutes:  30,
			Status:           model.ConsultationStatusConfirmed,
		}
		require.NoError(t, f.consultations.Create(context.Background(), c))
	}

	day1, err := f.svc.ListForDoctor(context.Background(), f.treating(), f.doctor.ID, "2026-09-14")
	require.NoError(t, err)
	require.Len(t, day1, 1)
	assert.Equal(t, lateNight.UTC(), day1[0].ScheduledAt)

	day2, err := f.svc.ListForDoctor(context.Background(), f.treating(), f.doctor.ID, "2026-09-15")
	require.NoError(t, err)
	require.Len(t, day2, 1)
	assert.Equal(t, earlyMorning.UTC(), day2[0].ScheduledAt)
}

func TestListForDoctorRejectsBadDay(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListForDoctor(context.Background(), f.treating(), f.doctor.ID, "14-09-2026")
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestAdminListRequiresRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AdminList(context.Background(), f.treating(), nil)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))

	_, err = f.svc.AdminList(context.Background(), model.Actor{ID: uuid.New(), Role: model.RoleReception}, nil)
	assert.NoError(t, err)
}

func TestAdminUpdateRescheduleConflict(t *testing.T) {
	f := newFixture(t)
	first := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)

	second := &model.Consultation{
		PatientID:        f.patient.ID,
		DoctorID:         f.doctor.ID,
		ConsultationType: model.ConsultationTypeVideo,
		Specialty:        "Dermatology",
		ScheduledAt:      first.ScheduledAt.Add(2 * time.Hour),
		DurationMinutes:  30,
		Status:           model.ConsultationStatusConfirmed,
	}
	require.NoError(t, f.consultations.Create(context.Background(), second))

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdministration}

	// Moving the second consultation onto the first must be rejected.
	conflictAt := first.ScheduledAt.Add(10 * time.Minute)
	_, err := f.svc.AdminUpdate(context.Background(), admin, second.ID, &model.ConsultationUpdateRequest{
		ScheduledAt: &conflictAt,
	})
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	// A free slot is fine.
	freeAt := first.ScheduledAt.Add(4 * time.Hour)
	updated, err := f.svc.AdminUpdate(context.Background(), admin, second.ID, &model.ConsultationUpdateRequest{
		ScheduledAt: &freeAt,
	})
	require.NoError(t, err)
	assert.Equal(t, freeAt.UTC(), updated.ScheduledAt)
}

func TestAdminUpdateRescheduleSeesBookingLandedAtLock(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)

	target := c.ScheduledAt.Add(3 * time.Hour)

	// A competing booking takes the slot at the serialization point, after
	// any state AdminUpdate could have read beforehand. The reschedule must
	// still see it.
	f.consultations.OnDoctorLock = func() {
		competing := &model.Consultation{
			PatientID:        f.patient.ID,
			DoctorID:         f.doctor.ID,
			ConsultationType: model.ConsultationTypeVideo,
			Specialty:        "Dermatology",
			ScheduledAt:      target,
			DurationMinutes:  30,
			Status:           model.ConsultationStatusConfirmed,
		}
		require.NoError(t, f.consultations.Create(context.Background(), competing))
	}

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdministration}
	_, err := f.svc.AdminUpdate(context.Background(), admin, c.ID, &model.ConsultationUpdateRequest{
		ScheduledAt: &target,
	})
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))

	// The stored consultation is unchanged.
	stored, err := f.consultations.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ScheduledAt, stored.ScheduledAt)
}

func TestAdminUpdateRejectsStatusCombinedWithEdits(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusPending, model.ConsultationTypeInPerson)

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdministration}
	confirmed := model.ConsultationStatusConfirmed
	notes := "bring referral letter"
	_, err := f.svc.AdminUpdate(context.Background(), admin, c.ID, &model.ConsultationUpdateRequest{
		Status: &confirmed,
		Notes:  &notes,
	})
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))

	// Alone, each edit is accepted.
	updated, err := f.svc.AdminUpdate(context.Background(), admin, c.ID, &model.ConsultationUpdateRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)

	updated, err = f.svc.AdminUpdate(context.Background(), admin, c.ID, &model.ConsultationUpdateRequest{Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusConfirmed, updated.Status)
}

func TestAdminUpdateStatusGoesThroughStateMachine(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusPending, model.ConsultationTypeInPerson)

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdministration}

	completed := model.ConsultationStatusCompleted
	_, err := f.svc.AdminUpdate(context.Background(), admin, c.ID, &model.ConsultationUpdateRequest{Status: &completed})
	assert.Equal(t, apperrors.ErrInvalidTransition, apperrors.CodeOf(err))

	cancelled := model.ConsultationStatusCancelled
	updated, err := f.svc.AdminUpdate(context.Background(), admin, c.ID, &model.ConsultationUpdateRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusCancelled, updated.Status)
}

func TestUpdateVersionMismatch(t *testing.T) {
	f := newFixture(t)
	c := f.seed(t, model.ConsultationStatusConfirmed, model.ConsultationTypeVideo)

	stale := c.UpdatedAt.Add(-time.Minute)
	c.Notes = "stale write"
	err := f.consultations.Update(context.Background(), c, stale)
	assert.Equal(t, apperrors.ErrVersionMismatch, apperrors.CodeOf(err))
}
