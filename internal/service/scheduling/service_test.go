package scheduling

import (
	"context"
	"errors"
	"strings"
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

type failingProvisioner struct{ err error }

func (p *failingProvisioner) Provision(context.Context, uuid.UUID) (*video.Room, error) {
	return nil, p.err
}

type fixture struct {
	svc           *Service
	consultations *memory.ConsultationRepository
	patients      *memory.PatientRepository
	doctors       *memory.DoctorRepository
	doctor        *model.Doctor
}

func newFixture(t *testing.T, prov video.Provisioner) *fixture {
	t.Helper()

	consultations := memory.NewConsultationRepository()
	patients := memory.NewPatientRepository()
	doctors := memory.NewDoctorRepository()
	consultations.Patients = patients

	if prov == nil {
		prov = video.NewJitsiProvisioner("")
	}

	doctor := &model.Doctor{
		Email:                 "dr@example.com",
		FullName:              "Dr. Example",
		Specialty:             "Dermatology",
		Role:                  model.RoleSpecialist,
		IsActive:              true,
		IsMedicalProfessional: true,
	}
	require.NoError(t, doctors.Create(context.Background(), doctor))

	m := metrics.New("test", prometheus.NewRegistry())
	svc := NewService(consultations, patients, doctors, prov, nil, m, logger.NewLogger(nil))
	return &fixture{svc: svc, consultations: consultations, patients: patients, doctors: doctors, doctor: doctor}
}

func publicReq(doctorID uuid.UUID, at time.Time) *model.PublicBookingRequest {
	return &model.PublicBookingRequest{
		DoctorID: doctorID,
		Patient: model.PatientInfo{
			FullName: "Jane Roe",
			Email:    "jane@example.com",
		},
		Specialty:   "Dermatology",
		ScheduledAt: at,
	}
}

func TestBookPublicAutoConfirmsWithRoom(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Now().Add(24 * time.Hour)

	resp, err := f.svc.BookPublic(context.Background(), publicReq(f.doctor.ID, at))
	require.NoError(t, err)

	c := resp.Consultation
	assert.Equal(t, model.ConsultationStatusConfirmed, c.Status)
	assert.Equal(t, model.ConsultationTypeVideo, c.ConsultationType)
	assert.Equal(t, DefaultDurationMinutes, c.DurationMinutes)
	assert.True(t, strings.HasPrefix(c.JitsiRoomName, "Telemed_"+c.ID.String()))
	assert.Contains(t, resp.JitsiRoomURL, "https://meet.jit.si/")
}

func TestBookPublicReusesPatientByEmail(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.svc.BookPublic(context.Background(), publicReq(f.doctor.ID, time.Now().Add(24*time.Hour)))
	require.NoError(t, err)

	req := publicReq(f.doctor.ID, time.Now().Add(48*time.Hour))
	req.Patient.Email = "  JANE@example.com "
	second, err := f.svc.BookPublic(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Consultation.PatientID, second.Consultation.PatientID)
}

func TestBookPublicConflict(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Now().Add(24 * time.Hour)

	_, err := f.svc.BookPublic(context.Background(), publicReq(f.doctor.ID, at))
	require.NoError(t, err)

	// Overlapping start inside the first slot.
	req := publicReq(f.doctor.ID, at.Add(15*time.Minute))
	req.Patient.Email = "other@example.com"
	_, err = f.svc.BookPublic(context.Background(), req)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
}

func TestBookPublicBackToBackSlotsDoNotConflict(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Now().Add(24 * time.Hour)

	_, err := f.svc.BookPublic(context.Background(), publicReq(f.doctor.ID, at))
	require.NoError(t, err)

	req := publicReq(f.doctor.ID, at.Add(30*time.Minute))
	req.Patient.Email = "other@example.com"
	_, err = f.svc.BookPublic(context.Background(), req)
	assert.NoError(t, err)
}

func TestBookPublicCancelledSlotIsFree(t *testing.T) {
	f := newFixture(t, nil)
	at := time.Now().Add(24 * time.Hour)

	resp, err := f.svc.BookPublic(context.Background(), publicReq(f.doctor.ID, at))
	require.NoError(t, err)

	c := resp.Consultation
	c.Status = model.ConsultationStatusCancelled
	require.NoError(t, f.consultations.Update(context.Background(), c, c.UpdatedAt))

	req := publicReq(f.doctor.ID, at)
	req.Patient.Email = "other@example.com"
	_, err = f.svc.BookPublic(context.Background(), req)
	assert.NoError(t, err)
}

func TestBookPublicValidation(t *testing.T) {
	f := newFixture(t, nil)

	cases := []struct {
		name   string
		mutate func(*model.PublicBookingRequest)
	}{
		{"past time", func(r *model.PublicBookingRequest) { r.ScheduledAt = time.Now().Add(-time.Hour) }},
		{"missing specialty", func(r *model.PublicBookingRequest) { r.Specialty = "  " }},
		{"missing email", func(r *model.PublicBookingRequest) { r.Patient.Email = "" }},
		{"excessive duration", func(r *model.PublicBookingRequest) { r.DurationMinutes = MaxDurationMinutes + 1 }},
		{"negative duration", func(r *model.PublicBookingRequest) { r.DurationMinutes = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := publicReq(f.doctor.ID, time.Now().Add(24*time.Hour))
			tc.mutate(req)
			_, err := f.svc.BookPublic(context.Background(), req)
			assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
		})
	}
}

func TestBookPublicInactiveDoctor(t *testing.T) {
	f := newFixture(t, nil)
	f.doctor.IsActive = false
	require.NoError(t, f.doctors.Update(context.Background(), f.doctor))

	_, err := f.svc.BookPublic(context.Background(), publicReq(f.doctor.ID, time.Now().Add(24*time.Hour)))
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestBookPublicProvisioningFailureAborts(t *testing.T) {
	provErr := apperrors.Upstream("video provisioning", errors.New("provider down"))
	f := newFixture(t, &failingProvisioner{err: provErr})

	_, err := f.svc.BookPublic(context.Background(), publicReq(f.doctor.ID, time.Now().Add(24*time.Hour)))
	assert.Equal(t, apperrors.ErrUpstream, apperrors.CodeOf(err))

	// Nothing may be persisted when the room could not be provisioned.
	list, err := f.consultations.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBookInternalRoleRules(t *testing.T) {
	f := newFixture(t, nil)

	other := &model.Doctor{
		Email: "dr2@example.com", FullName: "Dr. Two", Role: model.RoleSpecialist,
		IsActive: true, IsMedicalProfessional: true,
	}
	require.NoError(t, f.doctors.Create(context.Background(), other))

	req := &model.InternalBookingRequest{
		DoctorID:         other.ID,
		Patient:          &model.PatientInfo{FullName: "Jane Roe", Email: "jane@example.com"},
		ConsultationType: model.ConsultationTypeInPerson,
		Specialty:        "Dermatology",
		ScheduledAt:      time.Now().Add(24 * time.Hour),
	}

	// A specialist books for themself regardless of the requested doctor.
	actor := model.Actor{ID: f.doctor.ID, Role: model.RoleSpecialist, IsMedicalProfessional: true}
	resp, err := f.svc.BookInternal(context.Background(), actor, req)
	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, resp.Consultation.DoctorID)
	assert.Empty(t, resp.JitsiRoomURL)

	// Reception books for the chosen doctor.
	req.ScheduledAt = time.Now().Add(48 * time.Hour)
	resp, err = f.svc.BookInternal(context.Background(), model.Actor{ID: uuid.New(), Role: model.RoleReception}, req)
	require.NoError(t, err)
	assert.Equal(t, other.ID, resp.Consultation.DoctorID)

	// IT admin cannot book.
	_, err = f.svc.BookInternal(context.Background(), model.Actor{ID: uuid.New(), Role: model.RoleITAdmin}, req)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
}

func TestBookInternalVideoGetsRoom(t *testing.T) {
	f := newFixture(t, nil)

	actor := model.Actor{ID: f.doctor.ID, Role: model.RoleSpecialist, IsMedicalProfessional: true}
	resp, err := f.svc.BookInternal(context.Background(), actor, &model.InternalBookingRequest{
		Patient:          &model.PatientInfo{FullName: "Jane Roe", Email: "jane@example.com"},
		ConsultationType: model.ConsultationTypeVideo,
		Specialty:        "Dermatology",
		ScheduledAt:      time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Consultation.JitsiRoomName)
	assert.Equal(t, model.ConsultationStatusConfirmed, resp.Consultation.Status)
}
