package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teleclinic/consult-api/internal/event"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	"github.com/teleclinic/consult-api/internal/service/video"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

const (
	DefaultDurationMinutes = 30
	MaxDurationMinutes     = 240
)

// Service validates and persists new consultations. It owns a consultation
// only at creation; all later status changes go through the lifecycle
// manager.
type Service struct {
	consultations repository.ConsultationRepository
	patients      repository.PatientRepository
	doctors       repository.DoctorRepository
	provisioner   video.Provisioner
	publisher     *event.Publisher
	metrics       *metrics.Metrics
	logger        *logger.Logger
}

func NewService(
	consultations repository.ConsultationRepository,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
	provisioner video.Provisioner,
	publisher *event.Publisher,
	m *metrics.Metrics,
	l *logger.Logger,
) *Service {
	return &Service{
		consultations: consultations,
		patients:      patients,
		doctors:       doctors,
		provisioner:   provisioner,
		publisher:     publisher,
		metrics:       m,
		logger:        l,
	}
}

// BookPublic handles the unauthenticated booking flow. Public bookings are
// always video consultations and auto-confirm, so the response must already
// carry a joinable room URL.
func (s *Service) BookPublic(ctx context.Context, req *model.PublicBookingRequest) (*model.BookingResponse, error) {
	booking := &bookingInput{
		DoctorID:         req.DoctorID,
		Patient:          &req.Patient,
		ConsultationType: model.ConsultationTypeVideo,
		Specialty:        req.Specialty,
		ReasonForVisit:   req.ReasonForVisit,
		ScheduledAt:      req.ScheduledAt,
		DurationMinutes:  req.DurationMinutes,
	}
	return s.book(ctx, booking)
}

// BookInternal handles the staff booking flow. A specialist always books for
// themself; front-desk roles choose the doctor.
func (s *Service) BookInternal(ctx context.Context, actor model.Actor, req *model.InternalBookingRequest) (*model.BookingResponse, error) {
	if !actor.CanBookInternal() {
		return nil, apperrors.Forbidden("role cannot book consultations")
	}

	doctorID := req.DoctorID
	if actor.Role == model.RoleSpecialist {
		doctorID = actor.ID
	}
	if doctorID == uuid.Nil {
		return nil, apperrors.Validation("doctor is required")
	}
	if !req.ConsultationType.Valid() {
		return nil, apperrors.Validationf("unknown consultation type %q", req.ConsultationType)
	}

	booking := &bookingInput{
		DoctorID:         doctorID,
		PatientID:        req.PatientID,
		Patient:          req.Patient,
		ConsultationType: req.ConsultationType,
		Specialty:        req.Specialty,
		ReasonForVisit:   req.ReasonForVisit,
		ScheduledAt:      req.ScheduledAt,
		DurationMinutes:  req.DurationMinutes,
	}
	return s.book(ctx, booking)
}

type bookingInput struct {
	DoctorID         uuid.UUID
	PatientID        *uuid.UUID
	Patient          *model.PatientInfo
	ConsultationType model.ConsultationType
	Specialty        string
	ReasonForVisit   string
	ScheduledAt      time.Time
	DurationMinutes  int
}

// book runs the shared booking pipeline: validate, resolve patient, validate
// doctor, provision the room (video only), then conflict-check and insert
// under the per-doctor lock. Provisioning happens before the transaction so a
// provider failure aborts the booking with nothing persisted; an unused room
// name on the conflict path is harmless.
func (s *Service) book(ctx context.Context, in *bookingInput) (*model.BookingResponse, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	patient, err := s.resolvePatient(ctx, in)
	if err != nil {
		return nil, err
	}

	doctor, err := s.doctors.Get(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive || !doctor.IsMedicalProfessional {
		return nil, apperrors.NotFound("doctor")
	}

	consultation := &model.Consultation{
		ID:               uuid.New(),
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		ConsultationType: in.ConsultationType,
		Specialty:        strings.TrimSpace(in.Specialty),
		ReasonForVisit:   strings.TrimSpace(in.ReasonForVisit),
		ScheduledAt:      in.ScheduledAt.UTC(),
		DurationMinutes:  in.DurationMinutes,
		Status:           model.ConsultationStatusConfirmed,
	}

	if in.ConsultationType == model.ConsultationTypeVideo {
		room, err := s.provisioner.Provision(ctx, consultation.ID)
		if err != nil {
			s.metrics.ProvisioningFailures.Inc()
			return nil, err
		}
		consultation.JitsiRoomName = room.Name
		consultation.JitsiRoomURL = room.URL
	}

	err = s.consultations.WithDoctorLock(ctx, doctor.ID, func(tx *sqlx.Tx) error {
		overlaps, err := s.consultations.HasOverlapTx(ctx, tx, doctor.ID, consultation.ScheduledAt, consultation.End(), nil)
		if err != nil {
			return err
		}
		if overlaps {
			return apperrors.SchedulingConflict("doctor already has a consultation in this time slot")
		}
		return s.consultations.CreateTx(ctx, tx, consultation)
	})
	if err != nil {
		s.metrics.BookingsTotal.WithLabelValues(string(in.ConsultationType), "rejected").Inc()
		return nil, err
	}

	s.metrics.BookingsTotal.WithLabelValues(string(in.ConsultationType), "created").Inc()
	s.logger.Info("consultation booked", "consultation_id", consultation.ID.String(),
		"doctor_id", doctor.ID.String(), "type", string(in.ConsultationType))

	if err := s.publisher.Publish(ctx, &event.ConsultationEvent{
		Type:           event.TypeBooked,
		ConsultationID: consultation.ID,
		DoctorID:       doctor.ID,
		PatientID:      patient.ID,
		PatientEmail:   patient.Email,
		PatientName:    patient.FullName,
		DoctorEmail:    doctor.Email,
		DoctorName:     doctor.FullName,
		To:             consultation.Status,
		ScheduledAt:    consultation.ScheduledAt,
		RoomURL:        consultation.JitsiRoomURL,
	}); err != nil {
		// Notification delivery is best-effort; the booking stands.
		s.logger.Error(err, "failed to publish booking event",
			"consultation_id", consultation.ID.String())
	}

	return &model.BookingResponse{
		Consultation: consultation,
		JitsiRoomURL: consultation.JitsiRoomURL,
	}, nil
}

func (s *Service) validate(in *bookingInput) error {
	if strings.TrimSpace(in.Specialty) == "" {
		return apperrors.Validation("specialty is required")
	}
	if in.ScheduledAt.IsZero() {
		return apperrors.Validation("scheduled_at is required")
	}
	if !in.ScheduledAt.After(time.Now()) {
		return apperrors.Validation("scheduled_at must be in the future")
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = DefaultDurationMinutes
	}
	if in.DurationMinutes < 0 || in.DurationMinutes > MaxDurationMinutes {
		return apperrors.Validationf("duration must be between 1 and %d minutes", MaxDurationMinutes)
	}
	if in.PatientID == nil && in.Patient == nil {
		return apperrors.Validation("patient is required")
	}
	if in.Patient != nil && strings.TrimSpace(in.Patient.Email) == "" {
		return apperrors.Validation("patient email is required")
	}
	return nil
}

// resolvePatient looks up an explicit patient id, or upserts by email. Email
// is the dedup key: rebooking with a known address reuses the existing
// patient.
func (s *Service) resolvePatient(ctx context.Context, in *bookingInput) (*model.Patient, error) {
	if in.PatientID != nil {
		return s.patients.Get(ctx, *in.PatientID)
	}
	return s.patients.UpsertByEmail(ctx, &model.Patient{
		FullName: strings.TrimSpace(in.Patient.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Patient.Email)),
		Phone:    strings.TrimSpace(in.Patient.Phone),
	})
}
