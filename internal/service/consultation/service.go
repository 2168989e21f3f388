package consultation

import (
	"context"
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

// Service owns the consultation state machine. Every status mutation goes
// through Transition so side effects (room provisioning, timestamps, events)
// stay bound to the transitions that cause them.
type Service struct {
	consultations repository.ConsultationRepository
	doctors       repository.DoctorRepository
	patients      repository.PatientRepository
	provisioner   video.Provisioner
	publisher     *event.Publisher
	metrics       *metrics.Metrics
	logger        *logger.Logger
	clinicTZ      *time.Location
	jitsiDomain   string
}

func NewService(
	consultations repository.ConsultationRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	provisioner video.Provisioner,
	publisher *event.Publisher,
	m *metrics.Metrics,
	l *logger.Logger,
	clinicTZ *time.Location,
	jitsiDomain string,
) *Service {
	if clinicTZ == nil {
		clinicTZ = time.UTC
	}
	return &Service{
		consultations: consultations,
		doctors:       doctors,
		patients:      patients,
		provisioner:   provisioner,
		publisher:     publisher,
		metrics:       m,
		logger:        l,
		clinicTZ:      clinicTZ,
		jitsiDomain:   jitsiDomain,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	return s.consultations.Get(ctx, id)
}

// Transition moves a consultation to the target status, enforcing the state
// machine and the actor's role. A request for the current status is a no-op,
// which makes confirm idempotent: re-confirming never provisions a second
// room. On any failure the consultation is left unchanged.
func (s *Service) Transition(ctx context.Context, actor model.Actor, id uuid.UUID, target model.ConsultationStatus) (*model.Consultation, error) {
	if !target.Valid() {
		return nil, apperrors.Validationf("unknown status %q", target)
	}

	c, err := s.consultations.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.Status == target {
		return c, nil
	}
	if !c.Status.CanTransitionTo(target) {
		return nil, apperrors.InvalidTransition(string(c.Status), string(target))
	}
	if err := s.authorizeTransition(actor, c, target); err != nil {
		return nil, err
	}

	from := c.Status
	expectedVersion := c.UpdatedAt
	now := time.Now().UTC()

	switch target {
	case model.ConsultationStatusConfirmed:
		// Confirming a video consultation must leave it joinable. A
		// provisioning failure aborts the transition before anything is
		// persisted.
		if c.ConsultationType == model.ConsultationTypeVideo && c.JitsiRoomURL == "" {
			room, err := s.provisioner.Provision(ctx, c.ID)
			if err != nil {
				s.metrics.ProvisioningFailures.Inc()
				return nil, err
			}
			c.JitsiRoomName = room.Name
			c.JitsiRoomURL = room.URL
		}
	case model.ConsultationStatusInProgress:
		c.StartedAt = &now
	case model.ConsultationStatusCompleted:
		c.EndedAt = &now
	}
	c.Status = target

	if err := s.consultations.Update(ctx, c, expectedVersion); err != nil {
		return nil, err
	}

	s.metrics.TransitionsTotal.WithLabelValues(string(from), string(target)).Inc()
	s.logger.Info("consultation transitioned", "consultation_id", c.ID.String(),
		"from", string(from), "to", string(target))

	if err := s.publisher.Publish(ctx, &event.ConsultationEvent{
		Type:           event.TypeStatusChanged,
		ConsultationID: c.ID,
		DoctorID:       c.DoctorID,
		PatientID:      c.PatientID,
		From:           from,
		To:             target,
		ScheduledAt:    c.ScheduledAt,
		RoomURL:        c.JitsiRoomURL,
	}); err != nil {
		s.logger.Error(err, "failed to publish transition event",
			"consultation_id", c.ID.String())
	}

	return c, nil
}

// authorizeTransition encodes who may request each transition. Starting and
// completing an encounter is reserved for the treating doctor; confirmation
// and cancellation extend to front-desk and admin staff.
func (s *Service) authorizeTransition(actor model.Actor, c *model.Consultation, target model.ConsultationStatus) error {
	treating := actor.ID == c.DoctorID && actor.Role == model.RoleSpecialist

	switch target {
	case model.ConsultationStatusInProgress, model.ConsultationStatusCompleted:
		if !treating {
			return apperrors.Forbidden("only the treating doctor can run the encounter")
		}
	case model.ConsultationStatusConfirmed, model.ConsultationStatusCancelled:
		if !treating && !actor.CanManageConsultations() {
			return apperrors.Forbidden("role cannot change consultation status")
		}
	}
	return nil
}

// StartVideo confirms ownership and moves a confirmed video consultation to
// in progress, returning the room details.
func (s *Service) StartVideo(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.VideoRoomInfo, error) {
	c, err := s.consultations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.DoctorID != actor.ID {
		return nil, apperrors.Forbidden("not authorized to start this consultation")
	}
	if c.ConsultationType != model.ConsultationTypeVideo {
		return nil, apperrors.Validation("consultation is not a video consultation")
	}
	if c.Status != model.ConsultationStatusConfirmed {
		return nil, apperrors.InvalidTransition(string(c.Status), string(model.ConsultationStatusInProgress))
	}

	c, err = s.Transition(ctx, actor, id, model.ConsultationStatusInProgress)
	if err != nil {
		return nil, err
	}
	return s.roomInfo(c), nil
}

// EndVideo completes an in-progress consultation owned by the actor.
func (s *Service) EndVideo(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Consultation, error) {
	c, err := s.consultations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.DoctorID != actor.ID {
		return nil, apperrors.Forbidden("not authorized to end this consultation")
	}
	return s.Transition(ctx, actor, id, model.ConsultationStatusCompleted)
}

// VideoInfo returns room details for the treating doctor. Cancelled
// consultations keep their room reference stored but it is no longer
// surfaced as joinable.
func (s *Service) VideoInfo(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.VideoRoomInfo, error) {
	c, err := s.consultations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.DoctorID != actor.ID && !actor.CanManageConsultations() {
		return nil, apperrors.Forbidden("not authorized to view this consultation")
	}
	if !c.Joinable() && c.Status != model.ConsultationStatusCompleted {
		return nil, apperrors.Validation("video room is not available for this consultation")
	}
	return s.roomInfo(c), nil
}

func (s *Service) roomInfo(c *model.Consultation) *model.VideoRoomInfo {
	return &model.VideoRoomInfo{
		RoomName:    c.JitsiRoomName,
		RoomURL:     c.JitsiRoomURL,
		Domain:      s.jitsiDomain,
		Status:      c.Status,
		ScheduledAt: c.ScheduledAt,
		StartedAt:   c.StartedAt,
	}
}

// ListForDoctor returns a doctor's consultations with patient context,
// optionally filtered to one calendar day in the clinic timezone.
func (s *Service) ListForDoctor(ctx context.Context, actor model.Actor, doctorID uuid.UUID, day string) ([]*model.ConsultationWithPatient, error) {
	if actor.ID != doctorID && !actor.CanManageConsultations() {
		return nil, apperrors.Forbidden("not authorized to view these consultations")
	}
	if !actor.CanAccessClinicalData() && !actor.CanManageConsultations() {
		return nil, apperrors.Forbidden("role cannot view consultations")
	}
	if day != "" {
		if _, err := time.ParseInLocation("2006-01-02", day, s.clinicTZ); err != nil {
			return nil, apperrors.Validation("day must be formatted as YYYY-MM-DD")
		}
	}

	return s.consultations.ListWithPatients(ctx, &model.ConsultationFilters{
		DoctorID: doctorID,
		Day:      day,
	})
}

// AdminList is the front-desk consultation board with day, doctor, patient
// and status filters.
func (s *Service) AdminList(ctx context.Context, actor model.Actor, filters *model.ConsultationFilters) ([]*model.ConsultationWithPatient, error) {
	if !actor.CanManageConsultations() {
		return nil, apperrors.Forbidden("role cannot view the consultation board")
	}
	if filters == nil {
		filters = &model.ConsultationFilters{}
	}
	if filters.Day != "" {
		if _, err := time.ParseInLocation("2006-01-02", filters.Day, s.clinicTZ); err != nil {
			return nil, apperrors.Validation("day must be formatted as YYYY-MM-DD")
		}
	}
	if filters.Limit <= 0 || filters.Limit > 1000 {
		filters.Limit = 500
	}
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, apperrors.Validationf("unknown status %q", filters.Status)
	}

	return s.consultations.ListWithPatients(ctx, filters)
}

// AdminUpdate reschedules or annotates a consultation. Status changes are
// delegated to Transition so the state machine cannot be bypassed from the
// admin screen, and cannot be combined with other edits in one request.
// Rescheduling re-runs the overlap check under the doctor calendar lock.
func (s *Service) AdminUpdate(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.ConsultationUpdateRequest) (*model.Consultation, error) {
	if !actor.CanManageConsultations() {
		return nil, apperrors.Forbidden("role cannot edit consultations")
	}

	c, err := s.consultations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expectedVersion := c.UpdatedAt

	if req.Status != nil {
		if req.DoctorID != nil || req.ScheduledAt != nil || req.DurationMinutes != nil || req.Notes != nil {
			return nil, apperrors.Validation("a status change cannot be combined with other edits")
		}
		return s.Transition(ctx, actor, id, *req.Status)
	}

	rescheduled := false
	if req.DoctorID != nil && *req.DoctorID != c.DoctorID {
		doctor, err := s.doctors.Get(ctx, *req.DoctorID)
		if err != nil {
			return nil, err
		}
		if !doctor.IsMedicalProfessional {
			return nil, apperrors.NotFound("doctor")
		}
		c.DoctorID = doctor.ID
		rescheduled = true
	}
	if req.ScheduledAt != nil {
		c.ScheduledAt = req.ScheduledAt.UTC()
		rescheduled = true
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return nil, apperrors.Validation("duration must be positive")
		}
		c.DurationMinutes = *req.DurationMinutes
		rescheduled = true
	}
	if req.Notes != nil {
		c.Notes = *req.Notes
	}

	if rescheduled && !c.Status.Terminal() {
		// Check and write inside the target doctor's calendar lock, the same
		// serialization point bookings take, so a concurrent booking cannot
		// land between them.
		err := s.consultations.WithDoctorLock(ctx, c.DoctorID, func(tx *sqlx.Tx) error {
			overlaps, err := s.consultations.HasOverlapTx(ctx, tx, c.DoctorID, c.ScheduledAt, c.End(), &c.ID)
			if err != nil {
				return err
			}
			if overlaps {
				return apperrors.SchedulingConflict("doctor already has a consultation in this time slot")
			}
			return s.consultations.UpdateTx(ctx, tx, c, expectedVersion)
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	if err := s.consultations.Update(ctx, c, expectedVersion); err != nil {
		return nil, err
	}
	return c, nil
}

// AdminListPatients is the front-desk patient listing with per-patient
// history counts.
func (s *Service) AdminListPatients(ctx context.Context, actor model.Actor) ([]*model.DoctorPatient, error) {
	if !actor.CanManageConsultations() {
		return nil, apperrors.Forbidden("role cannot view the patient list")
	}
	return s.patients.ListWithRecordStats(ctx)
}
