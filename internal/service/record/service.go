package record

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
)

// Service is the append-oriented clinical record store. Records belong to a
// patient but are authored and mutated only by clinicians.
type Service struct {
	records  repository.ClinicalRecordRepository
	patients repository.PatientRepository
	logger   *logger.Logger
}

func NewService(records repository.ClinicalRecordRepository, patients repository.PatientRepository, l *logger.Logger) *Service {
	return &Service{records: records, patients: patients, logger: l}
}

// Create appends a record. All six fields are optional, but at least one must
// be non-empty after trimming.
func (s *Service) Create(ctx context.Context, actor model.Actor, patientID uuid.UUID, req *model.CreateRecordRequest) (*model.ClinicalRecord, error) {
	if !actor.CanAccessClinicalData() {
		return nil, apperrors.Forbidden("role cannot author clinical records")
	}

	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}

	record := &model.ClinicalRecord{
		PatientID:      patientID,
		AuthorID:       actor.ID,
		ChiefComplaint: strings.TrimSpace(req.ChiefComplaint),
		Background:     strings.TrimSpace(req.Background),
		Assessment:     strings.TrimSpace(req.Assessment),
		Plan:           strings.TrimSpace(req.Plan),
		Allergies:      strings.TrimSpace(req.Allergies),
		Medications:    strings.TrimSpace(req.Medications),
	}
	if record.Empty() {
		return nil, apperrors.Validation("at least one clinical field is required")
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("clinical record created", "record_id", record.ID.String(),
		"patient_id", patientID.String())
	return record, nil
}

// Update replaces fields of an existing record. Omitted fields (nil) are
// preserved; an explicit empty string clears the field. The result must still
// carry at least one non-empty field.
func (s *Service) Update(ctx context.Context, actor model.Actor, patientID, recordID uuid.UUID, req *model.UpdateRecordRequest) (*model.ClinicalRecord, error) {
	if !actor.CanAccessClinicalData() {
		return nil, apperrors.Forbidden("role cannot edit clinical records")
	}

	record, err := s.getForPatient(ctx, patientID, recordID)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&record.ChiefComplaint, req.ChiefComplaint)
	apply(&record.Background, req.Background)
	apply(&record.Assessment, req.Assessment)
	apply(&record.Plan, req.Plan)
	apply(&record.Allergies, req.Allergies)
	apply(&record.Medications, req.Medications)

	if record.Empty() {
		return nil, apperrors.Validation("record cannot be cleared entirely, delete it instead")
	}

	if err := s.records.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record permanently. Confirmation UX is the caller's
// concern.
func (s *Service) Delete(ctx context.Context, actor model.Actor, patientID, recordID uuid.UUID) error {
	if !actor.CanAccessClinicalData() {
		return apperrors.Forbidden("role cannot delete clinical records")
	}

	if _, err := s.getForPatient(ctx, patientID, recordID); err != nil {
		return err
	}
	return s.records.Delete(ctx, recordID)
}

// ListForPatient returns the full history, newest first.
func (s *Service) ListForPatient(ctx context.Context, actor model.Actor, patientID uuid.UUID) ([]*model.ClinicalRecord, error) {
	if !actor.CanAccessClinicalData() {
		return nil, apperrors.Forbidden("role cannot view clinical records")
	}
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	return s.records.ListForPatient(ctx, patientID)
}

// Search filters a patient's history by free text across all six fields,
// server-side.
func (s *Service) Search(ctx context.Context, actor model.Actor, patientID uuid.UUID, query string) ([]*model.ClinicalRecord, error) {
	if !actor.CanAccessClinicalData() {
		return nil, apperrors.Forbidden("role cannot view clinical records")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return s.records.ListForPatient(ctx, patientID)
	}
	return s.records.Search(ctx, patientID, query)
}

// ListPatients is the clinician roster with per-patient history summary.
func (s *Service) ListPatients(ctx context.Context, actor model.Actor) ([]*model.DoctorPatient, error) {
	if !actor.CanAccessClinicalData() {
		return nil, apperrors.Forbidden("role cannot view the patient roster")
	}
	return s.patients.ListWithRecordStats(ctx)
}

// getForPatient loads a record and verifies it belongs to the patient in the
// URL, so a record id cannot be addressed through another patient's path.
func (s *Service) getForPatient(ctx context.Context, patientID, recordID uuid.UUID) (*model.ClinicalRecord, error) {
	record, err := s.records.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.PatientID != patientID {
		return nil, apperrors.NotFound("clinical record")
	}
	return record, nil
}
