package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teleclinic/consult-api/internal/model"
)

// All repository interfaces in one file
type (
	ConsultationRepository interface {
		Create(ctx context.Context, consultation *model.Consultation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		// Update persists the consultation only if the stored updated_at still
		// equals expectedVersion; otherwise it reports a version mismatch.
		Update(ctx context.Context, consultation *model.Consultation, expectedVersion time.Time) error
		List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error)
		ListWithPatients(ctx context.Context, filters *model.ConsultationFilters) ([]*model.ConsultationWithPatient, error)
		HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
		// WithDoctorLock runs fn inside a transaction holding a per-doctor
		// serialization point, so concurrent calendar writes for the same
		// doctor cannot interleave between conflict check and write.
		WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(tx *sqlx.Tx) error) error
		CreateTx(ctx context.Context, tx *sqlx.Tx, consultation *model.Consultation) error
		UpdateTx(ctx context.Context, tx *sqlx.Tx, consultation *model.Consultation, expectedVersion time.Time) error
		HasOverlapTx(ctx context.Context, tx *sqlx.Tx, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// UpsertByEmail returns the existing patient with that email or creates
		// one. Email is the dedup key, enforced by a unique constraint.
		UpsertByEmail(ctx context.Context, patient *model.Patient) (*model.Patient, error)
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
		ListWithRecordStats(ctx context.Context) ([]*model.DoctorPatient, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		ListActiveProfessionals(ctx context.Context) ([]*model.Doctor, error)
		ListProfessionals(ctx context.Context) ([]*model.Doctor, error)
	}

	ClinicalRecordRepository interface {
		Create(ctx context.Context, record *model.ClinicalRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.ClinicalRecord, error)
		Update(ctx context.Context, record *model.ClinicalRecord) error
		Delete(ctx context.Context, id uuid.UUID) error
		// ListForPatient returns records newest-first.
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ClinicalRecord, error)
		// Search filters the six clinical fields server-side,
		// case-insensitive substring.
		Search(ctx context.Context, patientID uuid.UUID, query string) ([]*model.ClinicalRecord, error)
	}

	TemplateRepository interface {
		Create(ctx context.Context, template *model.ClinicalTemplate) error
		Get(ctx context.Context, id uuid.UUID) (*model.ClinicalTemplate, error)
		Update(ctx context.Context, template *model.ClinicalTemplate) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.ClinicalTemplate, error)
		GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*model.ClinicalTemplate, error)
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
		GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*model.Payment, error)
		GetBySessionID(ctx context.Context, sessionID string) (*model.Payment, error)
		Update(ctx context.Context, payment *model.Payment) error
		ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.PaymentWithPatient, error)
	}
)
