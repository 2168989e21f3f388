package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teleclinic/consult-api/internal/model"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) *patientRepository {
	return &patientRepository{BaseRepository: NewBaseRepository(db)}
}

const patientColumns = `
	id, COALESCE(full_name, '') AS full_name, email,
	COALESCE(phone, '') AS phone, created_at
`

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

	var p model.Patient
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, notFoundOr(err, "patient")
	}
	return &p, nil
}

// UpsertByEmail resolves a patient by email, creating one if absent. The
// unique constraint on email makes this race-safe; a concurrent insert simply
// returns the existing row.
func (r *patientRepository) UpsertByEmail(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	query := `
		INSERT INTO patients (id, full_name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING ` + patientColumns

	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}

	var p model.Patient
	err := r.db.GetContext(ctx, &p, query,
		patient.ID,
		nullable(patient.FullName),
		patient.Email,
		nullable(patient.Phone),
		patient.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert patient: %w", err)
	}
	return &p, nil
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE 1=1`
	args := []interface{}{}

	if filters != nil && filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		query += fmt.Sprintf(" AND (email ILIKE $%d OR full_name ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY created_at DESC"
	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filters.Limit)
	}

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// ListWithRecordStats returns the clinician-facing roster: every patient with
// their record count and most recent record date.
func (r *patientRepository) ListWithRecordStats(ctx context.Context) ([]*model.DoctorPatient, error) {
	query := `
		SELECT p.id, COALESCE(p.full_name, '') AS full_name, p.email,
			   COALESCE(p.phone, '') AS phone, p.created_at,
			   COUNT(cr.id) AS records_count,
			   MAX(cr.created_at) AS latest_record_date
		FROM patients p
		LEFT JOIN clinical_records cr ON cr.patient_id = p.id
		GROUP BY p.id
		ORDER BY p.full_name ASC
	`
	var patients []*model.DoctorPatient
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list patients with record stats: %w", err)
	}
	return patients, nil
}
