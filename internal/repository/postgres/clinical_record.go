package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teleclinic/consult-api/internal/model"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

type clinicalRecordRepository struct {
	BaseRepository
}

func NewClinicalRecordRepository(db *sqlx.DB) *clinicalRecordRepository {
	return &clinicalRecordRepository{BaseRepository: NewBaseRepository(db)}
}

const recordColumns = `
	id, patient_id, author_id,
	COALESCE(chief_complaint, '') AS chief_complaint,
	COALESCE(background, '') AS background,
	COALESCE(assessment, '') AS assessment,
	COALESCE(plan, '') AS plan,
	COALESCE(allergies, '') AS allergies,
	COALESCE(medications, '') AS medications,
	created_at, updated_at
`

func (r *clinicalRecordRepository) Create(ctx context.Context, record *model.ClinicalRecord) error {
	query := `
		INSERT INTO clinical_records (
			id, patient_id, author_id, chief_complaint, background,
			assessment, plan, allergies, medications, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now().UTC()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.PatientID,
		record.AuthorID,
		nullable(record.ChiefComplaint),
		nullable(record.Background),
		nullable(record.Assessment),
		nullable(record.Plan),
		nullable(record.Allergies),
		nullable(record.Medications),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinical record: %w", err)
	}
	return nil
}

func (r *clinicalRecordRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM clinical_records WHERE id = $1`

	var record model.ClinicalRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, notFoundOr(err, "clinical record")
	}
	return &record, nil
}

func (r *clinicalRecordRepository) Update(ctx context.Context, record *model.ClinicalRecord) error {
	query := `
		UPDATE clinical_records
		SET chief_complaint = $1, background = $2, assessment = $3,
			plan = $4, allergies = $5, medications = $6, updated_at = $7
		WHERE id = $8
	`
	record.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		nullable(record.ChiefComplaint),
		nullable(record.Background),
		nullable(record.Assessment),
		nullable(record.Plan),
		nullable(record.Allergies),
		nullable(record.Medications),
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinical record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("clinical record")
	}
	return nil
}

func (r *clinicalRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clinical_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clinical record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("clinical record")
	}
	return nil
}

func (r *clinicalRecordRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ClinicalRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM clinical_records
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var records []*model.ClinicalRecord
	if err := r.db.SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list clinical records: %w", err)
	}
	return records, nil
}

// Search runs the free-text filter server-side across all six clinical
// fields, case-insensitive substring.
func (r *clinicalRecordRepository) Search(ctx context.Context, patientID uuid.UUID, searchQuery string) ([]*model.ClinicalRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM clinical_records
		WHERE patient_id = $1
		AND (
			chief_complaint ILIKE $2 OR background ILIKE $2
			OR assessment ILIKE $2 OR plan ILIKE $2
			OR allergies ILIKE $2 OR medications ILIKE $2
		)
		ORDER BY created_at DESC
	`
	var records []*model.ClinicalRecord
	if err := r.db.SelectContext(ctx, &records, query, patientID, "%"+escapeLike(searchQuery)+"%"); err != nil {
		return nil, fmt.Errorf("failed to search clinical records: %w", err)
	}
	return records, nil
}

// escapeLike neutralizes LIKE metacharacters so "100%" matches the literal
// text and not everything.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
