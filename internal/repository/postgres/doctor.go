package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teleclinic/consult-api/internal/model"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(db *sqlx.DB) *doctorRepository {
	return &doctorRepository{BaseRepository: NewBaseRepository(db)}
}

const doctorColumns = `
	id, email, full_name, COALESCE(specialty, '') AS specialty,
	COALESCE(license_number, '') AS license_number, role, password_hash,
	is_active, is_medical_professional, created_at, updated_at, last_login_at
`

func (r *doctorRepository) Create(ctx context.Context, d *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, email, full_name, specialty, license_number, role,
			password_hash, is_active, is_medical_professional,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now().UTC()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.Email,
		d.FullName,
		nullable(d.Specialty),
		nullable(d.LicenseNumber),
		d.Role,
		d.PasswordHash,
		d.IsActive,
		d.IsMedicalProfessional,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`

	var d model.Doctor
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		return nil, notFoundOr(err, "doctor")
	}
	return &d, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE email = $1`

	var d model.Doctor
	if err := r.db.GetContext(ctx, &d, query, email); err != nil {
		return nil, notFoundOr(err, "doctor")
	}
	return &d, nil
}

func (r *doctorRepository) Update(ctx context.Context, d *model.Doctor) error {
	query := `
		UPDATE doctors
		SET full_name = $1, specialty = $2, role = $3, is_active = $4,
			password_hash = $5, last_login_at = $6, updated_at = $7
		WHERE id = $8
	`
	d.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		d.FullName,
		nullable(d.Specialty),
		d.Role,
		d.IsActive,
		d.PasswordHash,
		d.LastLoginAt,
		d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("doctor")
	}
	return nil
}

func (r *doctorRepository) ListActiveProfessionals(ctx context.Context) ([]*model.Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `
		FROM doctors
		WHERE is_active = true AND is_medical_professional = true
		ORDER BY full_name ASC
	`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list active professionals: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) ListProfessionals(ctx context.Context) ([]*model.Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `
		FROM doctors
		WHERE is_medical_professional = true
		ORDER BY full_name ASC
	`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list professionals: %w", err)
	}
	return doctors, nil
}
