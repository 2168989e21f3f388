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

type templateRepository struct {
	BaseRepository
}

func NewTemplateRepository(db *sqlx.DB) *templateRepository {
	return &templateRepository{BaseRepository: NewBaseRepository(db)}
}

const templateColumns = `
	id, owner_id, name, COALESCE(description, '') AS description,
	COALESCE(chief_complaint, '') AS chief_complaint,
	COALESCE(background, '') AS background,
	COALESCE(assessment, '') AS assessment,
	COALESCE(plan, '') AS plan,
	COALESCE(allergies, '') AS allergies,
	COALESCE(medications, '') AS medications,
	created_at, updated_at
`

func (r *templateRepository) Create(ctx context.Context, t *model.ClinicalTemplate) error {
	query := `
		INSERT INTO clinical_templates (
			id, owner_id, name, description, chief_complaint, background,
			assessment, plan, allergies, medications, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	now := time.Now().UTC()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.OwnerID,
		t.Name,
		nullable(t.Description),
		nullable(t.ChiefComplaint),
		nullable(t.Background),
		nullable(t.Assessment),
		nullable(t.Plan),
		nullable(t.Allergies),
		nullable(t.Medications),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM clinical_templates WHERE id = $1`

	var t model.ClinicalTemplate
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		return nil, notFoundOr(err, "template")
	}
	return &t, nil
}

func (r *templateRepository) GetByName(ctx context.Context, ownerID uuid.UUID, name string) (*model.ClinicalTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM clinical_templates WHERE owner_id = $1 AND name = $2`

	var t model.ClinicalTemplate
	if err := r.db.GetContext(ctx, &t, query, ownerID, name); err != nil {
		return nil, notFoundOr(err, "template")
	}
	return &t, nil
}

func (r *templateRepository) Update(ctx context.Context, t *model.ClinicalTemplate) error {
	query := `
		UPDATE clinical_templates
		SET name = $1, description = $2, chief_complaint = $3, background = $4,
			assessment = $5, plan = $6, allergies = $7, medications = $8,
			updated_at = $9
		WHERE id = $10
	`
	t.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		t.Name,
		nullable(t.Description),
		nullable(t.ChiefComplaint),
		nullable(t.Background),
		nullable(t.Assessment),
		nullable(t.Plan),
		nullable(t.Allergies),
		nullable(t.Medications),
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("template")
	}
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM clinical_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("template")
	}
	return nil
}

func (r *templateRepository) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.ClinicalTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM clinical_templates
		WHERE owner_id = $1
		ORDER BY name ASC
	`
	var templates []*model.ClinicalTemplate
	if err := r.db.SelectContext(ctx, &templates, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}
