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

type consultationRepository struct {
	BaseRepository
	loc *time.Location
}

// NewConsultationRepository creates a consultation repository. loc is the
// clinic timezone used for calendar-day filtering.
func NewConsultationRepository(db *sqlx.DB, loc *time.Location) *consultationRepository {
	return &consultationRepository{BaseRepository: NewBaseRepository(db), loc: loc}
}

const consultationColumns = `
	id, patient_id, doctor_id, consultation_type, specialty,
	COALESCE(reason_for_visit, '') AS reason_for_visit,
	COALESCE(notes, '') AS notes,
	scheduled_at, duration_minutes, status,
	COALESCE(jitsi_room_name, '') AS jitsi_room_name,
	COALESCE(jitsi_room_url, '') AS jitsi_room_url,
	created_at, updated_at, started_at, ended_at
`

func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	return r.createWith(ctx, r.db, c)
}

func (r *consultationRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, c *model.Consultation) error {
	return r.createWith(ctx, tx, c)
}

func (r *consultationRepository) createWith(ctx context.Context, q sqlx.ExtContext, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (
			id, patient_id, doctor_id, consultation_type, specialty,
			reason_for_visit, notes, scheduled_at, duration_minutes, status,
			jitsi_room_name, jitsi_room_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := q.ExecContext(ctx, query,
		c.ID,
		c.PatientID,
		c.DoctorID,
		c.ConsultationType,
		c.Specialty,
		c.ReasonForVisit,
		c.Notes,
		c.ScheduledAt,
		c.DurationMinutes,
		c.Status,
		nullable(c.JitsiRoomName),
		nullable(c.JitsiRoomURL),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", err)
	}
	return nil
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`

	var c model.Consultation
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, notFoundOr(err, "consultation")
	}
	return &c, nil
}

// Update applies every mutable field under an optimistic concurrency check on
// updated_at. Zero rows affected means the row changed since it was read.
func (r *consultationRepository) Update(ctx context.Context, c *model.Consultation, expectedVersion time.Time) error {
	return r.updateWith(ctx, r.db, c, expectedVersion)
}

func (r *consultationRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, c *model.Consultation, expectedVersion time.Time) error {
	return r.updateWith(ctx, tx, c, expectedVersion)
}

func (r *consultationRepository) updateWith(ctx context.Context, q sqlx.ExtContext, c *model.Consultation, expectedVersion time.Time) error {
	query := `
		UPDATE consultations
		SET doctor_id = $1, specialty = $2, reason_for_visit = $3, notes = $4,
			scheduled_at = $5, duration_minutes = $6, status = $7,
			jitsi_room_name = $8, jitsi_room_url = $9,
			started_at = $10, ended_at = $11, updated_at = $12
		WHERE id = $13 AND updated_at = $14
	`
	c.UpdatedAt = time.Now().UTC()

	result, err := q.ExecContext(ctx, query,
		c.DoctorID,
		c.Specialty,
		c.ReasonForVisit,
		c.Notes,
		c.ScheduledAt,
		c.DurationMinutes,
		c.Status,
		nullable(c.JitsiRoomName),
		nullable(c.JitsiRoomURL),
		c.StartedAt,
		c.EndedAt,
		c.UpdatedAt,
		c.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.VersionMismatch("consultation")
	}
	return nil
}

func (r *consultationRepository) List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE 1=1`
	args := []interface{}{}

	query, args = r.applyFilters(query, args, filters)
	query += " ORDER BY scheduled_at ASC"
	if filters != nil && filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filters.Limit)
	}

	var consultations []*model.Consultation
	if err := r.db.SelectContext(ctx, &consultations, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, nil
}

func (r *consultationRepository) ListWithPatients(ctx context.Context, filters *model.ConsultationFilters) ([]*model.ConsultationWithPatient, error) {
	consultations, err := r.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(consultations) == 0 {
		return []*model.ConsultationWithPatient{}, nil
	}

	ids := make([]uuid.UUID, 0, len(consultations))
	for _, c := range consultations {
		ids = append(ids, c.PatientID)
	}

	query, args, err := sqlx.In(
		`SELECT id, COALESCE(full_name, '') AS full_name, email,
			COALESCE(phone, '') AS phone, created_at
		 FROM patients WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build patient query: %w", err)
	}
	query = r.db.Rebind(query)

	var patients []model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}

	byID := make(map[uuid.UUID]*model.Patient, len(patients))
	for i := range patients {
		byID[patients[i].ID] = &patients[i]
	}

	result := make([]*model.ConsultationWithPatient, 0, len(consultations))
	for _, c := range consultations {
		result = append(result, &model.ConsultationWithPatient{
			Consultation: *c,
			Patient:      byID[c.PatientID],
		})
	}
	return result, nil
}

// applyFilters appends WHERE clauses for the optional filters. The day filter
// compares against the clinic-timezone day boundaries converted to UTC, so a
// 23:50 local consultation lands on the right calendar date.
func (r *consultationRepository) applyFilters(query string, args []interface{}, filters *model.ConsultationFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	if filters.DoctorID != uuid.Nil {
		args = append(args, filters.DoctorID)
		query += fmt.Sprintf(" AND doctor_id = $%d", len(args))
	}
	if filters.PatientID != uuid.Nil {
		args = append(args, filters.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.Day != "" {
		if dayStart, err := time.ParseInLocation("2006-01-02", filters.Day, r.loc); err == nil {
			dayEnd := dayStart.AddDate(0, 0, 1)
			args = append(args, dayStart.UTC())
			query += fmt.Sprintf(" AND scheduled_at >= $%d", len(args))
			args = append(args, dayEnd.UTC())
			query += fmt.Sprintf(" AND scheduled_at < $%d", len(args))
		}
	}
	return query, args
}

func (r *consultationRepository) HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	return r.overlapWith(ctx, r.db, doctorID, start, end, excludeID)
}

func (r *consultationRepository) HasOverlapTx(ctx context.Context, tx *sqlx.Tx, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	return r.overlapWith(ctx, tx, doctorID, start, end, excludeID)
}

func (r *consultationRepository) overlapWith(ctx context.Context, q sqlx.ExtContext, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE doctor_id = $1
			AND status != 'cancelled'
			AND scheduled_at < $3
			AND scheduled_at + (duration_minutes * interval '1 minute') > $2
	`
	args := []interface{}{doctorID, start, end}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}
	query += ")"

	var hasOverlap bool
	if err := sqlx.GetContext(ctx, q, &hasOverlap, query, args...); err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return hasOverlap, nil
}

// WithDoctorLock serializes booking writes per doctor with a transactional
// advisory lock keyed on the doctor id. Released automatically at commit or
// rollback.
func (r *consultationRepository) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(tx *sqlx.Tx) error) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, doctorID); err != nil {
			return fmt.Errorf("failed to acquire doctor lock: %w", err)
		}
		return fn(tx)
	})
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
