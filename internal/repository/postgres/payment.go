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

type paymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{BaseRepository: NewBaseRepository(db)}
}

const paymentColumns = `
	id, consultation_id, amount, currency, status,
	COALESCE(stripe_payment_intent_id, '') AS stripe_payment_intent_id,
	COALESCE(stripe_session_id, '') AS stripe_session_id,
	COALESCE(stripe_customer_id, '') AS stripe_customer_id,
	COALESCE(refund_amount, 0) AS refund_amount,
	COALESCE(stripe_refund_id, '') AS stripe_refund_id,
	created_at, updated_at, completed_at
`

func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, consultation_id, amount, currency, status,
			stripe_payment_intent_id, stripe_session_id, stripe_customer_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now().UTC()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.ConsultationID,
		p.Amount,
		p.Currency,
		p.Status,
		nullable(p.StripePaymentIntentID),
		nullable(p.StripeSessionID),
		nullable(p.StripeCustomerID),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var p model.Payment
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, notFoundOr(err, "payment")
	}
	return &p, nil
}

func (r *paymentRepository) GetByConsultation(ctx context.Context, consultationID uuid.UUID) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE consultation_id = $1 ORDER BY created_at DESC LIMIT 1`

	var p model.Payment
	if err := r.db.GetContext(ctx, &p, query, consultationID); err != nil {
		return nil, notFoundOr(err, "payment")
	}
	return &p, nil
}

func (r *paymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE stripe_session_id = $1`

	var p model.Payment
	if err := r.db.GetContext(ctx, &p, query, sessionID); err != nil {
		return nil, notFoundOr(err, "payment")
	}
	return &p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *model.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, stripe_payment_intent_id = $2, stripe_session_id = $3,
			stripe_customer_id = $4, refund_amount = $5, stripe_refund_id = $6,
			completed_at = $7, updated_at = $8
		WHERE id = $9
	`
	p.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		p.Status,
		nullable(p.StripePaymentIntentID),
		nullable(p.StripeSessionID),
		nullable(p.StripeCustomerID),
		p.RefundAmount,
		nullable(p.StripeRefundID),
		p.CompletedAt,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("payment")
	}
	return nil
}

// ListForDoctor joins payments with consultation and patient context for the
// doctor's financial report.
func (r *paymentRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.PaymentWithPatient, error) {
	query := `
		SELECT py.id, py.consultation_id, py.amount, py.currency, py.status,
			   COALESCE(py.stripe_payment_intent_id, '') AS stripe_payment_intent_id,
			   COALESCE(py.stripe_session_id, '') AS stripe_session_id,
			   COALESCE(py.stripe_customer_id, '') AS stripe_customer_id,
			   COALESCE(py.refund_amount, 0) AS refund_amount,
			   COALESCE(py.stripe_refund_id, '') AS stripe_refund_id,
			   py.created_at, py.updated_at, py.completed_at,
			   COALESCE(p.full_name, p.email) AS patient_name,
			   c.specialty, c.scheduled_at
		FROM payments py
		JOIN consultations c ON c.id = py.consultation_id
		JOIN patients p ON p.id = c.patient_id
		WHERE c.doctor_id = $1
		ORDER BY py.created_at DESC
	`
	var payments []*model.PaymentWithPatient
	if err := r.db.SelectContext(ctx, &payments, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
