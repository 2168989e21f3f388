package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment mirrors the external processor's view of a consultation fee. The
// core records and reports it; status is only ever updated from processor
// events, never computed locally.
type Payment struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	ConsultationID uuid.UUID     `db:"consultation_id" json:"consultation_id"`
	Amount         float64       `db:"amount" json:"amount"`
	Currency       string        `db:"currency" json:"currency"`
	Status         PaymentStatus `db:"status" json:"status"`

	StripePaymentIntentID string `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	StripeSessionID       string `db:"stripe_session_id" json:"stripe_session_id,omitempty"`
	StripeCustomerID      string `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`

	RefundAmount   float64 `db:"refund_amount" json:"refund_amount,omitempty"`
	StripeRefundID string  `db:"stripe_refund_id" json:"stripe_refund_id,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

type CheckoutSessionRequest struct {
	ConsultationID uuid.UUID `json:"consultation_id" binding:"required"`
	SuccessURL     string    `json:"success_url" binding:"required,url"`
	CancelURL      string    `json:"cancel_url" binding:"required,url"`
}

type CheckoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// PaymentWithPatient joins a payment with its consultation context for the
// doctor's financial report.
type PaymentWithPatient struct {
	Payment
	PatientName string    `db:"patient_name" json:"patient_name"`
	Specialty   string    `db:"specialty" json:"specialty"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
}
