package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
)

// Service records the external processor's view of consultation fees. Status
// only ever moves on processor events; nothing here computes payment state.
type Service struct {
	payments      repository.PaymentRepository
	consultations repository.ConsultationRepository
	patients      repository.PatientRepository
	processor     Processor
	webhookSecret string
	defaultFee    float64
	currency      string
	logger        *logger.Logger
}

func NewService(
	payments repository.PaymentRepository,
	consultations repository.ConsultationRepository,
	patients repository.PatientRepository,
	processor Processor,
	webhookSecret string,
	defaultFee float64,
	currency string,
	l *logger.Logger,
) *Service {
	if currency == "" {
		currency = "EUR"
	}
	return &Service{
		payments:      payments,
		consultations: consultations,
		patients:      patients,
		processor:     processor,
		webhookSecret: webhookSecret,
		defaultFee:    defaultFee,
		currency:      currency,
		logger:        l,
	}
}

// CreateCheckoutSession opens a hosted checkout for a consultation, creating
// the pending payment record on first use and reusing it on retries.
func (s *Service) CreateCheckoutSession(ctx context.Context, req *model.CheckoutSessionRequest) (*model.CheckoutSessionResponse, error) {
	consultation, err := s.consultations.Get(ctx, req.ConsultationID)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.GetByConsultation(ctx, consultation.ID)
	if err != nil {
		if apperrors.CodeOf(err) != apperrors.ErrNotFound {
			return nil, err
		}
		payment = &model.Payment{
			ConsultationID: consultation.ID,
			Amount:         s.defaultFee,
			Currency:       s.currency,
			Status:         model.PaymentStatusPending,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return nil, err
		}
	}

	patient, err := s.patients.Get(ctx, consultation.PatientID)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Video consultation - %s", consultation.Specialty)
	session, err := s.processor.CreateCheckoutSession(ctx, payment, description, patient.Email, req.SuccessURL, req.CancelURL)
	if err != nil {
		return nil, apperrors.Upstream("payment processor", err)
	}

	payment.StripeSessionID = session.ID
	if err := s.payments.Update(ctx, payment); err != nil {
		return nil, err
	}

	return &model.CheckoutSessionResponse{
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// WebhookEvent is the processor's status notification payload.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		SessionID       string  `json:"session_id"`
		PaymentIntentID string  `json:"payment_intent_id"`
		RefundID        string  `json:"refund_id"`
		RefundAmount    float64 `json:"refund_amount"`
	} `json:"data"`
}

var statusByEventType = map[string]model.PaymentStatus{
	"checkout.session.completed":    model.PaymentStatusCompleted,
	"payment_intent.processing":     model.PaymentStatusProcessing,
	"payment_intent.payment_failed": model.PaymentStatusFailed,
	"charge.refunded":               model.PaymentStatusRefunded,
}

// HandleWebhook verifies the event signature and applies the processor's
// status to the matching payment.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if signature == "" {
		return apperrors.Validation("missing webhook signature")
	}
	if !s.verifySignature(body, signature) {
		return apperrors.Forbidden("invalid webhook signature")
	}

	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return apperrors.Validation("malformed webhook payload")
	}

	status, ok := statusByEventType[evt.Type]
	if !ok {
		// Unknown event types are acknowledged and ignored.
		s.logger.Debug("ignoring webhook event", "type", evt.Type)
		return nil
	}

	payment, err := s.payments.GetBySessionID(ctx, evt.Data.SessionID)
	if err != nil {
		return err
	}

	payment.Status = status
	if evt.Data.PaymentIntentID != "" {
		payment.StripePaymentIntentID = evt.Data.PaymentIntentID
	}
	if status == model.PaymentStatusCompleted {
		now := time.Now().UTC()
		payment.CompletedAt = &now
	}
	if status == model.PaymentStatusRefunded {
		payment.StripeRefundID = evt.Data.RefundID
		payment.RefundAmount = evt.Data.RefundAmount
	}

	if err := s.payments.Update(ctx, payment); err != nil {
		return err
	}
	s.logger.Info("payment status updated", "payment_id", payment.ID.String(),
		"status", string(status))
	return nil
}

func (s *Service) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ListForDoctor is the doctor's financial report: payments joined with
// consultation and patient context.
func (s *Service) ListForDoctor(ctx context.Context, actor model.Actor, doctorID uuid.UUID) ([]*model.PaymentWithPatient, error) {
	if actor.ID != doctorID && !actor.CanManageConsultations() {
		return nil, apperrors.Forbidden("not authorized to view these payments")
	}
	return s.payments.ListForDoctor(ctx, doctorID)
}

// GetForConsultation exposes payment linkage for a single consultation.
func (s *Service) GetForConsultation(ctx context.Context, consultationID uuid.UUID) (*model.Payment, error) {
	return s.payments.GetByConsultation(ctx, consultationID)
}
