// Package event defines the lifecycle events the core publishes for
// downstream consumers (notification worker, reporting).
package event

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/pkg/messaging"
)

const (
	ChannelConsultations = "consultations"

	TypeBooked        = "consultation.booked"
	TypeStatusChanged = "consultation.status_changed"
)

type ConsultationEvent struct {
	Type           string                   `json:"type"`
	ConsultationID uuid.UUID                `json:"consultation_id"`
	DoctorID       uuid.UUID                `json:"doctor_id"`
	PatientID      uuid.UUID                `json:"patient_id"`
	PatientEmail   string                   `json:"patient_email,omitempty"`
	PatientName    string                   `json:"patient_name,omitempty"`
	DoctorEmail    string                   `json:"doctor_email,omitempty"`
	DoctorName     string                   `json:"doctor_name,omitempty"`
	From           model.ConsultationStatus `json:"from,omitempty"`
	To             model.ConsultationStatus `json:"to,omitempty"`
	ScheduledAt    time.Time                `json:"scheduled_at"`
	RoomURL        string                   `json:"room_url,omitempty"`
	OccurredAt     time.Time                `json:"occurred_at"`
}

// Publisher emits consultation events. A nil Publisher is valid and drops
// everything, which keeps tests and the worker-less setup simple.
type Publisher struct {
	broker messaging.Broker
}

func NewPublisher(broker messaging.Broker) *Publisher {
	return &Publisher{broker: broker}
}

func (p *Publisher) Publish(ctx context.Context, evt *ConsultationEvent) error {
	if p == nil || p.broker == nil {
		return nil
	}
	evt.OccurredAt = time.Now().UTC()
	return p.broker.Publish(ctx, ChannelConsultations, evt)
}
