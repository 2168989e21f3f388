// Package notification turns consultation lifecycle events into emails.
// It runs out of the request path, fed by the message broker, so a slow
// or down SMTP server never delays a booking.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/teleclinic/consult-api/internal/email"
	"github.com/teleclinic/consult-api/internal/event"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/messaging"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

type Service struct {
	broker  messaging.Broker
	mailer  email.Mailer
	metrics *metrics.Metrics
	logger  *logger.Logger
	clinic  string
}

func NewService(broker messaging.Broker, mailer email.Mailer, m *metrics.Metrics, l *logger.Logger, clinicName string) *Service {
	if clinicName == "" {
		clinicName = "Teleclinic"
	}
	return &Service{broker: broker, mailer: mailer, metrics: m, logger: l, clinic: clinicName}
}

// Run consumes consultation events until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	msgs, err := s.broker.Subscribe(ctx, event.ChannelConsultations)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", event.ChannelConsultations, err)
	}

	s.logger.Info("notification worker started", "channel", event.ChannelConsultations)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			s.handle(ctx, payload)
		}
	}
}

func (s *Service) handle(ctx context.Context, payload []byte) {
	var evt event.ConsultationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		s.logger.Error(err, "discarding malformed event")
		return
	}

	var err error
	switch evt.Type {
	case event.TypeBooked:
		err = s.sendBookingConfirmation(ctx, &evt)
	case event.TypeStatusChanged:
		err = s.sendStatusUpdate(ctx, &evt)
	default:
		s.logger.Debug("ignoring unknown event type", "type", evt.Type)
		return
	}
	if err != nil {
		s.logger.Error(err, "notification send failed",
			"type", evt.Type, "consultation_id", evt.ConsultationID.String())
		s.metrics.NotificationsSent.WithLabelValues(evt.Type, "failed").Inc()
		return
	}
	s.metrics.NotificationsSent.WithLabelValues(evt.Type, "sent").Inc()
}

func (s *Service) sendBookingConfirmation(ctx context.Context, evt *event.ConsultationEvent) error {
	if evt.PatientEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("%s: your consultation is booked", s.clinic)
	body := fmt.Sprintf(
		`<p>Hello %s,</p>
<p>Your video consultation with %s is booked for <b>%s</b>.</p>
<p>Join link: <a href="%s">%s</a></p>
<p>%s</p>`,
		html.EscapeString(evt.PatientName),
		html.EscapeString(evt.DoctorName),
		evt.ScheduledAt.Format("Monday, 2 January 2006 at 15:04 MST"),
		evt.RoomURL, evt.RoomURL,
		html.EscapeString(s.clinic),
	)
	if err := s.mailer.Send(ctx, evt.PatientEmail, subject, body); err != nil {
		return err
	}

	if evt.DoctorEmail != "" {
		subject := fmt.Sprintf("%s: new booking for %s", s.clinic, evt.ScheduledAt.Format("2 Jan 15:04"))
		body := fmt.Sprintf(
			`<p>A new video consultation with %s was booked for %s.</p>`,
			html.EscapeString(evt.PatientName),
			evt.ScheduledAt.Format("Monday, 2 January 2006 at 15:04 MST"),
		)
		if err := s.mailer.Send(ctx, evt.DoctorEmail, subject, body); err != nil {
			s.logger.Error(err, "doctor booking notice failed", "consultation_id", evt.ConsultationID.String())
		}
	}
	return nil
}

func (s *Service) sendStatusUpdate(ctx context.Context, evt *event.ConsultationEvent) error {
	if evt.PatientEmail == "" {
		return nil
	}

	var subject, line string
	switch evt.To {
	case model.ConsultationStatusConfirmed:
		subject = fmt.Sprintf("%s: consultation confirmed", s.clinic)
		line = fmt.Sprintf("Your consultation on %s is confirmed.", evt.ScheduledAt.Format("Monday, 2 January 2006 at 15:04 MST"))
	case model.ConsultationStatusCancelled:
		subject = fmt.Sprintf("%s: consultation cancelled", s.clinic)
		line = fmt.Sprintf("Your consultation on %s has been cancelled.", evt.ScheduledAt.Format("Monday, 2 January 2006 at 15:04 MST"))
	default:
		// In-progress and completed transitions are internal bookkeeping.
		return nil
	}

	body := fmt.Sprintf(`<p>Hello %s,</p><p>%s</p><p>%s</p>`,
		html.EscapeString(evt.PatientName), line, html.EscapeString(s.clinic))

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.mailer.Send(sendCtx, evt.PatientEmail, subject, body)
}
