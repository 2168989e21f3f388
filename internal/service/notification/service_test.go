package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teleclinic/consult-api/internal/event"
	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/metrics"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func setup(mailer *recordingMailer) (*Service, *metrics.Metrics) {
	m := metrics.New("test", prometheus.NewRegistry())
	return NewService(nil, mailer, m, logger.NewLogger(nil), "Teleclinic"), m
}

func bookedEvent(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(&event.ConsultationEvent{
		Type:           event.TypeBooked,
		ConsultationID: uuid.New(),
		PatientEmail:   "jane@example.com",
		PatientName:    "Jane Doe",
		DoctorEmail:    "dr@example.com",
		DoctorName:     "Dr. Example",
		ScheduledAt:    time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC),
		RoomURL:        "https://meet.jit.si/Telemed_x",
	})
	require.NoError(t, err)
	return payload
}

func TestHandleBookingConfirmation(t *testing.T) {
	mailer := &recordingMailer{}
	svc, m := setup(mailer)

	svc.handle(context.Background(), bookedEvent(t))

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "jane@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, "https://meet.jit.si/Telemed_x")
	assert.Equal(t, "dr@example.com", mailer.sent[1].To)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues(event.TypeBooked, "sent")))
}

func TestHandleStatusChange(t *testing.T) {
	mailer := &recordingMailer{}
	svc, m := setup(mailer)

	payload, err := json.Marshal(&event.ConsultationEvent{
		Type:         event.TypeStatusChanged,
		PatientEmail: "jane@example.com",
		PatientName:  "Jane Doe",
		To:           model.ConsultationStatusCancelled,
		ScheduledAt:  time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	svc.handle(context.Background(), payload)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Subject, "cancelled")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues(event.TypeStatusChanged, "sent")))
}

func TestHandleSendFailureCountsFailed(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	svc, m := setup(mailer)

	svc.handle(context.Background(), bookedEvent(t))

	assert.Empty(t, mailer.sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues(event.TypeBooked, "failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues(event.TypeBooked, "sent")))
}

func TestHandleDiscardsMalformedAndUnknown(t *testing.T) {
	mailer := &recordingMailer{}
	svc, _ := setup(mailer)

	svc.handle(context.Background(), []byte("{not json"))
	svc.handle(context.Background(), []byte(`{"type":"consultation.archived"}`))

	assert.Empty(t, mailer.sent)
}
