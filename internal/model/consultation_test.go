package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ConsultationStatus
		allowed  bool
	}{
		{ConsultationStatusPending, ConsultationStatusConfirmed, true},
		{ConsultationStatusPending, ConsultationStatusCancelled, true},
		{ConsultationStatusPending, ConsultationStatusInProgress, false},
		{ConsultationStatusPending, ConsultationStatusCompleted, false},
		{ConsultationStatusConfirmed, ConsultationStatusInProgress, true},
		{ConsultationStatusConfirmed, ConsultationStatusCancelled, true},
		{ConsultationStatusConfirmed, ConsultationStatusCompleted, false},
		{ConsultationStatusInProgress, ConsultationStatusCompleted, true},
		{ConsultationStatusInProgress, ConsultationStatusCancelled, false},
		{ConsultationStatusCompleted, ConsultationStatusCancelled, false},
		{ConsultationStatusCancelled, ConsultationStatusConfirmed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, ConsultationStatusPending.Terminal())
	assert.False(t, ConsultationStatusInProgress.Terminal())
	assert.True(t, ConsultationStatusCompleted.Terminal())
	assert.True(t, ConsultationStatusCancelled.Terminal())
}

func TestOverlapsHalfOpen(t *testing.T) {
	base := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	c := &Consultation{ScheduledAt: base, DurationMinutes: 30}

	assert.True(t, c.Overlaps(base.Add(15*time.Minute), base.Add(45*time.Minute)))
	assert.True(t, c.Overlaps(base.Add(-15*time.Minute), base.Add(15*time.Minute)))
	assert.True(t, c.Overlaps(base.Add(-time.Hour), base.Add(time.Hour)))

	// Back-to-back windows share an instant but do not overlap.
	assert.False(t, c.Overlaps(base.Add(30*time.Minute), base.Add(60*time.Minute)))
	assert.False(t, c.Overlaps(base.Add(-30*time.Minute), base))
}

func TestJoinable(t *testing.T) {
	c := &Consultation{
		ConsultationType: ConsultationTypeVideo,
		Status:           ConsultationStatusConfirmed,
		JitsiRoomURL:     "https://meet.jit.si/Telemed_x",
	}
	assert.True(t, c.Joinable())

	c.Status = ConsultationStatusInProgress
	assert.True(t, c.Joinable())

	c.Status = ConsultationStatusCancelled
	assert.False(t, c.Joinable())

	c.Status = ConsultationStatusConfirmed
	c.JitsiRoomURL = ""
	assert.False(t, c.Joinable())

	c.JitsiRoomURL = "https://meet.jit.si/Telemed_x"
	c.ConsultationType = ConsultationTypePhone
	assert.False(t, c.Joinable())
}
