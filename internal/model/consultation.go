package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusPending    ConsultationStatus = "pending"
	ConsultationStatusConfirmed  ConsultationStatus = "confirmed"
	ConsultationStatusInProgress ConsultationStatus = "in_progress"
	ConsultationStatusCompleted  ConsultationStatus = "completed"
	ConsultationStatusCancelled  ConsultationStatus = "cancelled"
)

// statusMeta is the single canonical status table. Every surface (API payloads,
// admin filters, notification templates) reads labels from here instead of
// keeping its own copy.
type statusMeta struct {
	Label    string
	Terminal bool
}

var consultationStatuses = map[ConsultationStatus]statusMeta{
	ConsultationStatusPending:    {Label: "Pending", Terminal: false},
	ConsultationStatusConfirmed:  {Label: "Confirmed", Terminal: false},
	ConsultationStatusInProgress: {Label: "In progress", Terminal: false},
	ConsultationStatusCompleted:  {Label: "Completed", Terminal: true},
	ConsultationStatusCancelled:  {Label: "Cancelled", Terminal: true},
}

// allowedTransitions encodes the consultation state machine. Cancellation is
// only reachable before the encounter starts.
var allowedTransitions = map[ConsultationStatus][]ConsultationStatus{
	ConsultationStatusPending:    {ConsultationStatusConfirmed, ConsultationStatusCancelled},
	ConsultationStatusConfirmed:  {ConsultationStatusInProgress, ConsultationStatusCancelled},
	ConsultationStatusInProgress: {ConsultationStatusCompleted},
}

func (s ConsultationStatus) Valid() bool {
	_, ok := consultationStatuses[s]
	return ok
}

func (s ConsultationStatus) Label() string {
	return consultationStatuses[s].Label
}

func (s ConsultationStatus) Terminal() bool {
	return consultationStatuses[s].Terminal
}

// CanTransitionTo reports whether the state machine permits moving to target.
func (s ConsultationStatus) CanTransitionTo(target ConsultationStatus) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

type ConsultationType string

const (
	ConsultationTypeVideo    ConsultationType = "video"
	ConsultationTypePhone    ConsultationType = "phone"
	ConsultationTypeInPerson ConsultationType = "in_person"
)

func (t ConsultationType) Valid() bool {
	switch t {
	case ConsultationTypeVideo, ConsultationTypePhone, ConsultationTypeInPerson:
		return true
	}
	return false
}

type Consultation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`

	ConsultationType ConsultationType   `db:"consultation_type" json:"consultation_type"`
	Specialty        string             `db:"specialty" json:"specialty"`
	ReasonForVisit   string             `db:"reason_for_visit" json:"reason_for_visit,omitempty"`
	Notes            string             `db:"notes" json:"notes,omitempty"`
	ScheduledAt      time.Time          `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes  int                `db:"duration_minutes" json:"duration_minutes"`
	Status           ConsultationStatus `db:"status" json:"status"`

	JitsiRoomName string `db:"jitsi_room_name" json:"jitsi_room_name,omitempty"`
	JitsiRoomURL  string `db:"jitsi_room_url" json:"jitsi_room_url,omitempty"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	StartedAt *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// End returns the exclusive end of the scheduled window.
func (cs *Consultation) End() time.Time {
	return cs.ScheduledAt.Add(time.Duration(cs.DurationMinutes) * time.Minute)
}

// Overlaps reports whether the scheduled windows of two consultations
// intersect. Windows are half-open, so back-to-back slots do not collide.
func (cs *Consultation) Overlaps(start, end time.Time) bool {
	return cs.ScheduledAt.Before(end) && start.Before(cs.End())
}

// Joinable reports whether the video room should be surfaced to callers.
// Cancelled consultations keep their room reference for audit but are not
// joinable.
func (cs *Consultation) Joinable() bool {
	if cs.ConsultationType != ConsultationTypeVideo || cs.JitsiRoomURL == "" {
		return false
	}
	switch cs.Status {
	case ConsultationStatusConfirmed, ConsultationStatusInProgress:
		return true
	}
	return false
}

type PatientInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone,omitempty"`
}

type PublicBookingRequest struct {
	DoctorID        uuid.UUID   `json:"doctor_id" binding:"required"`
	Patient         PatientInfo `json:"patient" binding:"required"`
	Specialty       string      `json:"specialty" binding:"required"`
	ReasonForVisit  string      `json:"reason_for_visit"`
	ScheduledAt     time.Time   `json:"scheduled_at" binding:"required"`
	DurationMinutes int         `json:"duration_minutes"`
}

type InternalBookingRequest struct {
	DoctorID         uuid.UUID        `json:"doctor_id"`
	PatientID        *uuid.UUID       `json:"patient_id"`
	Patient          *PatientInfo     `json:"patient"`
	ConsultationType ConsultationType `json:"consultation_type" binding:"required,consultation_type"`
	Specialty        string           `json:"specialty" binding:"required"`
	ReasonForVisit   string           `json:"reason_for_visit"`
	ScheduledAt      time.Time        `json:"scheduled_at" binding:"required"`
	DurationMinutes  int              `json:"duration_minutes"`
}

type BookingResponse struct {
	Consultation *Consultation `json:"consultation"`
	JitsiRoomURL string        `json:"jitsi_room_url,omitempty"`
}

type ConsultationUpdateRequest struct {
	DoctorID        *uuid.UUID          `json:"doctor_id"`
	ScheduledAt     *time.Time          `json:"scheduled_at"`
	DurationMinutes *int                `json:"duration_minutes"`
	Status          *ConsultationStatus `json:"status"`
	Notes           *string             `json:"notes"`
}

type ConsultationFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    ConsultationStatus
	// Day filters scheduled_at to a calendar date in the clinic timezone.
	Day   string
	Limit int
}

type ConsultationWithPatient struct {
	Consultation
	Patient *Patient `json:"patient"`
}

type VideoRoomInfo struct {
	RoomName    string             `json:"room_name"`
	RoomURL     string             `json:"room_url"`
	Domain      string             `json:"jitsi_domain"`
	Status      ConsultationStatus `json:"status"`
	ScheduledAt time.Time          `json:"scheduled_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
}
