package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name,omitempty"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PatientFilters struct {
	// Search matches email or full name, case-insensitive substring.
	Search string
	Limit  int
}

// DoctorPatient is the roster entry shown to clinicians: patient identity plus
// a summary of their clinical history.
type DoctorPatient struct {
	Patient
	RecordsCount     int        `db:"records_count" json:"records_count"`
	LatestRecordDate *time.Time `db:"latest_record_date" json:"latest_record_date,omitempty"`
}
