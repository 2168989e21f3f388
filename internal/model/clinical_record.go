package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClinicalRecord is a dated note in a patient's history. Records are appended,
// never merged; update and delete are explicit authorial actions.
type ClinicalRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`

	ChiefComplaint string `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Background     string `db:"background" json:"background,omitempty"`
	Assessment     string `db:"assessment" json:"assessment,omitempty"`
	Plan           string `db:"plan" json:"plan,omitempty"`
	Allergies      string `db:"allergies" json:"allergies,omitempty"`
	Medications    string `db:"medications" json:"medications,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Empty reports whether every clinical field is blank after trimming.
func (r *ClinicalRecord) Empty() bool {
	for _, f := range []string{
		r.ChiefComplaint, r.Background, r.Assessment,
		r.Plan, r.Allergies, r.Medications,
	} {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Matches reports whether any clinical field contains the query,
// case-insensitive.
func (r *ClinicalRecord) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range []string{
		r.ChiefComplaint, r.Background, r.Assessment,
		r.Plan, r.Allergies, r.Medications,
	} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

type CreateRecordRequest struct {
	ChiefComplaint string `json:"chief_complaint"`
	Background     string `json:"background"`
	Assessment     string `json:"assessment"`
	Plan           string `json:"plan"`
	Allergies      string `json:"allergies"`
	Medications    string `json:"medications"`
}

// UpdateRecordRequest distinguishes omitted fields (nil, preserved) from
// explicit empty strings (cleared).
type UpdateRecordRequest struct {
	ChiefComplaint *string `json:"chief_complaint"`
	Background     *string `json:"background"`
	Assessment     *string `json:"assessment"`
	Plan           *string `json:"plan"`
	Allergies      *string `json:"allergies"`
	Medications    *string `json:"medications"`
}
