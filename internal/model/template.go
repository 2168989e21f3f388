package model

import (
	"time"

	"github.com/google/uuid"
)

// ClinicalTemplate is a clinician-owned preset of clinical record fields.
// Applying one copies values; no link back to the template is kept.
type ClinicalTemplate struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OwnerID     uuid.UUID `db:"owner_id" json:"owner_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`

	ChiefComplaint string `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Background     string `db:"background" json:"background,omitempty"`
	Assessment     string `db:"assessment" json:"assessment,omitempty"`
	Plan           string `db:"plan" json:"plan,omitempty"`
	Allergies      string `db:"allergies" json:"allergies,omitempty"`
	Medications    string `db:"medications" json:"medications,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Apply projects the template's clinical fields for pre-filling a new record.
func (t *ClinicalTemplate) Apply() CreateRecordRequest {
	return CreateRecordRequest{
		ChiefComplaint: t.ChiefComplaint,
		Background:     t.Background,
		Assessment:     t.Assessment,
		Plan:           t.Plan,
		Allergies:      t.Allergies,
		Medications:    t.Medications,
	}
}

type CreateTemplateRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	ChiefComplaint string `json:"chief_complaint"`
	Background     string `json:"background"`
	Assessment     string `json:"assessment"`
	Plan           string `json:"plan"`
	Allergies      string `json:"allergies"`
	Medications    string `json:"medications"`
}

type UpdateTemplateRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	ChiefComplaint *string `json:"chief_complaint"`
	Background     *string `json:"background"`
	Assessment     *string `json:"assessment"`
	Plan           *string `json:"plan"`
	Allergies      *string `json:"allergies"`
	Medications    *string `json:"medications"`
}
