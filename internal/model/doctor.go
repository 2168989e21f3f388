package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSpecialist     Role = "specialist"
	RoleMedicalAdmin   Role = "medical_admin"
	RoleReception      Role = "reception"
	RoleAdministration Role = "administration"
	RoleITAdmin        Role = "it_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSpecialist, RoleMedicalAdmin, RoleReception, RoleAdministration, RoleITAdmin:
		return true
	}
	return false
}

// Doctor is a medical professional account. Specialty is denormalized onto
// consultations at booking time, so later edits here never rewrite history.
type Doctor struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Email                 string     `db:"email" json:"email"`
	FullName              string     `db:"full_name" json:"full_name"`
	Specialty             string     `db:"specialty" json:"specialty,omitempty"`
	LicenseNumber         string     `db:"license_number" json:"license_number,omitempty"`
	Role                  Role       `db:"role" json:"role"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	IsActive              bool       `db:"is_active" json:"is_active"`
	IsMedicalProfessional bool       `db:"is_medical_professional" json:"is_medical_professional"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
	LastLoginAt           *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

// PublicDoctor is the subset exposed on the unauthenticated booking page.
type PublicDoctor struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Specialty string    `json:"specialty,omitempty"`
}

func (d *Doctor) Public() PublicDoctor {
	return PublicDoctor{ID: d.ID, FullName: d.FullName, Specialty: d.Specialty}
}

type CreateDoctorRequest struct {
	Email         string `json:"email" binding:"required,email"`
	FullName      string `json:"full_name" binding:"required"`
	Specialty     string `json:"specialty"`
	LicenseNumber string `json:"license_number"`
	Role          Role   `json:"role" binding:"required"`
}

type UpdateDoctorRequest struct {
	FullName  *string `json:"full_name"`
	Specialty *string `json:"specialty"`
	Role      *Role   `json:"role"`
	IsActive  *bool   `json:"is_active"`
}
