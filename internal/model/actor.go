package model

import "github.com/google/uuid"

// Actor is the authenticated caller's identity and role, resolved by the auth
// middleware and passed explicitly into services. The core never holds session
// state.
type Actor struct {
	ID                    uuid.UUID
	Email                 string
	Role                  Role
	IsMedicalProfessional bool
}

// CanAccessClinicalData gates clinical records, templates and the doctor
// consultation views.
func (a Actor) CanAccessClinicalData() bool {
	switch a.Role {
	case RoleSpecialist, RoleMedicalAdmin, RoleITAdmin:
		return true
	}
	return a.IsMedicalProfessional
}

// CanBookInternal gates the staff booking path.
func (a Actor) CanBookInternal() bool {
	switch a.Role {
	case RoleSpecialist, RoleMedicalAdmin, RoleReception, RoleAdministration:
		return true
	}
	return false
}

// CanManageConsultations gates the front-desk/admin consultation screens.
func (a Actor) CanManageConsultations() bool {
	switch a.Role {
	case RoleMedicalAdmin, RoleAdministration, RoleReception, RoleITAdmin:
		return true
	}
	return false
}

// CanManageDoctors gates operations-staff management of medical professionals.
func (a Actor) CanManageDoctors() bool {
	return a.Role == RoleITAdmin
}
