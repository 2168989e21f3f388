package doctor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/logger"
	"github.com/teleclinic/consult-api/pkg/security"
)

const publicDirectoryCacheKey = "public_doctors"

// Service covers the doctor directory and operations-staff management of
// medical professional accounts.
type Service struct {
	doctors repository.DoctorRepository
	hasher  security.PasswordHasher
	cache   *gocache.Cache
	logger  *logger.Logger
}

func NewService(doctors repository.DoctorRepository, hasher security.PasswordHasher, l *logger.Logger) *Service {
	return &Service{
		doctors: doctors,
		hasher:  hasher,
		cache:   gocache.New(2*time.Minute, 5*time.Minute),
		logger:  l,
	}
}

// PublicDirectory lists active medical professionals for the unauthenticated
// booking page. Cached briefly; activation toggles show up within minutes.
func (s *Service) PublicDirectory(ctx context.Context) ([]model.PublicDoctor, error) {
	if cached, ok := s.cache.Get(publicDirectoryCacheKey); ok {
		return cached.([]model.PublicDoctor), nil
	}

	doctors, err := s.doctors.ListActiveProfessionals(ctx)
	if err != nil {
		return nil, err
	}

	directory := make([]model.PublicDoctor, 0, len(doctors))
	for _, d := range doctors {
		directory = append(directory, d.Public())
	}
	s.cache.SetDefault(publicDirectoryCacheKey, directory)
	return directory, nil
}

// List returns all medical professionals for the operations screen.
func (s *Service) List(ctx context.Context, actor model.Actor) ([]*model.Doctor, error) {
	if !actor.CanManageDoctors() {
		return nil, apperrors.Forbidden("role cannot manage medical professionals")
	}
	return s.doctors.ListProfessionals(ctx)
}

// Create provisions a medical professional account with a generated
// temporary password, returned once for out-of-band delivery.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateDoctorRequest) (*model.Doctor, string, error) {
	if !actor.CanManageDoctors() {
		return nil, "", apperrors.Forbidden("role cannot manage medical professionals")
	}
	if !req.Role.Valid() {
		return nil, "", apperrors.Validationf("unknown role %q", req.Role)
	}

	tempPassword, err := security.GenerateTemporaryPassword()
	if err != nil {
		return nil, "", apperrors.Internal(err)
	}
	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		return nil, "", apperrors.Internal(err)
	}

	d := &model.Doctor{
		Email:                 strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:              strings.TrimSpace(req.FullName),
		Specialty:             strings.TrimSpace(req.Specialty),
		LicenseNumber:         strings.TrimSpace(req.LicenseNumber),
		Role:                  req.Role,
		PasswordHash:          hash,
		IsActive:              true,
		IsMedicalProfessional: true,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, "", err
	}

	s.cache.Delete(publicDirectoryCacheKey)
	s.logger.Info("doctor account created", "doctor_id", d.ID.String(), "role", string(d.Role))
	return d, tempPassword, nil
}

// Update edits a professional's profile or activation state. Specialty edits
// apply to future bookings only: the value already denormalized onto past
// consultations stays as booked.
func (s *Service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	if !actor.CanManageDoctors() {
		return nil, apperrors.Forbidden("role cannot manage medical professionals")
	}

	d, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.IsMedicalProfessional {
		return nil, apperrors.NotFound("doctor")
	}

	if req.FullName != nil {
		d.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Specialty != nil {
		d.Specialty = strings.TrimSpace(*req.Specialty)
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, apperrors.Validationf("unknown role %q", *req.Role)
		}
		d.Role = *req.Role
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}

	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	s.cache.Delete(publicDirectoryCacheKey)
	return d, nil
}
