package auth

import (
	"context"
	"strings"
	"time"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	pkgauth "github.com/teleclinic/consult-api/pkg/auth"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
	"github.com/teleclinic/consult-api/pkg/security"
)

// Service authenticates doctor accounts and issues bearer tokens. Role and
// identity resolution downstream of the token is the auth middleware's job;
// everything else in the core consumes the resolved actor as a given fact.
type Service struct {
	doctors repository.DoctorRepository
	hasher  security.PasswordHasher
	jwt     *pkgauth.JWTService
}

func NewService(doctors repository.DoctorRepository, hasher security.PasswordHasher, jwt *pkgauth.JWTService) *Service {
	return &Service{doctors: doctors, hasher: hasher, jwt: jwt}
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	Doctor      *model.Doctor `json:"doctor"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	doctor, err := s.doctors.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if !doctor.IsActive {
		return nil, apperrors.Unauthorized(nil)
	}
	if err := s.hasher.Compare(doctor.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	token, err := s.jwt.GenerateAccessToken(doctor)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now().UTC()
	doctor.LastLoginAt = &now
	if err := s.doctors.Update(ctx, doctor); err != nil {
		// Login still succeeds if the timestamp write fails.
		_ = err
	}

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Doctor:      doctor,
	}, nil
}

// ValidateToken resolves a bearer token into an actor.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.Actor, error) {
	actor, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return actor, nil
}
