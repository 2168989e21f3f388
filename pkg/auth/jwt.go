package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/internal/model"
)

// Claims carried in the access token. The middleware turns these back into a
// model.Actor.
type Claims struct {
	Email                 string     `json:"email"`
	Role                  model.Role `json:"role"`
	IsMedicalProfessional bool       `json:"is_medical_professional"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

func NewJWTService(secret string, expiry time.Duration, issuer string) *JWTService {
	if expiry <= 0 {
		expiry = 12 * time.Hour
	}
	return &JWTService{secret: []byte(secret), expiry: expiry, issuer: issuer}
}

// GenerateAccessToken signs a token for a doctor account.
func (s *JWTService) GenerateAccessToken(doctor *model.Doctor) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:                 doctor.Email,
		Role:                  doctor.Role,
		IsMedicalProfessional: doctor.IsMedicalProfessional,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   doctor.ID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies a bearer token, returning the actor it
// represents.
func (s *JWTService) ValidateToken(tokenString string) (*model.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}

	return &model.Actor{
		ID:                    id,
		Email:                 claims.Email,
		Role:                  claims.Role,
		IsMedicalProfessional: claims.IsMedicalProfessional,
	}, nil
}
