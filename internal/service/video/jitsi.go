package video

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const defaultDomain = "meet.jit.si"

// JitsiProvisioner creates rooms on a Jitsi Meet deployment. Room names carry
// the consultation id plus a random suffix so they cannot be guessed from the
// id alone.
type JitsiProvisioner struct {
	domain string
}

func NewJitsiProvisioner(domain string) *JitsiProvisioner {
	if domain == "" {
		domain = defaultDomain
	}
	return &JitsiProvisioner{domain: domain}
}

func (p *JitsiProvisioner) Provision(ctx context.Context, consultationID uuid.UUID) (*Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return nil, fmt.Errorf("failed to generate room suffix: %w", err)
	}

	name := fmt.Sprintf("Telemed_%s_%s", consultationID, hex.EncodeToString(suffix))
	return &Room{
		Name: name,
		URL:  fmt.Sprintf("https://%s/%s", p.domain, name),
	}, nil
}

// Domain returns the configured conferencing domain.
func (p *JitsiProvisioner) Domain() string {
	return p.domain
}
