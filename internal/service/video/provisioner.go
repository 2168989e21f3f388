package video

import (
	"context"

	"github.com/google/uuid"
)

// Room is a provisioned video session.
type Room struct {
	Name string
	URL  string
}

// Provisioner obtains a video-conferencing room for a consultation. The core
// only calls it and stores the result; the transport itself is external.
type Provisioner interface {
	Provision(ctx context.Context, consultationID uuid.UUID) (*Room, error)
}
