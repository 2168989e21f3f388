package video

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/consult-api/pkg/circuitbreaker"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

// RetryingProvisioner wraps a Provisioner with bounded retries and a circuit
// breaker. Exhausted retries surface as an UpstreamError so callers can
// distinguish provider outages from validation failures.
type RetryingProvisioner struct {
	inner    Provisioner
	attempts int
	backoff  time.Duration
	breaker  *circuitbreaker.CircuitBreaker
}

func NewRetryingProvisioner(inner Provisioner, attempts int, backoff time.Duration) *RetryingProvisioner {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &RetryingProvisioner{
		inner:    inner,
		attempts: attempts,
		backoff:  backoff,
		breaker: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "video-provisioner",
			MaxFailures: 5,
			Cooldown:    30 * time.Second,
		}),
	}
}

func (p *RetryingProvisioner) Provision(ctx context.Context, consultationID uuid.UUID) (*Room, error) {
	var room *Room
	var lastErr error

	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, apperrors.Upstream("video provisioning", ctx.Err())
			case <-time.After(p.backoff):
			}
		}

		err := p.breaker.Execute(func() error {
			var provErr error
			room, provErr = p.inner.Provision(ctx, consultationID)
			return provErr
		})
		if err == nil {
			return room, nil
		}
		lastErr = err
	}

	return nil, apperrors.Upstream("video provisioning", lastErr)
}
