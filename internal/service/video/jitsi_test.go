package video

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

func TestJitsiRoomNameAndURL(t *testing.T) {
	p := NewJitsiProvisioner("")
	id := uuid.New()

	room, err := p.Provision(context.Background(), id)
	require.NoError(t, err)

	pattern := regexp.MustCompile(fmt.Sprintf(`^Telemed_%s_[0-9a-f]{8}$`, id))
	assert.Regexp(t, pattern, room.Name)
	assert.Equal(t, "https://meet.jit.si/"+room.Name, room.URL)
}

func TestJitsiCustomDomain(t *testing.T) {
	p := NewJitsiProvisioner("meet.clinic.example")
	room, err := p.Provision(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Contains(t, room.URL, "https://meet.clinic.example/")
}

func TestJitsiSuffixesDiffer(t *testing.T) {
	p := NewJitsiProvisioner("")
	id := uuid.New()

	a, err := p.Provision(context.Background(), id)
	require.NoError(t, err)
	b, err := p.Provision(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, a.Name, b.Name)
}

type flakyProvisioner struct {
	failures int
	calls    int
}

func (f *flakyProvisioner) Provision(ctx context.Context, id uuid.UUID) (*Room, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("jitsi unreachable")
	}
	return &Room{Name: "room", URL: "https://meet.jit.si/room"}, nil
}

func TestRetryingProvisionerRecovers(t *testing.T) {
	inner := &flakyProvisioner{failures: 2}
	p := NewRetryingProvisioner(inner, 3, time.Millisecond)

	room, err := p.Provision(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "room", room.Name)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingProvisionerExhaustsAsUpstream(t *testing.T) {
	inner := &flakyProvisioner{failures: 10}
	p := NewRetryingProvisioner(inner, 3, time.Millisecond)

	_, err := p.Provision(context.Background(), uuid.New())
	assert.Equal(t, apperrors.ErrUpstream, apperrors.CodeOf(err))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingProvisionerHonorsContext(t *testing.T) {
	inner := &flakyProvisioner{failures: 10}
	p := NewRetryingProvisioner(inner, 5, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Provision(ctx, uuid.New())
	assert.Equal(t, apperrors.ErrUpstream, apperrors.CodeOf(err))
	assert.LessOrEqual(t, inner.calls, 1)
}
