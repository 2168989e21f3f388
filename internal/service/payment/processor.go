package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/teleclinic/consult-api/internal/model"
)

// CheckoutSession is the processor's hosted payment page for one payment.
type CheckoutSession struct {
	ID  string
	URL string
}

// Processor is the external payment collaborator. The core opens checkout
// sessions and observes status events; it never captures funds itself.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, payment *model.Payment, description, customerEmail, successURL, cancelURL string) (*CheckoutSession, error)
}

// HostedProcessor points customers at the processor's hosted checkout page.
// Session ids follow the processor's cs_ convention so webhook payloads can
// be correlated.
type HostedProcessor struct {
	checkoutBaseURL string
}

func NewHostedProcessor(checkoutBaseURL string) *HostedProcessor {
	return &HostedProcessor{checkoutBaseURL: checkoutBaseURL}
}

func (p *HostedProcessor) CreateCheckoutSession(ctx context.Context, payment *model.Payment, description, customerEmail, successURL, cancelURL string) (*CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	id := "cs_" + hex.EncodeToString(raw)

	return &CheckoutSession{
		ID:  id,
		URL: fmt.Sprintf("%s/pay/%s", p.checkoutBaseURL, id),
	}, nil
}
