package payment

import (
	"errors"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader carries the provider signature on webhook requests.
const SignatureHeader = "Stripe-Signature"

var ErrMalformedEvent = errors.New("malformed webhook event")

// Verifier authenticates webhook payloads with the endpoint secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{secret: secret, tolerance: tolerance}
}

// ConstructEvent verifies the signature header and parses the payload.
// Signature failures are the webhook package's sentinel errors.
func (v *Verifier) ConstructEvent(payload []byte, header string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}
	if event.ID == "" || event.Type == "" || event.Data == nil {
		return nil, ErrMalformedEvent
	}
	return &Event{ID: event.ID, Type: string(event.Type), Object: event.Data.Raw}, nil
}
