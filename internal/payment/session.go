package payment

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
)

// EventCheckoutCompleted is the provider event that confirms a paid session.
const EventCheckoutCompleted = string(stripe.EventTypeCheckoutSessionCompleted)

// SessionRequest describes a hosted checkout session for a single cart.
type SessionRequest struct {
	// Amount in minor units of Currency.
	Amount            int64
	Currency          string
	ProductName       string
	CustomerEmail     string
	ClientReferenceID string
	Metadata          map[string]string
	SuccessURL        string
	CancelURL         string
}

type CustomerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is the part of a checkout session the shop acts on. The json
// names follow the provider's.
type Session struct {
	ID                string            `json:"id"`
	URL               string            `json:"url,omitempty"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	ClientReferenceID string            `json:"client_reference_id"`
	CustomerEmail     string            `json:"customer_email,omitempty"`
	CustomerDetails   *CustomerDetails  `json:"customer_details,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	PaymentStatus     string            `json:"payment_status,omitempty"`
}

// Email is the buyer address, falling back to what the buyer typed on the
// hosted page when the session was created without one.
func (s *Session) Email() string {
	if s.CustomerEmail != "" {
		return s.CustomerEmail
	}
	if s.CustomerDetails != nil {
		return s.CustomerDetails.Email
	}
	return ""
}

func sessionFromStripe(cs *stripe.CheckoutSession) *Session {
	s := &Session{
		ID:                cs.ID,
		URL:               cs.URL,
		AmountTotal:       cs.AmountTotal,
		Currency:          string(cs.Currency),
		ClientReferenceID: cs.ClientReferenceID,
		CustomerEmail:     cs.CustomerEmail,
		Metadata:          cs.Metadata,
		PaymentStatus:     string(cs.PaymentStatus),
	}
	if cs.CustomerDetails != nil {
		s.CustomerDetails = &CustomerDetails{
			Email: cs.CustomerDetails.Email,
			Name:  cs.CustomerDetails.Name,
		}
	}
	return s
}

// Event is a verified webhook event. Object holds the raw data.object.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

// Session decodes the event object as a checkout session.
func (e *Event) Session() (*Session, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(e.Object, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode session from event %s: %w", e.ID, err)
	}
	return sessionFromStripe(&cs), nil
}
