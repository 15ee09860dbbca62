package payment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

var eventPayload = []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","amount_total":1000,"client_reference_id":"65a1f0c2e4b0a1b2c3d4e5f6","customer_email":"buyer@example.com","metadata":{"city":"Cairo"}}}}`)

func signedHeader(secret string, at time.Time, payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}

func TestVerifier_ConstructEvent(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)

	event, err := v.ConstructEvent(eventPayload, signedHeader(testSecret, time.Now(), eventPayload))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutCompleted, event.Type)

	session, err := event.Session()
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, int64(1000), session.AmountTotal)
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", session.ClientReferenceID)
	assert.Equal(t, "buyer@example.com", session.Email())
	assert.Equal(t, "Cairo", session.Metadata["city"])
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)
	now := time.Now()

	tests := []struct {
		name    string
		payload []byte
		header  string
		wantErr error
	}{
		{
			name:    "empty header",
			payload: eventPayload,
			header:  "",
			wantErr: webhook.ErrNotSigned,
		},
		{
			name:    "no timestamp",
			payload: eventPayload,
			header:  "v1=abcd",
			wantErr: webhook.ErrInvalidHeader,
		},
		{
			name:    "wrong secret",
			payload: eventPayload,
			header:  signedHeader("whsec_other", now, eventPayload),
			wantErr: webhook.ErrNoValidSignature,
		},
		{
			name:    "tampered payload",
			payload: append([]byte(" "), eventPayload...),
			header:  signedHeader(testSecret, now, eventPayload),
			wantErr: webhook.ErrNoValidSignature,
		},
		{
			name:    "too old",
			payload: eventPayload,
			header:  signedHeader(testSecret, now.Add(-10*time.Minute), eventPayload),
			wantErr: webhook.ErrTooOld,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ConstructEvent(tt.payload, tt.header)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifier_MalformedEvent(t *testing.T) {
	v := NewVerifier(testSecret, 5*time.Minute)
	payload := []byte(`{"type":"checkout.session.completed"}`)

	_, err := v.ConstructEvent(payload, signedHeader(testSecret, time.Now(), payload))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestEvent_SessionCustomerDetails(t *testing.T) {
	event := &Event{
		ID:     "evt_2",
		Type:   EventCheckoutCompleted,
		Object: json.RawMessage(`{"id":"cs_2","customer_details":{"email":"typed@example.com","name":"Typed"}}`),
	}

	session, err := event.Session()
	require.NoError(t, err)
	require.NotNil(t, session.CustomerDetails)
	assert.Equal(t, "typed@example.com", session.Email())

	_, err = (&Event{ID: "evt_3", Object: json.RawMessage(`not json`)}).Session()
	assert.Error(t, err)
}

func TestSession_EmailFallsBackToCustomerDetails(t *testing.T) {
	s := &Session{CustomerDetails: &CustomerDetails{Email: "typed@example.com"}}
	assert.Equal(t, "typed@example.com", s.Email())
	assert.Empty(t, (&Session{}).Email())
}
