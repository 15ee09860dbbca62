package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"go.uber.org/zap"
)

var ErrUnavailable = errors.New("payment provider unavailable")

// Provider creates hosted checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// Client creates Stripe checkout sessions. Calls go through a circuit
// breaker; provider rejections of the request itself do not count as
// failures.
type Client struct {
	sessions *session.Client
	cb       *gobreaker.CircuitBreaker[*Session]
	logger   *zap.Logger
}

// NewClient builds a client against baseURL, or the live Stripe API when
// baseURL is empty. Retries are left to the breaker and the caller.
func NewClient(baseURL, secretKey string, timeout time.Duration, logger *zap.Logger) *Client {
	config := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if baseURL != "" {
		config.URL = stripe.String(baseURL)
	}

	c := &Client{
		sessions: &session.Client{B: stripe.GetBackendWithConfig(stripe.APIBackend, config), Key: secretKey},
		logger:   logger,
	}
	c.cb = gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
		Name:        "payment-provider",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var stripeErr *stripe.Error
			if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode > 0 {
				return stripeErr.HTTPStatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	s, err := c.cb.Execute(func() (*Session, error) {
		return c.createSession(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Client) createSession(ctx context.Context, req SessionRequest) (*Session, error) {
	created, err := c.sessions.New(sessionParams(ctx, req))
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			c.logger.Error("payment provider rejected session",
				zap.Int("status", stripeErr.HTTPStatusCode),
				zap.String("client_reference_id", req.ClientReferenceID),
				zap.String("message", stripeErr.Msg))
			return nil, err
		}
		return nil, fmt.Errorf("failed to reach payment provider: %w", err)
	}
	if created.URL == "" {
		return nil, fmt.Errorf("payment provider returned session %s without url", created.ID)
	}
	return sessionFromStripe(created), nil
}

func sessionParams(ctx context.Context, req SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.ClientReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.Metadata = req.Metadata
	return params
}
