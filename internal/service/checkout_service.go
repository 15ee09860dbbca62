package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shoaibhajj/E-shop/internal/cache"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/eventlog"
	"github.com/shoaibhajj/E-shop/internal/payment"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventLedger deduplicates payment provider webhook deliveries.
type EventLedger interface {
	Begin(ctx context.Context, eventID, eventType, cartID string) error
	Complete(ctx context.Context, eventID string, status eventlog.Status, procErr error) error
}

// CheckoutConfig holds the order pricing extension points and the
// currency hosted sessions are charged in.
type CheckoutConfig struct {
	TaxPrice      decimal.Decimal
	ShippingPrice decimal.Decimal
	Currency      string
}

type CheckoutDependencies struct {
	Carts    repository.CartRepository
	Users    repository.UserRepository
	Checkout repository.CheckoutRepository
	Cache    cache.CartCache
	Provider payment.Provider
	Ledger   EventLedger
}

// SessionURLs are where the hosted payment page sends the buyer back to.
type SessionURLs struct {
	SuccessURL string
	CancelURL  string
}

type CheckoutService struct {
	carts    repository.CartRepository
	users    repository.UserRepository
	checkout repository.CheckoutRepository
	cache    cache.CartCache
	provider payment.Provider
	ledger   EventLedger
	cfg      CheckoutConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewCheckoutService(deps CheckoutDependencies, cfg CheckoutConfig, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		carts:    deps.Carts,
		users:    deps.Users,
		checkout: deps.Checkout,
		cache:    deps.Cache,
		provider: deps.Provider,
		ledger:   deps.Ledger,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// CashCheckout turns the caller's cart into an unpaid cash order.
func (s *CheckoutService) CashCheckout(
	ctx context.Context,
	userID, cartID primitive.ObjectID,
	address domain.ShippingAddress,
) (*domain.Order, error) {
	cart, err := s.ownedCart(ctx, userID, cartID)
	if err != nil {
		return nil, err
	}

	return s.commitOrder(ctx, cart, userID, address, s.orderTotal(cart), domain.Payment{
		Method: domain.PaymentMethodCash,
	})
}

// CreateCheckoutSession opens a hosted payment session for the buyer's
// cart. The cart id travels as the client reference and comes back in the
// payment confirmation; nothing is stored locally.
func (s *CheckoutService) CreateCheckoutSession(
	ctx context.Context,
	buyer *domain.User,
	cartID primitive.ObjectID,
	address domain.ShippingAddress,
	urls SessionURLs,
) (*payment.Session, error) {
	cart, err := s.ownedCart(ctx, buyer.ID, cartID)
	if err != nil {
		return nil, err
	}

	req := payment.SessionRequest{
		Amount:            domain.ToMinorUnits(s.orderTotal(cart)),
		Currency:          s.cfg.Currency,
		ProductName:       buyer.Name,
		CustomerEmail:     buyer.Email,
		ClientReferenceID: cart.ID.Hex(),
		Metadata:          address.Metadata(),
		SuccessURL:        urls.SuccessURL,
		CancelURL:         urls.CancelURL,
	}

	session, err := s.provider.CreateCheckoutSession(ctx, req)
	if errors.Is(err, payment.ErrUnavailable) {
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.logger.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("cart_id", cart.ID.Hex()),
		zap.Int64("amount", req.Amount))
	return session, nil
}

// ownedCart loads a non-empty cart of userID. Carts of other users read as
// missing.
func (s *CheckoutService) ownedCart(ctx context.Context, userID, cartID primitive.ObjectID) (*domain.Cart, error) {
	cart, err := s.carts.GetCartByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.UserID != userID {
		return nil, repository.ErrCartNotFound
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	return cart, nil
}

// orderTotal is the payable cart total plus the tax and shipping charges.
func (s *CheckoutService) orderTotal(cart *domain.Cart) decimal.Decimal {
	return cart.PayableTotal().Add(s.cfg.TaxPrice).Add(s.cfg.ShippingPrice).Round(domain.MinorUnits)
}
