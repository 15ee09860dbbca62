package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/eventlog"
	"github.com/shoaibhajj/E-shop/internal/payment"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ledgerTimeout bounds recording an outcome once the request context may
// already be gone.
const ledgerTimeout = 5 * time.Second

// HandleEvent processes one verified webhook event. Redelivered events are
// skipped through the ledger; event types other than a completed checkout
// are recorded and ignored.
func (s *CheckoutService) HandleEvent(ctx context.Context, event *payment.Event) error {
	log := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	if event.Type != payment.EventCheckoutCompleted {
		s.recordIgnored(ctx, log, event)
		return nil
	}

	session, err := event.Session()
	if err != nil {
		return err
	}

	if err := s.ledger.Begin(ctx, event.ID, event.Type, session.ClientReferenceID); err != nil {
		if errors.Is(err, eventlog.ErrDuplicateEvent) {
			log.Info("duplicate payment event skipped")
			return nil
		}
		// the cart delete and the unique order index still guard a redelivery
		log.Warn("event ledger unavailable, processing anyway", zap.Error(err))
	}

	_, procErr := s.HandlePaymentConfirmed(ctx, session)

	status := eventlog.StatusProcessed
	if procErr != nil {
		status = eventlog.StatusFailed
	}
	s.completeEvent(ctx, log, event.ID, status, procErr)
	return procErr
}

// completeEvent records the outcome even when the request deadline has
// passed; an unrecorded outcome leaves the claim to expire.
func (s *CheckoutService) completeEvent(ctx context.Context, log *zap.Logger, eventID string, status eventlog.Status, procErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()

	err := s.ledger.Complete(ctx, eventID, status, procErr)
	switch {
	case err == nil:
	case errors.Is(err, eventlog.ErrEventNotFound):
		log.Info("payment event was never claimed, outcome not recorded", zap.String("status", string(status)))
	default:
		log.Warn("failed to complete payment event", zap.Error(err))
	}
}

func (s *CheckoutService) recordIgnored(ctx context.Context, log *zap.Logger, event *payment.Event) {
	if err := s.ledger.Begin(ctx, event.ID, event.Type, ""); err != nil {
		if !errors.Is(err, eventlog.ErrDuplicateEvent) {
			log.Warn("failed to record payment event", zap.Error(err))
		}
		return
	}
	s.completeEvent(ctx, log, event.ID, eventlog.StatusIgnored, nil)
}

// HandlePaymentConfirmed commits the cart a paid hosted session refers to
// as a paid card order. A cart that is already gone means the payment was
// handled before; that is a successful no-op returning a nil order.
func (s *CheckoutService) HandlePaymentConfirmed(ctx context.Context, session *payment.Session) (*domain.Order, error) {
	cartID, err := primitive.ObjectIDFromHex(session.ClientReferenceID)
	if err != nil {
		return nil, fmt.Errorf("%w: client_reference_id %q", ErrInvalidArgument, session.ClientReferenceID)
	}
	email := session.Email()
	if email == "" {
		return nil, fmt.Errorf("%w: session %s has no customer email", ErrInvalidArgument, session.ID)
	}

	log := s.logger.With(zap.String("session_id", session.ID), zap.String("cart_id", cartID.Hex()))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve buyer of session %s: %w", session.ID, err)
	}

	// The payment is already taken, so a cart changed between the read and
	// the commit is reloaded and committed as it is now.
	for attempt := 1; ; attempt++ {
		cart, err := s.carts.GetCartByID(ctx, cartID)
		if errors.Is(err, repository.ErrCartNotFound) {
			log.Info("cart already checked out, payment confirmation ignored")
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if cart.UserID != user.ID {
			log.Warn("paying user does not own the cart",
				zap.String("user_id", user.ID.Hex()),
				zap.String("owner_id", cart.UserID.Hex()))
		}

		paidAt := s.now().UTC()
		order, err := s.commitOrder(ctx, cart, user.ID, domain.ShippingAddressFromMetadata(session.Metadata),
			domain.FromMinorUnits(session.AmountTotal), domain.Payment{
				Method: domain.PaymentMethodCard,
				IsPaid: true,
				PaidAt: &paidAt,
			})
		if errors.Is(err, repository.ErrConcurrentUpdate) && attempt < maxCartWriteAttempts {
			log.Info("cart changed during commit, retrying", zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, repository.ErrCartNotFound) || errors.Is(err, repository.ErrDuplicateCheckout) {
			log.Info("cart consumed concurrently, payment confirmation ignored")
			return nil, nil
		}
		return order, err
	}
}
