package service

import (
	"context"
	"fmt"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/events"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// commitOrder snapshots the cart into an order and, in one store
// transaction, records the order, moves stock to sold, deletes the cart and
// queues the order.placed message for the outbox poller.
func (s *CheckoutService) commitOrder(
	ctx context.Context,
	cart *domain.Cart,
	userID primitive.ObjectID,
	address domain.ShippingAddress,
	total decimal.Decimal,
	pay domain.Payment,
) (*domain.Order, error) {
	now := s.now().UTC()
	order := &domain.Order{
		ID:              primitive.NewObjectID(),
		UserID:          userID,
		CartID:          cart.ID,
		Items:           cart.SnapshotItems(),
		ShippingAddress: address,
		TaxPrice:        s.cfg.TaxPrice,
		ShippingPrice:   s.cfg.ShippingPrice,
		TotalOrderPrice: total,
		PaymentMethod:   pay.Method,
		IsPaid:          pay.IsPaid,
		PaidAt:          pay.PaidAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	msg, err := events.NewOrderPlacedMessage(order, now)
	if err != nil {
		return nil, err
	}

	if err := s.checkout.CommitOrder(ctx, order, cart.Version, msg); err != nil {
		return nil, fmt.Errorf("failed to commit order for cart %s: %w", cart.ID.Hex(), err)
	}

	invalidateCache(s.cache, s.logger, cart.UserID)
	s.logger.Info("order placed",
		zap.String("order_id", order.ID.Hex()),
		zap.String("cart_id", cart.ID.Hex()),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.TotalOrderPrice.String()))

	return order, nil
}
