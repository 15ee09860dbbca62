package service

import (
	"context"
	"errors"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplyCoupon stores the discounted total of the user's cart. Unknown and
// expired coupons are both reported as ErrInvalidCoupon.
func (s *CartService) ApplyCoupon(ctx context.Context, userID primitive.ObjectID, code string) (*domain.Cart, error) {
	name := domain.NormalizeCouponName(code)
	if name == "" {
		return nil, ErrInvalidCoupon
	}

	coupon, err := s.coupons.FindActive(ctx, name, s.now().UTC())
	if errors.Is(err, repository.ErrCouponNotFound) {
		return nil, ErrInvalidCoupon
	}
	if err != nil {
		return nil, err
	}

	return s.mutateCart(ctx, userID, false, func(cart *domain.Cart) (bool, error) {
		// a coupon can lapse while the cart write is retried
		if !coupon.IsActive(s.now().UTC()) {
			return false, ErrInvalidCoupon
		}
		cart.ApplyDiscount(coupon.Discount)
		return true, nil
	})
}
