package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shoaibhajj/E-shop/internal/cache"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxCartWriteAttempts bounds the read-modify-write loop of a cart mutation
// that keeps losing the optimistic version check.
const maxCartWriteAttempts = 3

type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	coupons  repository.CouponRepository
	cache    cache.CartCache
	logger   *zap.Logger
	now      func() time.Time
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(
	repo repository.CartRepository,
	products repository.ProductRepository,
	coupons repository.CouponRepository,
	cartCache cache.CartCache,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		coupons:  coupons,
		cache:    cartCache,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID.Hex(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("user_id", userID.Hex()), zap.Error(err))
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, userID, cart); errSet != nil {
				s.logger.Warn("cache set failed", zap.String("user_id", userID.Hex()), zap.Error(errSet))
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem puts one unit of the product into the user's cart, creating the
// cart on first use. The line is priced at the product's current price.
func (s *CartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, color string) (*domain.Cart, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutateCart(ctx, userID, true, func(cart *domain.Cart) (bool, error) {
		cart.AddItem(product.ID, color, product.Price)
		return true, nil
	})
}

// RemoveItem is idempotent: a missing item leaves the cart as it is and a
// missing cart yields (nil, nil).
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID primitive.ObjectID) (*domain.Cart, error) {
	cart, err := s.mutateCart(ctx, userID, false, func(cart *domain.Cart) (bool, error) {
		return cart.RemoveItem(itemID), nil
	})
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, nil
	}
	return cart, err
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, itemID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	return s.mutateCart(ctx, userID, false, func(cart *domain.Cart) (bool, error) {
		item, ok := cart.Item(itemID)
		if !ok {
			return false, domain.ErrItemNotFound
		}

		// stock is read without a reservation; the checkout commit re-checks it
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return false, err
		}
		if quantity > product.Quantity {
			return false, domain.ErrInsufficientStock
		}

		return true, cart.SetQuantity(itemID, quantity)
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID primitive.ObjectID) error {
	err := s.repo.DeleteCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.logger.Error("repo delete cart failed", zap.String("user_id", userID.Hex()), zap.Error(err))
		return err
	}

	invalidateCache(s.cache, s.logger, userID)
	return nil
}

// mutateCart loads the user's cart from the store, applies fn and saves the
// result conditionally on the loaded version, retrying the whole cycle when
// a concurrent writer won. fn reports whether it changed the cart.
func (s *CartService) mutateCart(
	ctx context.Context,
	userID primitive.ObjectID,
	create bool,
	fn func(cart *domain.Cart) (bool, error),
) (*domain.Cart, error) {
	for attempt := 1; attempt <= maxCartWriteAttempts; attempt++ {
		cart, err := s.repo.GetCart(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) && create {
			cart, err = domain.NewCart(userID), nil
		}
		if err != nil {
			return nil, err
		}

		changed, err := fn(cart)
		if err != nil {
			return nil, err
		}
		if !changed {
			return cart, nil
		}

		err = s.repo.SaveCart(ctx, cart)
		if errors.Is(err, repository.ErrConcurrentUpdate) {
			s.logger.Debug("cart changed concurrently, retrying",
				zap.String("user_id", userID.Hex()),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			s.logger.Error("repo save cart failed", zap.String("user_id", userID.Hex()), zap.Error(err))
			return nil, err
		}

		invalidateCache(s.cache, s.logger, userID)
		return cart, nil
	}

	return nil, fmt.Errorf("save cart after %d attempts: %w", maxCartWriteAttempts, repository.ErrConcurrentUpdate)
}

func invalidateCache(c cache.CartCache, logger *zap.Logger, userID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Delete(ctx, userID); err != nil {
		logger.Warn("cache invalidate failed", zap.String("user_id", userID.Hex()), zap.Error(err))
	}
}
