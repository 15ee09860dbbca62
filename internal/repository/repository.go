package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	cartsCollection    = "carts"
	ordersCollection   = "orders"
	couponsCollection  = "coupons"
	productsCollection = "products"
	usersCollection    = "users"
	reviewsCollection  = "reviews"
	outboxCollection   = "outbox"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrConcurrentUpdate  = errors.New("cart was modified concurrently")
	ErrDuplicateCheckout = errors.New("order for this cart already exists")
)

// CartRepository defines the interface for cart data operations
type CartRepository interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	GetCartByID(ctx context.Context, cartID primitive.ObjectID) (*domain.Cart, error)
	// SaveCart inserts a new cart or replaces an existing one if its version
	// still matches the stored document. The version is bumped on success.
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID primitive.ObjectID) error
}

type CouponRepository interface {
	FindActive(ctx context.Context, name string, now time.Time) (*domain.Coupon, error)
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	RecomputeRatingAggregate(ctx context.Context, productID primitive.ObjectID) error
}

type UserRepository interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// OrderFilter narrows ListOrders. A zero UserID lists every order.
type OrderFilter struct {
	UserID primitive.ObjectID
}

type OrderRepository interface {
	GetOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, at time.Time) (*domain.Order, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (*domain.Order, error)
}

// CheckoutRepository commits a cart into an order.
type CheckoutRepository interface {
	// CommitOrder inserts order, decrements stock and increments sold for
	// every line, deletes the source cart and stores msg in the outbox, all
	// or nothing. The cart is only consumed while it is still at
	// cartVersion; a newer cart fails with ErrConcurrentUpdate. msg may be nil.
	CommitOrder(ctx context.Context, order *domain.Order, cartVersion int64, msg *domain.OutboxMessage) error
}

// OutboxRepository is the read side of the outbox used by the event poller.
type OutboxRepository interface {
	PendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	MarkPublished(ctx context.Context, id primitive.ObjectID, at time.Time) error
}
