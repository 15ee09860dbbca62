package cache

import (
	"context"
	"errors"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartCache is a read-through copy of carts keyed by owner. The store stays
// authoritative; entries are dropped after every write.
type CartCache interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	Set(ctx context.Context, userID primitive.ObjectID, cart *domain.Cart) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

var ErrCacheMiss = errors.New("cache miss")
