package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCouponRepository struct {
	collection *mongo.Collection
}

func NewCouponRepository(db *mongo.Database) CouponRepository {
	return &mongoCouponRepository{
		collection: db.Collection(couponsCollection),
	}
}

// FindActive returns the coupon with exactly this (normalized) name whose
// expiry is strictly after now. Expired and unknown coupons both yield
// ErrCouponNotFound.
func (m *mongoCouponRepository) FindActive(ctx context.Context, name string, now time.Time) (*domain.Coupon, error) {
	filter := bson.M{
		"name":   domain.NormalizeCouponName(name),
		"expire": bson.M{"$gt": now},
	}

	var coupon domain.Coupon
	if err := m.collection.FindOne(ctx, filter).Decode(&coupon); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to find coupon: %w", err)
	}
	return &coupon, nil
}
