package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartsCollection),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"user": userID})
}

func (m *mongoCartRepository) GetCartByID(ctx context.Context, cartID primitive.ObjectID) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"_id": cartID})
}

func (m *mongoCartRepository) findOne(ctx context.Context, filter bson.M) (*domain.Cart, error) {
	var cart domain.Cart
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (m *mongoCartRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()

	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
		cart.CreatedAt = now
		cart.UpdatedAt = now
		cart.Version = 1

		if _, err := m.collection.InsertOne(ctx, cart); err != nil {
			cart.ID = primitive.NilObjectID
			cart.Version = 0
			// another request created the user's cart first
			if mongo.IsDuplicateKeyError(err) {
				return ErrConcurrentUpdate
			}
			return fmt.Errorf("failed to create cart: %w", err)
		}
		return nil
	}

	expected := cart.Version
	cart.Version = expected + 1
	cart.UpdatedAt = now

	filter := bson.M{"_id": cart.ID, "version": expected}
	result, err := m.collection.ReplaceOne(ctx, filter, cart)
	if err != nil {
		cart.Version = expected
		return fmt.Errorf("failed to save cart: %w", err)
	}
	if result.MatchedCount == 0 {
		cart.Version = expected
		return ErrConcurrentUpdate
	}
	return nil
}

func (m *mongoCartRepository) DeleteCart(ctx context.Context, userID primitive.ObjectID) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"user": userID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}
