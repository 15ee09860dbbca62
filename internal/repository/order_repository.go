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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection(ordersCollection),
	}
}

func (m *mongoOrderRepository) GetOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	var order domain.Order
	if err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *mongoOrderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error) {
	query := bson.M{}
	if !filter.UserID.IsZero() {
		query["user"] = filter.UserID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m *mongoOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, at time.Time) (*domain.Order, error) {
	return m.setStatus(ctx, id, bson.M{"isPaid": true, "paidAt": at, "updatedAt": at})
}

func (m *mongoOrderRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) (*domain.Order, error) {
	return m.setStatus(ctx, id, bson.M{"isDelivered": true, "deliveredAt": at, "updatedAt": at})
}

func (m *mongoOrderRepository) setStatus(ctx context.Context, id primitive.ObjectID, set bson.M) (*domain.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order domain.Order
	err := m.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return &order, nil
}
