package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOutboxRepository struct {
	collection *mongo.Collection
}

func NewOutboxRepository(db *mongo.Database) OutboxRepository {
	return &mongoOutboxRepository{
		collection: db.Collection(outboxCollection),
	}
}

// PendingMessages returns up to limit unpublished messages, oldest first.
func (m *mongoOutboxRepository) PendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, bson.M{"publishedAt": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*domain.OutboxMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode outbox messages: %w", err)
	}
	return messages, nil
}

func (m *mongoOutboxRepository) MarkPublished(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"publishedAt": at}})
	if err != nil {
		return fmt.Errorf("failed to mark outbox message %s: %w", id.Hex(), err)
	}
	return nil
}
