package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	registry := bson.NewRegistry()
	registerDecimalCodec(registry)

	clientOpts := options.Client().
		ApplyURI(uri).
		SetRegistry(registry).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// CreateIndexes creates the indexes every repository relies on.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	models := map[string][]mongo.IndexModel{
		cartsCollection: {
			{
				Keys:    bson.D{{Key: "user", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "updatedAt", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
			},
		},
		ordersCollection: {
			{
				Keys:    bson.D{{Key: "cart", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		couponsCollection: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		usersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "product", Value: 1}}},
		},
		outboxCollection: {
			{Keys: bson.D{{Key: "publishedAt", Value: 1}, {Key: "createdAt", Value: 1}}},
			{
				Keys:    bson.D{{Key: "eventId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				// only published messages carry publishedAt, so pending ones never expire
				Keys:    bson.D{{Key: "publishedAt", Value: 1}},
				Options: options.Index().SetName("publishedAt_ttl").SetExpireAfterSeconds(7 * 24 * 60 * 60),
			},
		},
	}

	for name, indexes := range models {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
