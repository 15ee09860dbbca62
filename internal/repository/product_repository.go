package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoProductRepository struct {
	products *mongo.Collection
	reviews  *mongo.Collection
}

func NewProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		products: db.Collection(productsCollection),
		reviews:  db.Collection(reviewsCollection),
	}
}

func (m *mongoProductRepository) GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	var product domain.Product
	if err := m.products.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

type ratingAggregate struct {
	AvgRatings      float64 `bson:"avgRatings"`
	RatingsQuantity int     `bson:"ratingsQuantity"`
}

// RecomputeRatingAggregate refreshes ratingsAverage and ratingsQuantity of
// the product from its reviews. It runs after a review is created or removed.
func (m *mongoProductRepository) RecomputeRatingAggregate(ctx context.Context, productID primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product": productID}}},
		{{Key: "$group", Value: bson.M{
			"_id":             "$product",
			"avgRatings":      bson.M{"$avg": "$ratings"},
			"ratingsQuantity": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := m.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to aggregate reviews: %w", err)
	}
	var results []ratingAggregate
	if err := cursor.All(ctx, &results); err != nil {
		return fmt.Errorf("failed to decode review aggregate: %w", err)
	}

	update := bson.M{"$set": bson.M{"ratingsAverage": 0.0, "ratingsQuantity": 0}}
	if len(results) > 0 {
		update = bson.M{"$set": bson.M{
			"ratingsAverage":  results[0].AvgRatings,
			"ratingsQuantity": results[0].RatingsQuantity,
		}}
	}

	result, err := m.products.UpdateOne(ctx, bson.M{"_id": productID}, update)
	if err != nil {
		return fmt.Errorf("failed to update product ratings: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
