package repository

import (
	"context"
	"fmt"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type mongoCheckoutRepository struct {
	client   *mongo.Client
	orders   *mongo.Collection
	products *mongo.Collection
	carts    *mongo.Collection
	outbox   *mongo.Collection
}

func NewCheckoutRepository(db *mongo.Database) CheckoutRepository {
	return &mongoCheckoutRepository{
		client:   db.Client(),
		orders:   db.Collection(ordersCollection),
		products: db.Collection(productsCollection),
		carts:    db.Collection(cartsCollection),
		outbox:   db.Collection(outboxCollection),
	}
}

// CommitOrder runs inside a single multi-document transaction. Stock is only
// decremented where the product still holds enough units, so a short match
// count aborts the whole commit with domain.ErrInsufficientStock.
func (m *mongoCheckoutRepository) CommitOrder(ctx context.Context, order *domain.Order, cartVersion int64, msg *domain.OutboxMessage) error {
	assigned := order.ID.IsZero()
	if assigned {
		order.ID = primitive.NewObjectID()
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, m.commit(sc, order, cartVersion, msg)
	}, txnOpts)
	if err != nil {
		if assigned {
			order.ID = primitive.NilObjectID
		}
		return err
	}
	return nil
}

func (m *mongoCheckoutRepository) commit(sc mongo.SessionContext, order *domain.Order, cartVersion int64, msg *domain.OutboxMessage) error {
	if _, err := m.orders.InsertOne(sc, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if len(order.Items) > 0 {
		models := make([]mongo.WriteModel, 0, len(order.Items))
		for _, item := range order.Items {
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(bson.M{
					"_id":      item.ProductID,
					"quantity": bson.M{"$gte": item.Quantity},
				}).
				SetUpdate(bson.M{
					"$inc": bson.M{"quantity": -item.Quantity, "sold": item.Quantity},
				}))
		}

		result, err := m.products.BulkWrite(sc, models, options.BulkWrite().SetOrdered(true))
		if err != nil {
			return fmt.Errorf("failed to update product stock: %w", err)
		}
		if result.MatchedCount != int64(len(models)) {
			return domain.ErrInsufficientStock
		}
	}

	// the order snapshot was taken from cartVersion; a newer cart holds
	// lines this order does not contain
	result, err := m.carts.DeleteOne(sc, bson.M{"_id": order.CartID, "version": cartVersion})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		n, err := m.carts.CountDocuments(sc, bson.M{"_id": order.CartID})
		if err != nil {
			return fmt.Errorf("failed to check cart: %w", err)
		}
		if n > 0 {
			return ErrConcurrentUpdate
		}
		return ErrCartNotFound
	}

	if msg != nil {
		if msg.ID.IsZero() {
			msg.ID = primitive.NewObjectID()
		}
		if _, err := m.outbox.InsertOne(sc, msg); err != nil {
			return fmt.Errorf("failed to insert outbox message: %w", err)
		}
	}
	return nil
}
