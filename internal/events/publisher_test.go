package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:     primitive.NewObjectID(),
		UserID: primitive.NewObjectID(),
		CartID: primitive.NewObjectID(),
		Items: []domain.CartItem{
			{ID: primitive.NewObjectID(), ProductID: primitive.NewObjectID(), Color: "red", Price: decimal.NewFromInt(10), Quantity: 2},
		},
		TotalOrderPrice: decimal.RequireFromString("10.00"),
		PaymentMethod:   domain.PaymentMethodCard,
		IsPaid:          true,
	}
}

func TestNewOrderPlaced(t *testing.T) {
	order := sampleOrder()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	event := NewOrderPlaced(order, at)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, order.ID.Hex(), event.OrderID)
	assert.Equal(t, order.CartID.Hex(), event.CartID)
	assert.Equal(t, "card", event.PaymentMethod)
	assert.True(t, event.IsPaid)
	require.Len(t, event.Items, 1)
	assert.Equal(t, 2, event.Items[0].Quantity)
	assert.Equal(t, order.Items[0].ProductID.Hex(), event.Items[0].ProductID)
	assert.Equal(t, at, event.OccurredAt)

	other := NewOrderPlaced(order, at)
	assert.NotEqual(t, event.EventID, other.EventID)
}

func TestNewOrderPlacedMessage(t *testing.T) {
	order := sampleOrder()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msg, err := NewOrderPlacedMessage(order, at)
	require.NoError(t, err)
	assert.Equal(t, EventTypeOrderPlaced, msg.EventType)
	assert.Equal(t, order.UserID.Hex(), msg.Key)
	assert.Equal(t, at, msg.CreatedAt)
	assert.Nil(t, msg.PublishedAt)

	var event OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, msg.EventID, event.EventID)
	assert.Equal(t, order.ID.Hex(), event.OrderID)
}

func setupKafka(t *testing.T) (string, func()) {
	if testing.Short() {
		t.Skip("skipping Kafka integration test in short mode")
	}
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()

	const topic = "order-events"
	createTopic(t, brokerAddr, topic)

	publisher := NewKafkaPublisher(topic, brokerAddr)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	order := sampleOrder()
	outboxMsg, err := NewOrderPlacedMessage(order, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, outboxMsg))

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    topic,
		GroupID:  "test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, order.UserID.Hex(), string(msg.Key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventTypeOrderPlaced, headers["event_type"])

	var event OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, order.ID.Hex(), event.OrderID)
	assert.Equal(t, outboxMsg.EventID, headers["event_id"])
	assert.Equal(t, headers["event_id"], event.EventID)
	assert.True(t, event.TotalOrderPrice.Equal(decimal.NewFromInt(10)))
}
