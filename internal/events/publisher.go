package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shopspring/decimal"
)

const EventTypeOrderPlaced = "order.placed"

// Publisher delivers outbox messages to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, msg *domain.OutboxMessage) error
}

type OrderPlacedItem struct {
	ProductID string          `json:"product_id"`
	Color     string          `json:"color,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlaced struct {
	EventID         string            `json:"event_id"`
	OrderID         string            `json:"order_id"`
	UserID          string            `json:"user_id"`
	CartID          string            `json:"cart_id"`
	Items           []OrderPlacedItem `json:"items"`
	TotalOrderPrice decimal.Decimal   `json:"total_order_price"`
	PaymentMethod   string            `json:"payment_method"`
	IsPaid          bool              `json:"is_paid"`
	OccurredAt      time.Time         `json:"occurred_at"`
}

func NewOrderPlaced(order *domain.Order, at time.Time) OrderPlaced {
	items := make([]OrderPlacedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderPlacedItem{
			ProductID: item.ProductID.Hex(),
			Color:     item.Color,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return OrderPlaced{
		EventID:         uuid.NewString(),
		OrderID:         order.ID.Hex(),
		UserID:          order.UserID.Hex(),
		CartID:          order.CartID.Hex(),
		Items:           items,
		TotalOrderPrice: order.TotalOrderPrice,
		PaymentMethod:   string(order.PaymentMethod),
		IsPaid:          order.IsPaid,
		OccurredAt:      at,
	}
}

// NewOrderPlacedMessage builds the outbox record announcing order. The order
// must already carry its id. Messages are keyed by user for per-user ordering.
func NewOrderPlacedMessage(order *domain.Order, at time.Time) (*domain.OutboxMessage, error) {
	event := NewOrderPlaced(order, at)
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return &domain.OutboxMessage{
		EventID:   event.EventID,
		EventType: EventTypeOrderPlaced,
		Key:       event.UserID,
		Payload:   payload,
		CreatedAt: at,
	}, nil
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg *domain.OutboxMessage) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Payload, // Already JSON from the outbox
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.EventType)},
			{Key: "event_id", Value: []byte(msg.EventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event %s: %w", msg.EventType, msg.EventID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
