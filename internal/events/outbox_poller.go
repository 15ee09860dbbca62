package events

import (
	"context"
	"time"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OutboxStore reads and acknowledges unpublished outbox messages.
type OutboxStore interface {
	PendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	MarkPublished(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	batchSize int
	store     OutboxStore
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewOutboxPoller(store OutboxStore, publisher Publisher, logger *zap.Logger) *OutboxPoller {
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		batchSize: 100,
		store:     store,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Run publishes pending messages every tick until ctx is done.
func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes one batch in creation order and returns
// how many messages were acknowledged. It stops at the first failed publish
// so a later message for the same key never overtakes an earlier one.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	messages, err := p.store.PendingMessages(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox messages", zap.Error(err))
		return 0
	}

	published := 0
	for _, msg := range messages {
		if err := p.publisher.Publish(ctx, msg); err != nil {
			p.logger.Warn("failed to publish outbox message",
				zap.String("event_id", msg.EventID),
				zap.String("event_type", msg.EventType),
				zap.Error(err))
			break
		}

		// A failed mark means the message is published again on the next
		// tick; consumers dedupe on event_id.
		if err := p.store.MarkPublished(ctx, msg.ID, p.now().UTC()); err != nil {
			p.logger.Error("failed to mark outbox message as published",
				zap.String("event_id", msg.EventID),
				zap.Error(err))
			break
		}
		published++
	}
	return published
}
