package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OutboxMessage is an event written in the same transaction as the state
// change it describes and published to the broker afterwards.
type OutboxMessage struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	EventID     string             `bson:"eventId"`
	EventType   string             `bson:"eventType"`
	Key         string             `bson:"key"`
	Payload     []byte             `bson:"payload"`
	CreatedAt   time.Time          `bson:"createdAt"`
	PublishedAt *time.Time         `bson:"publishedAt,omitempty"`
}
