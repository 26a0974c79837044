package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes reconciliation events to a topic. The value is
// JSON-marshaled by the implementation.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher routes non-retryable statement events to the DLQ
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
