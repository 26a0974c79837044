package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bank-reconciliation-service/internal/config"
	"github.com/segmentio/kafka-go"
)

// ReconciliationCompletedProducer publishes reconciliation results. Delivery
// to end users (mail, webhooks) is a downstream consumer's concern.
type ReconciliationCompletedProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewReconciliationCompletedProducer creates the producer and ensures the topic exists
func NewReconciliationCompletedProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ReconciliationCompletedProducer, error) {
	if cfg.CompletedTopic == "" {
		return nil, fmt.Errorf("kafka completed topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for completed-event producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopicExists(conn, cfg.CompletedTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure completed topic %s exists: %w", cfg.CompletedTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.CompletedTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Completion events never block a reconciliation run
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.CompletedTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.CompletedTopic, "count", len(messages))
			}
		},
	}

	return &ReconciliationCompletedProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.CompletedTopic,
	}, nil
}

func (p *ReconciliationCompletedProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal completed-event value: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish reconciliation completed event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published reconciliation completed event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *ReconciliationCompletedProducer) Close() error {
	p.logger.Info("Closing reconciliation completed producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
