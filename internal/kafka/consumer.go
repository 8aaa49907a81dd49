package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/aegisshield/entity-network/internal/config"
	"github.com/aegisshield/entity-network/internal/metrics"
	"github.com/aegisshield/entity-network/internal/models"
)

// RecordBatchEvent carries raw records submitted for resolution
type RecordBatchEvent struct {
	BatchID   string             `json:"batch_id"`
	Records   []models.RawRecord `json:"records"`
	Timestamp time.Time          `json:"timestamp"`
}

// BatchHandler resolves one consumed record batch
type BatchHandler func(ctx context.Context, batchID string, records []models.RawRecord) error

// Consumer reads record batches from the records topic
type Consumer struct {
	consumer sarama.ConsumerGroup
	handler  BatchHandler
	config   config.KafkaConfig
	metrics  *metrics.Collector
	logger   *slog.Logger

	// retryBackoff delays the rejoin after a retryable failure
	retryBackoff time.Duration
}

// NewConsumer creates a new Kafka consumer group member
func NewConsumer(cfg config.KafkaConfig, handler BatchHandler, collector *metrics.Collector, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Group.Session.Timeout = 10 * time.Second
	saramaConfig.Consumer.Group.Heartbeat.Interval = 3 * time.Second

	group, err := sarama.NewConsumerGroup(cfg.BrokerList(), cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &Consumer{
		consumer: group,
		handler:  handler,
		config:   cfg,
		metrics:  collector,
		logger:   logger,

		retryBackoff: time.Second,
	}, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.consumer.Close()
}

// Start consumes until ctx is cancelled. A claim that stops on a retryable
// failure ends the session, and the next loop rejoins from the last marked offset.
func (c *Consumer) Start(ctx context.Context) error {
	topics := []string{c.config.RecordsTopic}
	handler := &consumerGroupHandler{consumer: c}

	for {
		if err := c.consumer.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("Kafka consumer error", "error", err)
			return err
		}
		if ctx.Err() != nil {
			c.logger.Info("Kafka consumer context cancelled")
			return ctx.Err()
		}
	}
}

// processMessage decodes a record batch and hands it to the handler.
// Undecodable messages are reported and must not be retried.
func (c *Consumer) processMessage(ctx context.Context, message *sarama.ConsumerMessage) (retry bool, err error) {
	var event RecordBatchEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return false, fmt.Errorf("failed to unmarshal record batch: %w", err)
	}
	if event.BatchID == "" {
		event.BatchID = string(message.Key)
	}

	c.logger.Info("Processing record batch",
		"batch_id", event.BatchID,
		"records", len(event.Records),
		"partition", message.Partition,
		"offset", message.Offset)

	if err := c.handler(ctx, event.BatchID, event.Records); err != nil {
		return !errors.Is(err, context.Canceled), fmt.Errorf("failed to resolve batch %s: %w", event.BatchID, err)
	}
	return false, nil
}

func (c *Consumer) recordMessage(err error) {
	if c.metrics != nil {
		c.metrics.RecordKafkaMessage(true, err)
	}
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.consumer.logger.Info("Kafka consumer group setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.consumer.logger.Info("Kafka consumer group cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			retry, err := h.consumer.processMessage(session.Context(), message)
			h.consumer.recordMessage(err)
			if err != nil {
				h.consumer.logger.Error("Failed to process message",
					"topic", message.Topic,
					"partition", message.Partition,
					"offset", message.Offset,
					"error", err)
				if retry {
					h.waitBeforeRetry(session.Context())
					return err
				}
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) waitBeforeRetry(ctx context.Context) {
	if h.consumer.retryBackoff <= 0 {
		return
	}
	timer := time.NewTimer(h.consumer.retryBackoff)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
