package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/aegisshield/entity-network/internal/config"
	"github.com/aegisshield/entity-network/internal/models"
	"github.com/aegisshield/entity-network/internal/network"
)

// Event types
const (
	EventEntityResolved   = "entity.resolved"
	EventNetworkGenerated = "network.generated"
	EventJobStatus        = "batch.job.status"
)

// EntityResolvedEvent announces one resolved entity
type EntityResolvedEvent struct {
	EventID         string    `json:"event_id"`
	EventType       string    `json:"event_type"`
	JobID           string    `json:"job_id"`
	ResolvedID      string    `json:"resolved_id"`
	EntityKind      string    `json:"entity_kind"`
	CanonicalName   string    `json:"canonical_name"`
	MemberRecordIDs []string  `json:"member_record_ids"`
	SourceSystems   []string  `json:"source_systems"`
	Confidence      float64   `json:"confidence"`
	Timestamp       time.Time `json:"timestamp"`
}

// NetworkGeneratedEvent announces a finished network build
type NetworkGeneratedEvent struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	NetworkID     string          `json:"network_id"`
	Summary       network.Summary `json:"summary"`
	InferredEdges int             `json:"inferred_edges"`
	Timestamp     time.Time       `json:"timestamp"`
}

// JobStatusEvent reports the state of a batch resolution job
type JobStatusEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	RecordCount int       `json:"record_count"`
	EntityCount int       `json:"entity_count"`
	CacheHit    bool      `json:"cache_hit"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Timestamp   time.Time `json:"timestamp"`
}

// Producer publishes resolution and network events
type Producer struct {
	producer sarama.SyncProducer
	config   config.KafkaConfig
	logger   *slog.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(cfg.BrokerList(), saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return newProducer(producer, cfg, logger), nil
}

func newProducer(producer sarama.SyncProducer, cfg config.KafkaConfig, logger *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		config:   cfg,
		logger:   logger,
	}
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.producer.Close()
}

// PublishEntityResolved publishes an entity.resolved event keyed by resolved id
func (p *Producer) PublishEntityResolved(ctx context.Context, jobID string, entity models.ResolvedEntity) error {
	event := &EntityResolvedEvent{
		EventID:         uuid.New().String(),
		EventType:       EventEntityResolved,
		JobID:           jobID,
		ResolvedID:      entity.ResolvedID,
		EntityKind:      entity.EntityKind,
		CanonicalName:   entity.CanonicalName,
		MemberRecordIDs: entity.MemberRecordIDs,
		SourceSystems:   entity.SourceSystems,
		Confidence:      entity.Confidence,
		Timestamp:       time.Now().UTC(),
	}

	return p.publishEvent(ctx, p.config.EntityResolvedTopic, entity.ResolvedID, event)
}

// PublishNetworkGenerated publishes a network.generated event
func (p *Producer) PublishNetworkGenerated(ctx context.Context, networkID string, summary network.Summary, inferredEdges int) error {
	event := &NetworkGeneratedEvent{
		EventID:       uuid.New().String(),
		EventType:     EventNetworkGenerated,
		NetworkID:     networkID,
		Summary:       summary,
		InferredEdges: inferredEdges,
		Timestamp:     time.Now().UTC(),
	}

	return p.publishEvent(ctx, p.config.NetworkEventsTopic, networkID, event)
}

// PublishJobStatus publishes batch job status updates
func (p *Producer) PublishJobStatus(ctx context.Context, job *models.ResolutionJob) error {
	event := &JobStatusEvent{
		EventID:     uuid.New().String(),
		EventType:   EventJobStatus,
		JobID:       job.ID,
		Status:      job.Status,
		RecordCount: job.RecordCount,
		EntityCount: job.EntityCount,
		CacheHit:    job.CacheHit,
		Error:       job.Error,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Timestamp:   time.Now().UTC(),
	}

	return p.publishEvent(ctx, p.config.JobStatusTopic, job.ID, event)
}

// PublishRecordBatch publishes raw records for asynchronous resolution
func (p *Producer) PublishRecordBatch(ctx context.Context, records []models.RawRecord) (string, error) {
	event := &RecordBatchEvent{
		BatchID:   uuid.New().String(),
		Records:   records,
		Timestamp: time.Now().UTC(),
	}

	return event.BatchID, p.publishEvent(ctx, p.config.RecordsTopic, event.BatchID, event)
}

// publishEvent publishes an event to the specified topic
func (p *Producer) publishEvent(ctx context.Context, topic, key string, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("content-type"),
				Value: []byte("application/json"),
			},
			{
				Key:   []byte("event-time"),
				Value: []byte(time.Now().UTC().Format(time.RFC3339)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		p.logger.Error("Failed to publish event",
			"topic", topic,
			"key", key,
			"error", err)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"topic", topic,
		"key", key,
		"partition", partition,
		"offset", offset)

	return nil
}
