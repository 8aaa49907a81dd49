package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aegisshield/entity-network/internal/cache"
	"github.com/aegisshield/entity-network/internal/metrics"
	"github.com/aegisshield/entity-network/internal/models"
	"github.com/aegisshield/entity-network/internal/network"
	"github.com/aegisshield/entity-network/internal/resolver"
)

var (
	// ErrInvalidRequest marks a network request the engine cannot build
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStoreDisabled is returned by lookups when no entity store is configured
	ErrStoreDisabled = errors.New("entity store not configured")
)

// EntityStore persists resolved entities and job records
type EntityStore interface {
	SaveEntities(ctx context.Context, entities []models.ResolvedEntity) error
	GetEntity(ctx context.Context, resolvedID string) (*models.ResolvedEntity, error)
	SaveJob(ctx context.Context, job *models.ResolutionJob) error
	GetJob(ctx context.Context, id string) (*models.ResolutionJob, error)
}

// ResultCache memoises resolution output by batch fingerprint
type ResultCache interface {
	GetResolution(ctx context.Context, fingerprint string) ([]models.ResolvedEntity, error)
	SetResolution(ctx context.Context, fingerprint string, entities []models.ResolvedEntity) error
}

// EventPublisher announces resolution and network results
type EventPublisher interface {
	PublishEntityResolved(ctx context.Context, jobID string, entity models.ResolvedEntity) error
	PublishNetworkGenerated(ctx context.Context, networkID string, summary network.Summary, inferredEdges int) error
	PublishJobStatus(ctx context.Context, job *models.ResolutionJob) error
}

// GraphSink stores exported networks
type GraphSink interface {
	WriteExport(ctx context.Context, export network.Export) error
}

// Dependencies are the optional adapters of a Service. A nil field
// disables the corresponding step.
type Dependencies struct {
	Store     EntityStore
	Cache     ResultCache
	Publisher EventPublisher
	Sink      GraphSink
}

// Options configures the engines owned by a Service
type Options struct {
	Resolver    resolver.Config
	Network     network.EngineConfig
	MaxHops     int
	DecayFactor float64
}

// Service runs batch resolution and network generation against the
// configured adapters
type Service struct {
	resolver *resolver.Engine
	options  Options
	deps     Dependencies
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewService creates a new orchestration service
func NewService(options Options, deps Dependencies, collector *metrics.Collector, logger *slog.Logger) *Service {
	if options.MaxHops <= 0 {
		options.MaxHops = 3
	}
	if options.DecayFactor <= 0 || options.DecayFactor > 1 {
		options.DecayFactor = network.DefaultDecayFactor
	}

	return &Service{
		resolver: resolver.NewEngine(options.Resolver, logger),
		options:  options,
		deps:     deps,
		metrics:  collector,
		logger:   logger,
	}
}

// ResolveBatch resolves one batch of raw records. A failed job is still
// recorded and announced before the error is returned.
func (s *Service) ResolveBatch(ctx context.Context, records []models.RawRecord) (*models.ResolutionJob, error) {
	job := &models.ResolutionJob{
		ID:          uuid.New().String(),
		Status:      models.JobStatusRunning,
		Fingerprint: s.Fingerprint(records),
		RecordCount: len(records),
		StartedAt:   time.Now().UTC(),
	}

	s.metrics.RecordBatchJobStarted(len(records))
	s.logger.Info("Resolution job started",
		"job_id", job.ID,
		"records", job.RecordCount,
		"fingerprint", job.Fingerprint)

	entities, err := s.resolve(ctx, job, records)
	if err != nil {
		s.finishJob(ctx, job, err)
		return job, err
	}

	if s.deps.Store != nil {
		err := s.metrics.TrackDatabaseOperation(func() error {
			return s.deps.Store.SaveEntities(ctx, entities)
		})
		if err != nil {
			s.finishJob(ctx, job, err)
			return job, err
		}
	}

	if s.deps.Publisher != nil {
		for _, entity := range entities {
			if err := s.deps.Publisher.PublishEntityResolved(ctx, job.ID, entity); err != nil {
				s.logger.Warn("Failed to publish resolved entity",
					"job_id", job.ID,
					"resolved_id", entity.ResolvedID,
					"error", err)
			}
		}
	}

	job.Entities = entities
	job.EntityCount = len(entities)
	s.finishJob(ctx, job, nil)
	return job, nil
}

func (s *Service) resolve(ctx context.Context, job *models.ResolutionJob, records []models.RawRecord) ([]models.ResolvedEntity, error) {
	if s.deps.Cache != nil {
		entities, err := s.deps.Cache.GetResolution(ctx, job.Fingerprint)
		switch {
		case err == nil:
			s.metrics.RecordCacheLookup(true)
			job.CacheHit = true
			s.logger.Info("Resolution served from cache", "job_id", job.ID)
			return entities, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.RecordCacheLookup(false)
		default:
			s.metrics.RecordCacheLookup(false)
			s.logger.Warn("Resolution cache lookup failed", "job_id", job.ID, "error", err)
		}
	}

	entities, stats, err := s.resolver.ResolveWithStats(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve batch: %w", err)
	}
	job.CandidatePairs = stats.CandidatePairs
	job.AcceptedPairs = stats.AcceptedPairs

	confidences := make([]float64, len(entities))
	for i, entity := range entities {
		confidences[i] = entity.Confidence
	}
	s.metrics.RecordResolution(confidences, stats.CandidatePairs, stats.Duration)

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetResolution(ctx, job.Fingerprint, entities); err != nil {
			s.logger.Warn("Failed to cache resolution", "job_id", job.ID, "error", err)
		}
	}

	return entities, nil
}

func (s *Service) finishJob(ctx context.Context, job *models.ResolutionJob, jobErr error) {
	job.CompletedAt = time.Now().UTC()
	if jobErr != nil {
		job.Status = models.JobStatusFailed
		job.Error = jobErr.Error()
		s.logger.Error("Resolution job failed", "job_id", job.ID, "error", jobErr)
	} else {
		job.Status = models.JobStatusCompleted
		s.logger.Info("Resolution job completed",
			"job_id", job.ID,
			"entities", job.EntityCount,
			"cache_hit", job.CacheHit,
			"duration", job.CompletedAt.Sub(job.StartedAt))
	}
	s.metrics.RecordBatchJobCompleted(jobErr == nil)

	if s.deps.Store != nil {
		err := s.metrics.TrackDatabaseOperation(func() error {
			return s.deps.Store.SaveJob(ctx, job)
		})
		if err != nil {
			s.logger.Warn("Failed to save resolution job", "job_id", job.ID, "error", err)
		}
	}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishJobStatus(ctx, job); err != nil {
			s.logger.Warn("Failed to publish job status", "job_id", job.ID, "error", err)
		}
	}
}

// Fingerprint identifies a batch by its content and the resolver settings.
// Record order does not matter.
func (s *Service) Fingerprint(records []models.RawRecord) string {
	sorted := make([]models.RawRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	h := sha256.New()
	h.Write([]byte(s.resolver.Signature()))
	for _, record := range sorted {
		fmt.Fprintf(h, "\x1e%s\x1f%s\x1f%s", record.ID, record.SourceSystem, record.EntityKind)
		for _, key := range record.Attributes.Keys() {
			value := record.Attributes[key]
			fmt.Fprintf(h, "\x1f%s=%s:%s", key, value.Kind(), value.String())
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetEntity returns a stored resolved entity
func (s *Service) GetEntity(ctx context.Context, resolvedID string) (*models.ResolvedEntity, error) {
	if s.deps.Store == nil {
		return nil, ErrStoreDisabled
	}
	var entity *models.ResolvedEntity
	err := s.metrics.TrackDatabaseOperation(func() error {
		var err error
		entity, err = s.deps.Store.GetEntity(ctx, resolvedID)
		return err
	})
	return entity, err
}

// GetJob returns a stored resolution job
func (s *Service) GetJob(ctx context.Context, id string) (*models.ResolutionJob, error) {
	if s.deps.Store == nil {
		return nil, ErrStoreDisabled
	}
	var job *models.ResolutionJob
	err := s.metrics.TrackDatabaseOperation(func() error {
		var err error
		job, err = s.deps.Store.GetJob(ctx, id)
		return err
	})
	return job, err
}
