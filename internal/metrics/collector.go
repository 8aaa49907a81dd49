package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector contains all metrics for the entity network service
type Collector struct {
	// Resolution metrics
	RecordsProcessedTotal    prometheus.Counter
	EntitiesResolvedTotal    prometheus.Counter
	ResolutionDuration       prometheus.Histogram
	ConfidenceScoreHistogram prometheus.Histogram
	CandidatePairsHistogram  prometheus.Histogram

	// Batch processing metrics
	BatchJobsTotal       prometheus.Counter
	BatchJobsCompleted   prometheus.Counter
	BatchJobsFailed      prometheus.Counter
	BatchSizeHistogram   prometheus.Histogram
	ActiveResolutionJobs prometheus.Gauge

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Network metrics
	NetworksGeneratedTotal prometheus.Counter
	NetworkBuildDuration   prometheus.Histogram
	NetworkNodesHistogram  prometheus.Histogram
	InferredEdgesTotal     prometheus.Counter

	// Dependency metrics
	DatabaseQueryDuration  prometheus.Histogram
	DatabaseErrors         prometheus.Counter
	Neo4jQueryDuration     prometheus.Histogram
	Neo4jErrors            prometheus.Counter
	KafkaMessagesProcessed prometheus.Counter
	KafkaMessagesPublished prometheus.Counter
	KafkaErrors            prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered with reg. Pass
// prometheus.DefaultRegisterer to expose the metrics on /metrics.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RecordsProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_records_processed_total",
			Help: "The total number of raw records submitted for resolution",
		}),
		EntitiesResolvedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_entities_resolved_total",
			Help: "The total number of resolved entities produced",
		}),
		ResolutionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_network_resolution_duration_seconds",
			Help:    "The duration of batch resolution in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ConfidenceScoreHistogram: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_network_confidence_score",
			Help:    "The confidence scores of resolved entities",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10), // 0.1, 0.2, ..., 1.0
		}),
		CandidatePairsHistogram: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_network_candidate_pairs",
			Help:    "The number of candidate pairs scored per batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),

		BatchJobsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_batch_jobs_total",
			Help: "The total number of batch jobs started",
		}),
		BatchJobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_batch_jobs_completed_total",
			Help: "The total number of batch jobs completed successfully",
		}),
		BatchJobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_batch_jobs_failed_total",
			Help: "The total number of batch jobs that failed",
		}),
		BatchSizeHistogram: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_network_batch_size",
			Help:    "The number of records per batch job",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		ActiveResolutionJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "entity_network_active_jobs",
			Help: "The number of currently running batch jobs",
		}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_cache_hits_total",
			Help: "The total number of resolution results served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_cache_misses_total",
			Help: "The total number of resolution cache misses",
		}),

		NetworksGeneratedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_networks_generated_total",
			Help: "The total number of networks generated",
		}),
		NetworkBuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_network_network_build_duration_seconds",
			Help:    "The duration of network generation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		NetworkNodesHistogram: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_network_network_nodes",
			Help:    "The number of nodes per generated network",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		InferredEdgesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_inferred_edges_total",
			Help: "The total number of edges added by inference rules",
		}),

		DatabaseQueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_network_database_query_duration_seconds",
			Help:    "The duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		DatabaseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_database_errors_total",
			Help: "The total number of database errors",
		}),
		Neo4jQueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entity_network_neo4j_query_duration_seconds",
			Help:    "The duration of Neo4j writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		Neo4jErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_neo4j_errors_total",
			Help: "The total number of Neo4j errors",
		}),
		KafkaMessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_kafka_messages_processed_total",
			Help: "The total number of Kafka messages consumed",
		}),
		KafkaMessagesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_kafka_messages_published_total",
			Help: "The total number of Kafka messages published",
		}),
		KafkaErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "entity_network_kafka_errors_total",
			Help: "The total number of Kafka errors",
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "entity_network_requests_total",
			Help: "The total number of API requests",
		}, []string{"transport", "method", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "entity_network_request_duration_seconds",
			Help:    "The duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"transport", "method"}),
	}
}

// RecordBatchJobStarted records the start of a batch job
func (c *Collector) RecordBatchJobStarted(batchSize int) {
	c.BatchJobsTotal.Inc()
	c.BatchSizeHistogram.Observe(float64(batchSize))
	c.RecordsProcessedTotal.Add(float64(batchSize))
	c.ActiveResolutionJobs.Inc()
}

// RecordBatchJobCompleted records the completion of a batch job
func (c *Collector) RecordBatchJobCompleted(successful bool) {
	c.ActiveResolutionJobs.Dec()
	if successful {
		c.BatchJobsCompleted.Inc()
	} else {
		c.BatchJobsFailed.Inc()
	}
}

// RecordResolution records the outcome of one resolution run
func (c *Collector) RecordResolution(confidences []float64, candidatePairs int, duration time.Duration) {
	c.EntitiesResolvedTotal.Add(float64(len(confidences)))
	c.ResolutionDuration.Observe(duration.Seconds())
	c.CandidatePairsHistogram.Observe(float64(candidatePairs))
	for _, confidence := range confidences {
		c.ConfidenceScoreHistogram.Observe(confidence)
	}
}

// RecordCacheLookup records a resolution cache hit or miss
func (c *Collector) RecordCacheLookup(hit bool) {
	if hit {
		c.CacheHits.Inc()
	} else {
		c.CacheMisses.Inc()
	}
}

// RecordNetworkGenerated records one network build
func (c *Collector) RecordNetworkGenerated(nodes, inferredEdges int, duration time.Duration) {
	c.NetworksGeneratedTotal.Inc()
	c.NetworkNodesHistogram.Observe(float64(nodes))
	c.InferredEdgesTotal.Add(float64(inferredEdges))
	c.NetworkBuildDuration.Observe(duration.Seconds())
}

// RecordDatabaseQuery records database query metrics
func (c *Collector) RecordDatabaseQuery(duration time.Duration, err error) {
	c.DatabaseQueryDuration.Observe(duration.Seconds())
	if err != nil {
		c.DatabaseErrors.Inc()
	}
}

// RecordNeo4jQuery records Neo4j query metrics
func (c *Collector) RecordNeo4jQuery(duration time.Duration, err error) {
	c.Neo4jQueryDuration.Observe(duration.Seconds())
	if err != nil {
		c.Neo4jErrors.Inc()
	}
}

// RecordKafkaMessage records Kafka message processing
func (c *Collector) RecordKafkaMessage(processed bool, err error) {
	if processed {
		c.KafkaMessagesProcessed.Inc()
	} else {
		c.KafkaMessagesPublished.Inc()
	}

	if err != nil {
		c.KafkaErrors.Inc()
	}
}

// RecordRequest records one HTTP or gRPC request
func (c *Collector) RecordRequest(transport, method, status string, duration time.Duration) {
	c.RequestsTotal.WithLabelValues(transport, method, status).Inc()
	c.RequestDuration.WithLabelValues(transport, method).Observe(duration.Seconds())
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// TrackDatabaseOperation times a database operation and counts its failure
func (c *Collector) TrackDatabaseOperation(operation func() error) error {
	timer := NewTimer()
	err := operation()
	c.RecordDatabaseQuery(timer.Duration(), err)
	return err
}

// TrackNeo4jOperation times a Neo4j operation and counts its failure
func (c *Collector) TrackNeo4jOperation(operation func() error) error {
	timer := NewTimer()
	err := operation()
	c.RecordNeo4jQuery(timer.Duration(), err)
	return err
}
