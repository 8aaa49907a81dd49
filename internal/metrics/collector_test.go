package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_BatchLifecycle(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordBatchJobStarted(5)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ActiveResolutionJobs))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.RecordsProcessedTotal))

	c.RecordResolution([]float64{0.8, 0.65}, 3, 20*time.Millisecond)
	c.RecordBatchJobCompleted(true)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.ActiveResolutionJobs))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BatchJobsCompleted))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.BatchJobsFailed))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.EntitiesResolvedTotal))
}

func TestCollector_Track(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	boom := errors.New("boom")

	assert.NoError(t, c.TrackDatabaseOperation(func() error { return nil }))
	assert.ErrorIs(t, c.TrackDatabaseOperation(func() error { return boom }), boom)
	assert.ErrorIs(t, c.TrackNeo4jOperation(func() error { return boom }), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.DatabaseErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Neo4jErrors))
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordCacheLookup(true)
	c.RecordCacheLookup(false)
	c.RecordCacheLookup(false)
	c.RecordNetworkGenerated(10, 4, time.Second)
	c.RecordKafkaMessage(false, nil)
	c.RecordKafkaMessage(true, errors.New("decode"))
	c.RecordRequest("http", "/api/v1/resolve", "200", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheMisses))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.InferredEdgesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.KafkaMessagesPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.KafkaErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RequestsTotal.WithLabelValues("http", "/api/v1/resolve", "200")))
}
