package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/entity-network/internal/matching"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8084, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, 0.75, cfg.Resolution.MatchThreshold)
	assert.Equal(t, []string{"soundex", "ngram"}, cfg.Resolution.BlockingStrategies)
	assert.Equal(t, 0.5, cfg.Network.DecayFactor)
	assert.Equal(t, 0.7, cfg.Network.HighRiskThreshold)
	assert.Len(t, cfg.Network.Rules, 4)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ENTITY_NETWORK_SERVER_HTTP_PORT", "9090")
	t.Setenv("ENTITY_NETWORK_RESOLUTION_MATCH_THRESHOLD", "0.82")
	t.Setenv("ENTITY_NETWORK_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ENTITY_NETWORK_REDIS_TTL", "15m")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, 0.82, cfg.Resolution.MatchThreshold)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
	assert.Equal(t, 15*time.Minute, cfg.Redis.TTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad http port", map[string]string{"ENTITY_NETWORK_SERVER_HTTP_PORT": "70000"}},
		{"threshold out of range", map[string]string{"ENTITY_NETWORK_RESOLUTION_MATCH_THRESHOLD": "1.5"}},
		{"decay out of range", map[string]string{"ENTITY_NETWORK_NETWORK_DECAY_FACTOR": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New())
			assert.Error(t, err)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	bad := *cfg
	bad.Resolution.BlockingStrategies = []string{"soundex", "bogus"}
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Network.Rules = []string{"address", "shoe_size"}
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Database.Enabled = true
	bad.Database.URL = ""
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Kafka.Enabled = true
	bad.Kafka.Brokers = " , "
	assert.Error(t, validateConfig(&bad))
}

func TestResolverConfig(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	cfg.Resolution.BlockingStrategies = []string{"Metaphone", "token"}
	cfg.Resolution.Workers = 3
	cfg.Resolution.Weights = map[string]float64{"name": 0.5}

	rc := cfg.ResolverConfig()
	assert.Equal(t, []matching.Strategy{matching.StrategyMetaphone, matching.StrategyToken}, rc.Blocking.Strategies)
	assert.Equal(t, 3, rc.Workers)
	assert.Equal(t, 0.75, rc.MatchThreshold)
	assert.Equal(t, 0.5, rc.Weights["name"])
	assert.Equal(t, matching.DefaultWeights()[matching.ScoreDOB], rc.Weights[matching.ScoreDOB])

	cfg.Resolution.BlockingStrategies = nil
	cfg.Resolution.Workers = 0
	rc = cfg.ResolverConfig()
	assert.Equal(t, matching.DefaultBlockingConfig().Strategies, rc.Blocking.Strategies)
	assert.GreaterOrEqual(t, rc.Workers, 1)
}

func TestNetworkEngineConfig(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	ec := cfg.NetworkEngineConfig()
	require.Len(t, ec.Rules, 4)
	assert.Equal(t, "shared_attribute:address", ec.Rules[0].Name())
	assert.Equal(t, "transaction_pattern", ec.Rules[3].Name())
	assert.Equal(t, 0.7, ec.HighRiskThreshold)

	cfg.Network.Rules = []string{"EMAIL"}
	ec = cfg.NetworkEngineConfig()
	require.Len(t, ec.Rules, 1)
	assert.Equal(t, "shared_attribute:email", ec.Rules[0].Name())
}
