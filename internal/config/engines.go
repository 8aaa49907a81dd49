package config

import (
	"runtime"
	"strings"

	"github.com/aegisshield/entity-network/internal/matching"
	"github.com/aegisshield/entity-network/internal/models"
	"github.com/aegisshield/entity-network/internal/network"
	"github.com/aegisshield/entity-network/internal/resolver"
)

// Inference rule names accepted in network.rules
const (
	RuleAddress            = "address"
	RulePhone              = "phone"
	RuleEmail              = "email"
	RuleTransactionPattern = "transaction_pattern"
)

func knownRule(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case RuleAddress, RulePhone, RuleEmail, RuleTransactionPattern:
		return true
	}
	return false
}

// ResolverConfig builds the resolution engine settings
func (c *Config) ResolverConfig() resolver.Config {
	rc := c.Resolution

	blocking := matching.BlockingConfig{
		NGramSize: rc.NGramSize,
		MaxNGrams: rc.MaxNGrams,
	}
	for _, s := range rc.BlockingStrategies {
		// validated on load
		if strategy, err := matching.ParseStrategy(s); err == nil {
			blocking.Strategies = append(blocking.Strategies, strategy)
		}
	}
	if len(blocking.Strategies) == 0 {
		blocking.Strategies = matching.DefaultBlockingConfig().Strategies
	}

	workers := rc.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// configured weights override the defaults key by key
	weights := matching.DefaultWeights()
	for key, w := range rc.Weights {
		weights[key] = w
	}

	return resolver.Config{
		MatchThreshold: rc.MatchThreshold,
		Blocking:       blocking,
		Weights:        weights,
		Workers:        workers,
	}
}

// NetworkEngineConfig builds the inference rule set and thresholds
func (c *Config) NetworkEngineConfig() network.EngineConfig {
	nc := c.Network

	var rules []network.Rule
	for _, name := range nc.Rules {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case RuleAddress:
			rules = append(rules, network.SharedAttributeRule{Attribute: models.AttrAddress, Kind: network.KindCoLocated, Confidence: 0.7})
		case RulePhone:
			rules = append(rules, network.SharedAttributeRule{Attribute: models.AttrPhone, Kind: network.KindSharesPhone, Confidence: 0.8})
		case RuleEmail:
			rules = append(rules, network.SharedAttributeRule{Attribute: models.AttrEmail, Kind: network.KindSharesEmail, Confidence: 0.8})
		case RuleTransactionPattern:
			rules = append(rules, network.TransactionPatternRule{MinCount: nc.TransactionMinCount, Confidence: nc.TransactionConfidence})
		}
	}

	return network.EngineConfig{
		Rules:             rules,
		HighRiskThreshold: nc.HighRiskThreshold,
	}
}
