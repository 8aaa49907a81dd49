package network

import (
	"log/slog"
	"sort"

	"github.com/aegisshield/entity-network/internal/models"
)

// DefaultHighRiskThreshold marks nodes counted as high risk in summaries
const DefaultHighRiskThreshold = 0.7

// EngineConfig lists the inference rules and thresholds of one generator.
// Behaviour is fully determined by what the caller passes in.
type EngineConfig struct {
	Rules             []Rule
	HighRiskThreshold float64
}

// DefaultEngineConfig returns the standard rule set
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Rules:             DefaultRules(),
		HighRiskThreshold: DefaultHighRiskThreshold,
	}
}

// Generator builds one network: nodes from entities, explicit edges from
// transaction and corporate feeds, inferred edges from rules.
type Generator struct {
	network *Network
	config  EngineConfig
	logger  *slog.Logger
}

// NewGenerator creates a generator owning a fresh network
func NewGenerator(config EngineConfig, logger *slog.Logger) *Generator {
	if config.HighRiskThreshold <= 0 {
		config.HighRiskThreshold = DefaultHighRiskThreshold
	}
	config.Rules = append([]Rule(nil), config.Rules...)
	return &Generator{
		network: NewNetwork(),
		config:  config,
		logger:  logger,
	}
}

// Network returns the network under construction
func (g *Generator) Network() *Network {
	return g.network
}

// AddRule appends an inference rule
func (g *Generator) AddRule(rule Rule) {
	g.config.Rules = append(g.config.Rules, rule)
}

// Rules returns the configured rule names in order
func (g *Generator) Rules() []string {
	names := make([]string, len(g.config.Rules))
	for i, r := range g.config.Rules {
		names[i] = r.Name()
	}
	return names
}

// CreateNode adds a node, or returns the existing node with the same id
func (g *Generator) CreateNode(id, kind, label string, attributes models.Attributes, riskScore float64, sourceSystems []string) *Node {
	if existing, ok := g.network.Node(id); ok {
		return existing
	}
	if attributes == nil {
		attributes = models.Attributes{}
	}

	node := &Node{
		ID:            id,
		Kind:          kind,
		Label:         label,
		Attributes:    attributes,
		RiskScore:     clamp01(riskScore),
		SourceSystems: append([]string(nil), sourceSystems...),
	}
	g.network.AddNode(node)
	return node
}

// CreateNodeFromEntity seeds a node from a resolved entity
func (g *Generator) CreateNodeFromEntity(entity models.ResolvedEntity, riskScore float64) *Node {
	return g.CreateNode(
		entity.ResolvedID,
		entity.EntityKind,
		entity.CanonicalName,
		entity.Attributes.Clone(),
		riskScore,
		entity.SourceSystems,
	)
}

// CreateEdge adds a directed edge identified by (source, target, kind).
// An unknown kind is recorded as RELATED_TO. Creating the same edge twice
// returns the stored edge.
func (g *Generator) CreateEdge(sourceID, targetID, kind string, attributes models.Attributes, weight, confidence float64) *Edge {
	return g.createEdge(sourceID, targetID, g.parseKind(kind), "", attributes, weight, confidence, nil)
}

func (g *Generator) parseKind(kind string) RelationshipKind {
	parsed, ok := ParseRelationshipKind(kind)
	if !ok {
		g.logger.Debug("Unknown relationship kind, using RELATED_TO",
			"kind", kind)
	}
	return parsed
}

func (g *Generator) createEdge(sourceID, targetID string, kind RelationshipKind, discriminator string,
	attributes models.Attributes, weight, confidence float64, evidence []Evidence) *Edge {
	id := EdgeIDWith(sourceID, targetID, kind, discriminator)
	if existing, ok := g.network.Edge(id); ok {
		return existing
	}
	if attributes == nil {
		attributes = models.Attributes{}
	}
	if weight < 0 {
		weight = -weight
	}

	edge := &Edge{
		ID:         id,
		SourceID:   sourceID,
		TargetID:   targetID,
		Kind:       kind,
		Weight:     weight,
		Confidence: clamp01(confidence),
		Attributes: attributes,
		Evidence:   evidence,
	}
	g.network.AddEdge(edge)
	return edge
}

// RunInference applies every rule once and inserts edges whose id is not
// yet present. It returns only the inserted edges, so repeated runs add nothing.
func (g *Generator) RunInference() []*Edge {
	var inserted []*Edge
	for _, rule := range g.config.Rules {
		candidates := rule.Apply(g.network)
		added := 0
		for i := range candidates {
			edge := candidates[i]
			if g.network.AddEdge(&edge) {
				inserted = append(inserted, &edge)
				added++
			}
		}
		g.logger.Debug("Inference rule applied",
			"rule", rule.Name(),
			"candidates", len(candidates),
			"inserted", added)
	}
	return inserted
}

// PropagateRisk spreads the risk of source through the network
func (g *Generator) PropagateRisk(sourceID string, maxHops int, decayFactor float64) (map[string]float64, error) {
	return g.network.PropagateRisk(sourceID, maxHops, decayFactor)
}

// NetworkMetrics computes degree, exposure and clustering for one node
func (g *Generator) NetworkMetrics(nodeID string) (Metrics, error) {
	return g.network.NodeMetrics(nodeID)
}

// Summary aggregates counts and risk over the whole network
func (g *Generator) Summary() Summary {
	return g.network.Summary(g.config.HighRiskThreshold)
}

// ShortestPath returns a fewest-hops path between two nodes
func (g *Generator) ShortestPath(from, to string) ([]string, error) {
	return g.network.ShortestPath(from, to)
}

// Components returns the connected components of the network
func (g *Generator) Components() [][]string {
	return g.network.Components()
}

// Export renders the network in the graph-database import shape
func (g *Generator) Export() Export {
	return g.network.Export()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
