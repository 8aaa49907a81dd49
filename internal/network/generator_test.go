package network

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/entity-network/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGenerator() *Generator {
	return NewGenerator(DefaultEngineConfig(), testLogger())
}

func attrs(kv map[string]interface{}) models.Attributes {
	return models.AttributesFromNative(kv)
}

func TestGenerator_CreateNode(t *testing.T) {
	g := newTestGenerator()

	first := g.CreateNode("E1", "individual", "John Smith", nil, 0.4, []string{"kyc"})
	second := g.CreateNode("E1", "company", "Other", nil, 0.9, nil)

	assert.Same(t, first, second)
	assert.Equal(t, "individual", second.Kind)
	assert.Equal(t, 1, g.Network().NodeCount())

	clamped := g.CreateNode("E2", "individual", "X", nil, 1.7, nil)
	assert.Equal(t, 1.0, clamped.RiskScore)
}

func TestGenerator_CreateNodeFromEntity(t *testing.T) {
	g := newTestGenerator()
	entity := models.ResolvedEntity{
		ResolvedID:    "abc123",
		CanonicalName: "Acme Holdings",
		EntityKind:    "company",
		SourceSystems: []string{"registry"},
		Attributes:    attrs(map[string]interface{}{"country": "SG"}),
	}

	node := g.CreateNodeFromEntity(entity, 0.3)
	assert.Equal(t, "abc123", node.ID)
	assert.Equal(t, "Acme Holdings", node.Label)
	assert.Equal(t, "company", node.Kind)
	assert.Equal(t, "SG", node.Attributes.Text("country"))
	assert.Equal(t, []string{"registry"}, node.SourceSystems)

	// the node owns its attributes
	node.Attributes["country"] = models.StringValue("MY")
	assert.Equal(t, "SG", entity.Attributes.Text("country"))
}

func TestGenerator_CreateEdge(t *testing.T) {
	tests := []struct {
		name string
		kind string
		want RelationshipKind
	}{
		{"known kind", "OWNS", KindOwns},
		{"lower case", "director_of", KindDirectorOf},
		{"unknown kind", "KNOWS_ABOUT", KindRelatedTo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator()
			edge := g.CreateEdge("a", "b", tt.kind, nil, 1.0, 0.9)
			assert.Equal(t, tt.want, edge.Kind)
			assert.Equal(t, EdgeID("a", "b", tt.want), edge.ID)
		})
	}
}

func TestGenerator_EdgeIdempotence(t *testing.T) {
	g := newTestGenerator()

	first := g.CreateEdge("a", "b", "OWNS", nil, 1.0, 0.9)
	second := g.CreateEdge("a", "b", "OWNS", nil, 5.0, 0.1)

	assert.Same(t, first, second)
	assert.Equal(t, 1, g.Network().EdgeCount())
	assert.Equal(t, 1.0, second.Weight)

	reverse := g.CreateEdge("b", "a", "OWNS", nil, 1.0, 0.9)
	assert.NotEqual(t, first.ID, reverse.ID)
	assert.Equal(t, 2, g.Network().EdgeCount())
}

func TestGenerator_Summary(t *testing.T) {
	g := newTestGenerator()
	g.CreateNode("a", "individual", "A", nil, 0.9, nil)
	g.CreateNode("b", "individual", "B", nil, 0.7, nil)
	g.CreateNode("c", "company", "C", nil, 0.2, nil)
	g.CreateEdge("a", "c", "DIRECTOR_OF", nil, 1, 1)
	g.CreateEdge("b", "c", "DIRECTOR_OF", nil, 1, 1)
	g.CreateEdge("a", "b", "FAMILY_OF", nil, 1, 1)

	summary := g.Summary()
	assert.Equal(t, 3, summary.NodeCount)
	assert.Equal(t, 3, summary.EdgeCount)
	assert.Equal(t, map[string]int{"individual": 2, "company": 1}, summary.NodeTypes)
	assert.Equal(t, map[string]int{"DIRECTOR_OF": 2, "FAMILY_OF": 1}, summary.RelationshipTypes)
	assert.InDelta(t, 0.6, summary.AvgRiskScore, 1e-9)
	assert.Equal(t, 2, summary.HighRiskNodes)
}

func TestGenerator_EmptySummary(t *testing.T) {
	summary := newTestGenerator().Summary()
	assert.Zero(t, summary.NodeCount)
	assert.Zero(t, summary.AvgRiskScore)
}

func TestGenerator_Rules(t *testing.T) {
	g := NewGenerator(EngineConfig{}, testLogger())
	assert.Empty(t, g.Rules())
	assert.Empty(t, g.RunInference())

	g.AddRule(TransactionPatternRule{MinCount: 2, Confidence: 0.5})
	require.Equal(t, []string{"transaction_pattern"}, g.Rules())

	defaults := newTestGenerator().Rules()
	assert.Equal(t, []string{
		"shared_attribute:address",
		"shared_attribute:phone",
		"shared_attribute:email",
		"transaction_pattern",
	}, defaults)
}
