package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagateRisk_SingleHop(t *testing.T) {
	g := newTestGenerator()
	g.CreateNode("src", "individual", "Source", nil, 0.8, nil)
	g.CreateNode("n1", "individual", "Neighbour", nil, 0.1, nil)
	g.CreateEdge("src", "n1", "RELATED_TO", nil, 1.0, 1.0)

	risk, err := g.PropagateRisk("src", 2, 0.5)
	require.NoError(t, err)

	assert.Len(t, risk, 2)
	assert.InDelta(t, 0.8, risk["src"], 1e-9)
	assert.InDelta(t, 0.4, risk["n1"], 1e-9)
}

func TestPropagateRisk_DecaysWithDistance(t *testing.T) {
	g := newTestGenerator()
	g.CreateNode("a", "individual", "A", nil, 0.8, nil)
	chain := []string{"a", "b", "c", "d", "e"}
	for i := 1; i < len(chain); i++ {
		g.CreateNode(chain[i], "individual", chain[i], nil, 0, nil)
		// alternate directions: propagation ignores them
		if i%2 == 0 {
			g.CreateEdge(chain[i], chain[i-1], "RELATED_TO", nil, 1.0, 1.0)
		} else {
			g.CreateEdge(chain[i-1], chain[i], "RELATED_TO", nil, 1.0, 1.0)
		}
	}

	risk, err := g.PropagateRisk("a", 3, 0.5)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, risk["b"], 1e-9)
	assert.InDelta(t, 0.2, risk["c"], 1e-9)
	assert.InDelta(t, 0.1, risk["d"], 1e-9)
	assert.Greater(t, risk["b"], risk["c"])
	assert.Greater(t, risk["c"], risk["d"])

	_, reached := risk["e"]
	assert.False(t, reached, "e is beyond max hops")
}

func TestPropagateRisk_FirstPathWins(t *testing.T) {
	g := newTestGenerator()
	g.CreateNode("s", "individual", "S", nil, 1.0, nil)
	g.CreateNode("m", "individual", "M", nil, 0, nil)
	g.CreateNode("t", "individual", "T", nil, 0, nil)
	g.CreateEdge("s", "t", "RELATED_TO", nil, 0.5, 1.0)
	g.CreateEdge("s", "m", "RELATED_TO", nil, 1.0, 1.0)
	g.CreateEdge("m", "t", "RELATED_TO", nil, 1.0, 1.0)

	risk, err := g.PropagateRisk("s", 3, 0.5)
	require.NoError(t, err)

	// t is reached directly at hop one; the two-hop path through m adds nothing
	assert.InDelta(t, 0.25, risk["t"], 1e-9)
	assert.InDelta(t, 0.5, risk["m"], 1e-9)
}

func TestPropagateRisk_Edges(t *testing.T) {
	g := newTestGenerator()
	g.CreateNode("s", "individual", "S", nil, 0.6, nil)
	g.CreateEdge("s", "x", "RELATED_TO", nil, 1.0, 0.5)

	t.Run("zero hops", func(t *testing.T) {
		risk, err := g.PropagateRisk("s", 0, 0.5)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"s": 0.6}, risk)
	})

	t.Run("dangling endpoint", func(t *testing.T) {
		risk, err := g.PropagateRisk("s", 1, 0.5)
		require.NoError(t, err)
		assert.InDelta(t, 0.15, risk["x"], 1e-9)
	})

	t.Run("unknown source", func(t *testing.T) {
		_, err := g.PropagateRisk("missing", 2, 0.5)
		assert.True(t, errors.Is(err, ErrNodeNotFound))
	})
}
