package network

import (
	"fmt"
	"sort"
)

// DefaultDecayFactor halves risk at every hop
const DefaultDecayFactor = 0.5

// PropagateRisk spreads the source node's risk breadth-first over at most
// maxHops hops, ignoring edge direction. The running risk is multiplied by
// decayFactor at each hop, and a newly reached node receives
// running × confidence × weight of the edge that reached it. Each node is
// reached once: the first path in (hop, source id, edge id) order wins.
// The result includes the source at its own risk score.
func (n *Network) PropagateRisk(sourceID string, maxHops int, decayFactor float64) (map[string]float64, error) {
	source, ok := n.nodes[sourceID]
	if !ok {
		return nil, fmt.Errorf("propagate risk from %q: %w", sourceID, ErrNodeNotFound)
	}

	contributions := map[string]float64{sourceID: source.RiskScore}
	visited := map[string]bool{sourceID: true}
	frontier := []string{sourceID}
	current := source.RiskScore

	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		current *= decayFactor

		var next []string
		for _, nodeID := range frontier {
			for _, edge := range n.incident(nodeID) {
				neighbor := edge.Other(nodeID)
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				contributions[neighbor] = current * edge.Confidence * edge.Weight
				next = append(next, neighbor)
			}
		}
		sort.Strings(next)
		frontier = next
	}

	return contributions, nil
}
