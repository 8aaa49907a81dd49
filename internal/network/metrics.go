package network

import (
	"fmt"
	"strings"
)

// Metrics describes one node's position in the network
type Metrics struct {
	NodeID                string  `json:"node_id"`
	InDegree              int     `json:"in_degree"`
	OutDegree             int     `json:"out_degree"`
	TotalDegree           int     `json:"total_degree"`
	NeighborCount         int     `json:"neighbor_count"`
	RiskExposure          float64 `json:"risk_exposure"`
	ClusteringCoefficient float64 `json:"clustering_coefficient"`
}

// NodeMetrics computes degree, one-hop risk exposure and the local
// clustering coefficient of a node
func (n *Network) NodeMetrics(nodeID string) (Metrics, error) {
	if _, ok := n.nodes[nodeID]; !ok {
		return Metrics{}, fmt.Errorf("metrics for %q: %w", nodeID, ErrNodeNotFound)
	}

	neighbors := SortedIDs(n.Neighbors(nodeID, 1))

	exposure := 0.0
	for _, id := range neighbors {
		if node, ok := n.nodes[id]; ok {
			exposure += node.RiskScore
		}
	}

	in, out := n.InDegree(nodeID), n.OutDegree(nodeID)
	return Metrics{
		NodeID:                nodeID,
		InDegree:              in,
		OutDegree:             out,
		TotalDegree:           in + out,
		NeighborCount:         len(neighbors),
		RiskExposure:          exposure,
		ClusteringCoefficient: n.clustering(neighbors),
	}, nil
}

// clustering counts distinct connected neighbour pairs over k(k-1)/2
func (n *Network) clustering(neighbors []string) float64 {
	k := len(neighbors)
	if k < 2 {
		return 0
	}

	members := make(map[string]bool, k)
	for _, id := range neighbors {
		members[id] = true
	}

	linked := make(map[partyPair]bool)
	for _, id := range neighbors {
		for _, edge := range n.out[id] {
			e := n.edges[edge]
			if e.TargetID != id && members[e.TargetID] {
				linked[orderedPair(id, e.TargetID)] = true
			}
		}
	}

	possible := float64(k*(k-1)) / 2
	return float64(len(linked)) / possible
}

// Summary aggregates a whole network
type Summary struct {
	NodeCount         int            `json:"node_count"`
	EdgeCount         int            `json:"edge_count"`
	NodeTypes         map[string]int `json:"node_types"`
	RelationshipTypes map[string]int `json:"relationship_types"`
	AvgRiskScore      float64        `json:"avg_risk_score"`
	HighRiskNodes     int            `json:"high_risk_nodes"`
}

// Summary counts nodes and edges by kind and averages node risk. Nodes at or
// above highRisk are counted as high risk.
func (n *Network) Summary(highRisk float64) Summary {
	summary := Summary{
		NodeCount:         len(n.nodes),
		EdgeCount:         len(n.edges),
		NodeTypes:         make(map[string]int),
		RelationshipTypes: make(map[string]int),
	}

	total := 0.0
	for _, node := range n.nodes {
		kind := strings.ToLower(node.Kind)
		if kind == "" {
			kind = "unknown"
		}
		summary.NodeTypes[kind]++
		total += node.RiskScore
		if node.RiskScore >= highRisk {
			summary.HighRiskNodes++
		}
	}
	for _, edge := range n.edges {
		summary.RelationshipTypes[string(edge.Kind)]++
	}
	if len(n.nodes) > 0 {
		summary.AvgRiskScore = total / float64(len(n.nodes))
	}
	return summary
}
