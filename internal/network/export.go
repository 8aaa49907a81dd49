package network

import "strings"

// ExportNode is one node in graph-database import form
type ExportNode struct {
	ID         string                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

// ExportRelationship is one edge in graph-database import form
type ExportRelationship struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	StartNode  string                 `json:"startNode"`
	EndNode    string                 `json:"endNode"`
	Properties map[string]interface{} `json:"properties"`
}

// Export is the stable contract consumed by the graph sink
type Export struct {
	Nodes         []ExportNode         `json:"nodes"`
	Relationships []ExportRelationship `json:"relationships"`
}

// Export renders every node and edge, sorted by id. Attribute values are
// flattened into properties; label, risk_score, weight and confidence
// always take precedence over attributes of the same name.
func (n *Network) Export() Export {
	export := Export{
		Nodes:         make([]ExportNode, 0, len(n.nodes)),
		Relationships: make([]ExportRelationship, 0, len(n.edges)),
	}

	for _, node := range n.Nodes() {
		props := node.Attributes.Native()
		props["label"] = node.Label
		props["risk_score"] = node.RiskScore

		export.Nodes = append(export.Nodes, ExportNode{
			ID:         node.ID,
			Labels:     nodeLabels(node.Kind),
			Properties: props,
		})
	}

	for _, edge := range n.Edges() {
		props := edge.Attributes.Native()
		props["weight"] = edge.Weight
		props["confidence"] = edge.Confidence

		export.Relationships = append(export.Relationships, ExportRelationship{
			ID:         edge.ID,
			Type:       string(edge.Kind),
			StartNode:  edge.SourceID,
			EndNode:    edge.TargetID,
			Properties: props,
		})
	}

	return export
}

func nodeLabels(kind string) []string {
	label := strings.ToUpper(strings.TrimSpace(kind))
	if label == "" {
		label = "ENTITY"
	}
	return []string{label}
}
