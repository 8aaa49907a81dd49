// Package network builds typed property graphs from resolved entities and
// the relationships between them.
package network

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"github.com/aegisshield/entity-network/internal/models"
)

var (
	// ErrNodeNotFound is returned when an operation names a node the network does not hold
	ErrNodeNotFound = errors.New("node not found")
	// ErrNoPath is returned when two nodes are not connected
	ErrNoPath = errors.New("no path between nodes")
)

// Evidence records why an edge exists
type Evidence map[string]interface{}

// Node is a party in the network
type Node struct {
	ID            string            `json:"id"`
	Kind          string            `json:"kind"`
	Label         string            `json:"label"`
	Attributes    models.Attributes `json:"attributes,omitempty"`
	RiskScore     float64           `json:"risk_score"`
	SourceSystems []string          `json:"source_systems,omitempty"`
}

// Edge is a directed, typed relationship between two nodes
type Edge struct {
	ID         string            `json:"id"`
	SourceID   string            `json:"source_id"`
	TargetID   string            `json:"target_id"`
	Kind       RelationshipKind  `json:"relationship_kind"`
	Weight     float64           `json:"weight"`
	Confidence float64           `json:"confidence"`
	Attributes models.Attributes `json:"attributes,omitempty"`
	Evidence   []Evidence        `json:"evidence,omitempty"`
}

// Other returns the endpoint of e opposite to id
func (e *Edge) Other(id string) string {
	if e.SourceID == id {
		return e.TargetID
	}
	return e.SourceID
}

// EdgeID derives the id of an edge from its endpoints and kind
func EdgeID(sourceID, targetID string, kind RelationshipKind) string {
	return EdgeIDWith(sourceID, targetID, kind, "")
}

// EdgeIDWith derives an edge id with an extra discriminator, so that e.g. two
// transactions between the same parties stay distinct edges
func EdgeIDWith(sourceID, targetID string, kind RelationshipKind, discriminator string) string {
	parts := []string{sourceID, targetID, string(kind)}
	if discriminator != "" {
		parts = append(parts, discriminator)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])[:16]
}

// Network owns a node map and an edge map keyed by id, plus per-node
// adjacency. It is owned by a single session and is not safe for concurrent mutation.
type Network struct {
	nodes map[string]*Node
	edges map[string]*Edge
	out   map[string][]string
	in    map[string][]string
}

// NewNetwork creates an empty network
func NewNetwork() *Network {
	return &Network{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// AddNode inserts node unless its id already exists. It reports whether it was inserted.
func (n *Network) AddNode(node *Node) bool {
	if node == nil || node.ID == "" {
		return false
	}
	if _, exists := n.nodes[node.ID]; exists {
		return false
	}
	n.nodes[node.ID] = node
	return true
}

// AddEdge inserts edge unless its id already exists. Endpoints need not be
// nodes of the network.
func (n *Network) AddEdge(edge *Edge) bool {
	if edge == nil || edge.ID == "" {
		return false
	}
	if _, exists := n.edges[edge.ID]; exists {
		return false
	}
	n.edges[edge.ID] = edge
	n.out[edge.SourceID] = append(n.out[edge.SourceID], edge.ID)
	n.in[edge.TargetID] = append(n.in[edge.TargetID], edge.ID)
	return true
}

// Node returns the node with id
func (n *Network) Node(id string) (*Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// Edge returns the edge with id
func (n *Network) Edge(id string) (*Edge, bool) {
	edge, ok := n.edges[id]
	return edge, ok
}

// HasEdge reports whether an edge id is present
func (n *Network) HasEdge(id string) bool {
	_, ok := n.edges[id]
	return ok
}

// NodeCount returns the number of nodes
func (n *Network) NodeCount() int {
	return len(n.nodes)
}

// EdgeCount returns the number of edges
func (n *Network) EdgeCount() int {
	return len(n.edges)
}

// Nodes returns all nodes sorted by id
func (n *Network) Nodes() []*Node {
	nodes := make([]*Node, 0, len(n.nodes))
	for _, node := range n.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all edges sorted by id
func (n *Network) Edges() []*Edge {
	edges := make([]*Edge, 0, len(n.edges))
	for _, edge := range n.edges {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

// InDegree counts edges ending at id
func (n *Network) InDegree(id string) int {
	return len(n.in[id])
}

// OutDegree counts edges starting at id
func (n *Network) OutDegree(id string) int {
	return len(n.out[id])
}

// incident returns the edges touching id in either direction, sorted by edge id
func (n *Network) incident(id string) []*Edge {
	ids := make([]string, 0, len(n.out[id])+len(n.in[id]))
	ids = append(ids, n.out[id]...)
	ids = append(ids, n.in[id]...)
	sort.Strings(ids)

	edges := make([]*Edge, 0, len(ids))
	var last string
	for _, edgeID := range ids {
		// self loops are listed in both directions
		if edgeID == last {
			continue
		}
		last = edgeID
		edges = append(edges, n.edges[edgeID])
	}
	return edges
}

// Neighbors returns the ids reachable from id within depth hops, ignoring
// edge direction. The origin itself is excluded; depth < 1 yields an empty set.
func (n *Network) Neighbors(id string, depth int) map[string]struct{} {
	result := make(map[string]struct{})
	if depth < 1 {
		return result
	}

	visited := map[string]bool{id: true}
	frontier := []string{id}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, current := range frontier {
			for _, edge := range n.incident(current) {
				other := edge.Other(current)
				if visited[other] {
					continue
				}
				visited[other] = true
				result[other] = struct{}{}
				next = append(next, other)
			}
		}
		sort.Strings(next)
		frontier = next
	}
	return result
}

// Subgraph returns the induced subgraph over ids: the listed nodes that exist
// and every edge with both endpoints in ids. Nodes and edges are shared, not copied.
func (n *Network) Subgraph(ids []string) *Network {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	sub := NewNetwork()
	for id := range want {
		if node, ok := n.nodes[id]; ok {
			sub.AddNode(node)
		}
	}
	for _, edge := range n.Edges() {
		if want[edge.SourceID] && want[edge.TargetID] {
			sub.AddEdge(edge)
		}
	}
	return sub
}

// SortedIDs returns the keys of a neighbour set in order
func SortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
