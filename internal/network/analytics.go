package network

import (
	"errors"
	"fmt"
	"sort"

	dgraph "github.com/dominikbraun/graph"
	ybgraph "github.com/yourbasic/graph"
)

// ShortestPath returns the node ids on a fewest-hops path from one node to
// another, ignoring edge direction
func (n *Network) ShortestPath(from, to string) ([]string, error) {
	for _, id := range []string{from, to} {
		if _, ok := n.nodes[id]; !ok {
			return nil, fmt.Errorf("shortest path endpoint %q: %w", id, ErrNodeNotFound)
		}
	}
	if from == to {
		return []string{from}, nil
	}

	g := dgraph.New(dgraph.StringHash)
	for _, id := range n.vertexIDs() {
		if err := g.AddVertex(id); err != nil && !errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return nil, fmt.Errorf("failed to add vertex %s: %w", id, err)
		}
	}
	for _, edge := range n.Edges() {
		if edge.SourceID == edge.TargetID {
			continue
		}
		err := g.AddEdge(edge.SourceID, edge.TargetID)
		if err != nil && !errors.Is(err, dgraph.ErrEdgeAlreadyExists) {
			return nil, fmt.Errorf("failed to add edge %s: %w", edge.ID, err)
		}
	}

	path, err := dgraph.ShortestPath(g, from, to)
	if errors.Is(err, dgraph.ErrTargetNotReachable) {
		return nil, fmt.Errorf("path %s -> %s: %w", from, to, ErrNoPath)
	}
	if err != nil {
		return nil, fmt.Errorf("shortest path %s -> %s: %w", from, to, err)
	}
	return path, nil
}

// Components partitions the network into connected components, ignoring
// edge direction. Each component is sorted and components are ordered by
// their smallest id. Edge endpoints that are not nodes are left out.
func (n *Network) Components() [][]string {
	ids := SortedIDs(nodeSet(n.nodes))
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	g := ybgraph.New(len(ids))
	for _, edge := range n.edges {
		src, okSrc := index[edge.SourceID]
		dst, okDst := index[edge.TargetID]
		if okSrc && okDst {
			g.AddBoth(src, dst)
		}
	}

	var components [][]string
	for _, members := range ybgraph.Components(g) {
		component := make([]string, len(members))
		for i, m := range members {
			component[i] = ids[m]
		}
		sort.Strings(component)
		components = append(components, component)
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	return components
}

// vertexIDs lists nodes plus any dangling edge endpoints
func (n *Network) vertexIDs() []string {
	set := nodeSet(n.nodes)
	for _, edge := range n.edges {
		set[edge.SourceID] = struct{}{}
		set[edge.TargetID] = struct{}{}
	}
	return SortedIDs(set)
}

func nodeSet(nodes map[string]*Node) map[string]struct{} {
	set := make(map[string]struct{}, len(nodes))
	for id := range nodes {
		set[id] = struct{}{}
	}
	return set
}
