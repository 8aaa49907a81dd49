package network

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aegisshield/entity-network/internal/models"
)

// Rule derives edges the data implies but does not state. Apply must not
// mutate the network; the generator decides which candidates are inserted.
type Rule interface {
	Name() string
	Apply(network *Network) []Edge
}

// DefaultRules returns the standard inference rule set
func DefaultRules() []Rule {
	return []Rule{
		SharedAttributeRule{Attribute: models.AttrAddress, Kind: KindCoLocated, Confidence: 0.7},
		SharedAttributeRule{Attribute: models.AttrPhone, Kind: KindSharesPhone, Confidence: 0.8},
		SharedAttributeRule{Attribute: models.AttrEmail, Kind: KindSharesEmail, Confidence: 0.8},
		TransactionPatternRule{MinCount: 3, Confidence: 0.85},
	}
}

// SharedAttributeRule links every pair of nodes holding the same non-empty
// value for one attribute
type SharedAttributeRule struct {
	Attribute  string
	Kind       RelationshipKind
	Confidence float64
}

// Name implements Rule
func (r SharedAttributeRule) Name() string {
	return fmt.Sprintf("shared_attribute:%s", r.Attribute)
}

// Apply implements Rule
func (r SharedAttributeRule) Apply(network *Network) []Edge {
	groups := make(map[string][]string)
	for _, node := range network.Nodes() {
		value, ok := node.Attributes.Get(r.Attribute)
		if !ok || value.IsZero() {
			continue
		}
		key := strings.TrimSpace(value.String())
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], node.ID)
	}

	var edges []Edge
	for _, value := range sortedKeys(groups) {
		ids := groups[value]
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				// Nodes() is sorted, so ids[i] < ids[j]
				edges = append(edges, Edge{
					ID:         EdgeID(ids[i], ids[j], r.Kind),
					SourceID:   ids[i],
					TargetID:   ids[j],
					Kind:       r.Kind,
					Weight:     1.0,
					Confidence: clamp01(r.Confidence),
					Attributes: models.Attributes{},
					Evidence: []Evidence{{
						"rule":      "shared_attribute",
						"attribute": r.Attribute,
						"value":     value,
					}},
				})
			}
		}
	}
	return edges
}

// TransactionPatternRule emits TRANSACTED_WITH between parties that
// exchanged at least MinCount transactions in either direction
type TransactionPatternRule struct {
	MinCount   int
	Confidence float64
}

// per extra transaction
const transactionConfidenceStep = 0.02

// Name implements Rule
func (r TransactionPatternRule) Name() string {
	return "transaction_pattern"
}

type partyPair struct {
	a, b string
}

func orderedPair(x, y string) partyPair {
	if x > y {
		x, y = y, x
	}
	return partyPair{a: x, b: y}
}

// Apply implements Rule
func (r TransactionPatternRule) Apply(network *Network) []Edge {
	counts := make(map[partyPair]int)
	totals := make(map[partyPair]float64)

	for _, edge := range network.Edges() {
		if edge.Kind != KindSentTo && edge.Kind != KindReceivedFrom {
			continue
		}
		pair := orderedPair(edge.SourceID, edge.TargetID)
		counts[pair]++
		if amount, ok := edge.Attributes.Get("amount"); ok {
			if f, ok := amount.AsNumber(); ok {
				totals[pair] += f
			}
		}
	}

	pairs := make([]partyPair, 0, len(counts))
	for pair, count := range counts {
		if count >= r.MinCount {
			pairs = append(pairs, pair)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})

	edges := make([]Edge, 0, len(pairs))
	for _, pair := range pairs {
		count := counts[pair]
		edges = append(edges, Edge{
			ID:         EdgeID(pair.a, pair.b, KindTransactedWith),
			SourceID:   pair.a,
			TargetID:   pair.b,
			Kind:       KindTransactedWith,
			Weight:     float64(count),
			Confidence: math.Min(1.0, r.Confidence+float64(count)*transactionConfidenceStep),
			Attributes: models.Attributes{},
			Evidence: []Evidence{{
				"rule":              "transaction_pattern",
				"transaction_count": count,
				"total_amount":      totals[pair],
			}},
		})
	}
	return edges
}
