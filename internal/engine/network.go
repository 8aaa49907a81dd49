package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aegisshield/entity-network/internal/models"
	"github.com/aegisshield/entity-network/internal/network"
)

// NetworkRequest carries the inputs of one network build
type NetworkRequest struct {
	Entities         []models.ResolvedEntity  `json:"entities"`
	RiskScores       map[string]float64       `json:"risk_scores,omitempty"`
	Transactions     []models.Transaction     `json:"transactions,omitempty"`
	CorporateRecords []models.CorporateRecord `json:"corporate_records,omitempty"`
	PropagateFrom    []string                 `json:"propagate_from,omitempty"`
	MaxHops          int                      `json:"max_hops,omitempty"`
	DecayFactor      float64                  `json:"decay_factor,omitempty"`
}

// NetworkResult is the outcome of one network build
type NetworkResult struct {
	NetworkID     string                        `json:"network_id"`
	Summary       network.Summary               `json:"summary"`
	ExplicitEdges int                           `json:"explicit_edges"`
	InferredEdges int                           `json:"inferred_edges"`
	Propagation   map[string]map[string]float64 `json:"propagation,omitempty"`
	Components    [][]string                    `json:"components"`
	Export        network.Export                `json:"export"`
}

// BuildNetwork generates a network from resolved entities and the
// transaction and corporate feeds, then exports it to the graph sink
func (s *Service) BuildNetwork(ctx context.Context, req NetworkRequest) (*NetworkResult, error) {
	startTime := time.Now()

	if err := validateNetworkRequest(req); err != nil {
		return nil, err
	}
	maxHops := req.MaxHops
	if maxHops <= 0 {
		maxHops = s.options.MaxHops
	}
	decay := req.DecayFactor
	if decay == 0 {
		decay = s.options.DecayFactor
	}

	generator := network.NewGenerator(s.options.Network, s.logger)
	for _, entity := range req.Entities {
		generator.CreateNodeFromEntity(entity, req.RiskScores[entity.ResolvedID])
	}

	// count stored edges, not returned ones: duplicates resolve to the existing edge
	before := generator.Network().EdgeCount()
	generator.ExtractRelationshipsFromTransactions(req.Transactions)
	generator.ExtractRelationshipsFromCorporateData(req.CorporateRecords)
	explicit := generator.Network().EdgeCount() - before
	inferred := generator.RunInference()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &NetworkResult{
		NetworkID:     uuid.New().String(),
		Summary:       generator.Summary(),
		ExplicitEdges: explicit,
		InferredEdges: len(inferred),
		Components:    generator.Components(),
		Export:        generator.Export(),
	}

	if len(req.PropagateFrom) > 0 {
		result.Propagation = make(map[string]map[string]float64, len(req.PropagateFrom))
		for _, source := range req.PropagateFrom {
			scores, err := generator.PropagateRisk(source, maxHops, decay)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
			result.Propagation[source] = scores
		}
	}

	if s.deps.Sink != nil {
		err := s.metrics.TrackNeo4jOperation(func() error {
			return s.deps.Sink.WriteExport(ctx, result.Export)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store network %s: %w", result.NetworkID, err)
		}
	}

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishNetworkGenerated(ctx, result.NetworkID, result.Summary, result.InferredEdges); err != nil {
			s.logger.Warn("Failed to publish network event", "network_id", result.NetworkID, "error", err)
		}
	}

	duration := time.Since(startTime)
	s.metrics.RecordNetworkGenerated(result.Summary.NodeCount, result.InferredEdges, duration)
	s.logger.Info("Network generated",
		"network_id", result.NetworkID,
		"nodes", result.Summary.NodeCount,
		"edges", result.Summary.EdgeCount,
		"inferred_edges", result.InferredEdges,
		"duration", duration)

	return result, nil
}

func validateNetworkRequest(req NetworkRequest) error {
	seen := make(map[string]bool, len(req.Entities))
	for i, entity := range req.Entities {
		if entity.ResolvedID == "" {
			return fmt.Errorf("%w: entity at position %d has no resolved_id", ErrInvalidRequest, i)
		}
		if seen[entity.ResolvedID] {
			return fmt.Errorf("%w: duplicate entity %q", ErrInvalidRequest, entity.ResolvedID)
		}
		seen[entity.ResolvedID] = true
	}
	if req.MaxHops < 0 {
		return fmt.Errorf("%w: max_hops must not be negative", ErrInvalidRequest)
	}
	if req.DecayFactor < 0 || req.DecayFactor > 1 {
		return fmt.Errorf("%w: decay_factor must be within [0, 1]", ErrInvalidRequest)
	}
	return nil
}
