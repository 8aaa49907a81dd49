package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/aegisshield/entity-network/internal/config"
	"github.com/aegisshield/entity-network/internal/network"
)

// Sink writes exported networks into Neo4j
type Sink struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
	config config.Neo4jConfig
}

type statement struct {
	query  string
	params map[string]interface{}
}

// labels and relationship types cannot be parameterised in Cypher
var identifierPattern = regexp.MustCompile(`[^A-Z0-9_]`)

// NewSink creates a new Neo4j sink and verifies connectivity
func NewSink(cfg config.Neo4jConfig, logger *slog.Logger) (*Sink, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = cfg.MaxConnections
			config.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	sink := &Sink{
		driver: driver,
		logger: logger,
		config: cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectionTimeout)
	defer cancel()

	if err := sink.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	if err := sink.createIndexes(ctx); err != nil {
		logger.Warn("Failed to create Neo4j indexes", "error", err)
	}

	return sink, nil
}

// Close closes the Neo4j driver
func (s *Sink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.driver.Close(ctx)
}

// VerifyConnectivity verifies the connection to Neo4j
func (s *Sink) VerifyConnectivity(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// WriteExport merges every node and relationship of an export in one
// write transaction. Nodes are matched on id, relationships on id between
// their endpoints, so rewriting the same export is idempotent.
func (s *Sink) WriteExport(ctx context.Context, export network.Export) error {
	statements := buildStatements(export)
	if len(statements) == 0 {
		return nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.config.Database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for _, stmt := range statements {
			result, err := tx.Run(ctx, stmt.query, stmt.params)
			if err != nil {
				return nil, err
			}
			if _, err := result.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to write network export: %w", err)
	}

	s.logger.Info("Network export written to Neo4j",
		"nodes", len(export.Nodes),
		"relationships", len(export.Relationships))
	return nil
}

func buildStatements(export network.Export) []statement {
	nodesByLabel := make(map[string][]map[string]interface{})
	for _, node := range export.Nodes {
		row := map[string]interface{}{
			"id":    node.ID,
			"props": node.Properties,
		}
		for _, label := range node.Labels {
			label = sanitizeIdentifier(label)
			nodesByLabel[label] = append(nodesByLabel[label], row)
		}
		if len(node.Labels) == 0 {
			nodesByLabel[""] = append(nodesByLabel[""], row)
		}
	}

	relsByType := make(map[string][]map[string]interface{})
	for _, rel := range export.Relationships {
		relType := sanitizeIdentifier(rel.Type)
		if relType == "" {
			relType = string(network.KindRelatedTo)
		}
		relsByType[relType] = append(relsByType[relType], map[string]interface{}{
			"id":    rel.ID,
			"start": rel.StartNode,
			"end":   rel.EndNode,
			"props": rel.Properties,
		})
	}

	var statements []statement
	for _, label := range sortedKeys(nodesByLabel) {
		query := "UNWIND $rows AS row MERGE (n:Entity {id: row.id}) SET n += row.props"
		if label != "" && label != "ENTITY" {
			query += fmt.Sprintf(" SET n:%s", label)
		}
		statements = append(statements, statement{
			query:  query,
			params: map[string]interface{}{"rows": nodesByLabel[label]},
		})
	}
	for _, relType := range sortedKeys(relsByType) {
		query := fmt.Sprintf("UNWIND $rows AS row "+
			"MERGE (a:Entity {id: row.start}) "+
			"MERGE (b:Entity {id: row.end}) "+
			"MERGE (a)-[r:%s {id: row.id}]->(b) "+
			"SET r += row.props", relType)
		statements = append(statements, statement{
			query:  query,
			params: map[string]interface{}{"rows": relsByType[relType]},
		})
	}
	return statements
}

func sanitizeIdentifier(s string) string {
	s = identifierPattern.ReplaceAllString(strings.ToUpper(strings.TrimSpace(s)), "_")
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return s
}

func sortedKeys(m map[string][]map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Sink) createIndexes(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.config.Database,
	})
	defer session.Close(ctx)

	queries := []string{
		"CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE",
		"CREATE INDEX entity_label_index IF NOT EXISTS FOR (e:Entity) ON (e.label)",
		"CREATE INDEX entity_risk_index IF NOT EXISTS FOR (e:Entity) ON (e.risk_score)",
	}

	for _, query := range queries {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			_, err := tx.Run(ctx, query, nil)
			return nil, err
		})

		if err != nil {
			s.logger.Warn("Failed to execute index creation query", "query", query, "error", err)
		}
	}

	return nil
}
