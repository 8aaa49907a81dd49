package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aegisshield/entity-network/internal/matching"
	"github.com/aegisshield/entity-network/internal/models"
	"github.com/aegisshield/entity-network/internal/standardization"
)

// DefaultMatchThreshold is the minimum overall score for two records to merge
const DefaultMatchThreshold = 0.75

// Config controls one resolution engine
type Config struct {
	MatchThreshold float64
	Blocking       matching.BlockingConfig
	Weights        matching.Weights
	Workers        int
}

// DefaultConfig returns the standard resolution settings
func DefaultConfig() Config {
	return Config{
		MatchThreshold: DefaultMatchThreshold,
		Blocking:       matching.DefaultBlockingConfig(),
		Weights:        matching.DefaultWeights(),
		Workers:        runtime.NumCPU(),
	}
}

// Stats describes one resolution run
type Stats struct {
	Records        int           `json:"records"`
	Blocks         int           `json:"blocks"`
	CandidatePairs int           `json:"candidate_pairs"`
	AcceptedPairs  int           `json:"accepted_pairs"`
	Clusters       int           `json:"clusters"`
	Duration       time.Duration `json:"duration"`
}

// Engine turns raw records into resolved entities:
// standardize, block, score pairs, cluster, canonicalize.
type Engine struct {
	config     Config
	normalizer *standardization.Normalizer
	indexer    *matching.Indexer
	matcher    *matching.Matcher
	logger     *slog.Logger
}

type indexPair struct {
	a, b int
}

type scoredPair struct {
	indexPair
	candidate matching.MatchCandidate
}

// NewEngine creates a new resolution engine
func NewEngine(config Config, logger *slog.Logger) *Engine {
	if config.MatchThreshold <= 0 {
		config.MatchThreshold = DefaultMatchThreshold
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Engine{
		config:     config,
		normalizer: standardization.NewNormalizer(logger),
		indexer:    matching.NewIndexer(config.Blocking, logger),
		matcher:    matching.NewMatcher(config.Weights, logger),
		logger:     logger,
	}
}

// Threshold returns the acceptance threshold in use
func (e *Engine) Threshold() float64 {
	return e.config.MatchThreshold
}

// Signature renders every setting that changes resolution output:
// threshold, blocking strategies in order, n-gram limits and merged weights.
// Workers only affect scheduling and are left out.
func (e *Engine) Signature() string {
	var b strings.Builder
	b.WriteString("threshold=")
	b.WriteString(strconv.FormatFloat(e.config.MatchThreshold, 'f', -1, 64))

	blocking := e.indexer.Config()
	b.WriteString(";strategies=")
	for i, strategy := range blocking.Strategies {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(strategy))
	}
	fmt.Fprintf(&b, ";ngram=%d/%d;weights=", blocking.NGramSize, blocking.MaxNGrams)

	weights := e.matcher.Weights()
	keys := make([]string, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(weights[k], 'f', -1, 64))
	}
	return b.String()
}

// Resolve resolves a batch of records. The output is sorted by resolved id.
func (e *Engine) Resolve(ctx context.Context, records []models.RawRecord) ([]models.ResolvedEntity, error) {
	entities, _, err := e.ResolveWithStats(ctx, records)
	return entities, err
}

// ResolveWithStats resolves a batch and reports run statistics
func (e *Engine) ResolveWithStats(ctx context.Context, records []models.RawRecord) ([]models.ResolvedEntity, Stats, error) {
	startTime := time.Now()
	stats := Stats{Records: len(records)}

	if err := validateBatch(records); err != nil {
		return nil, stats, err
	}
	if len(records) == 0 {
		return []models.ResolvedEntity{}, stats, nil
	}

	standardized, keys, err := e.prepare(ctx, records)
	if err != nil {
		return nil, stats, err
	}

	index := matching.BuildFromKeys(keys)
	blocks := index.Blocks()
	stats.Blocks = len(blocks)

	pairsByBlock := candidatePairs(blocks)
	for _, pairs := range pairsByBlock {
		stats.CandidatePairs += len(pairs)
	}

	scored, err := e.scoreBlocks(ctx, blocks, pairsByBlock, standardized)
	if err != nil {
		return nil, stats, err
	}

	ids := make([]string, len(standardized))
	for i, r := range standardized {
		ids[i] = r.ID
	}
	uf := NewUnionFind(ids)

	var accepted []scoredPair
	for _, blockScores := range scored {
		for _, sp := range blockScores {
			if sp.candidate.OverallScore >= e.config.MatchThreshold {
				uf.Union(sp.a, sp.b)
				accepted = append(accepted, sp)
			}
		}
	}
	stats.AcceptedPairs = len(accepted)

	components := uf.Components()
	entities := make([]models.ResolvedEntity, 0, len(components))
	for _, component := range components {
		cluster := make([]models.RawRecord, len(component))
		for i, pos := range component {
			cluster[i] = standardized[pos]
		}

		entity, err := BuildCanonical(cluster)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to build canonical record: %w", err)
		}
		entities = append(entities, entity)
	}
	attachMatchScores(entities, accepted, uf, ids)

	sort.Slice(entities, func(i, j int) bool {
		return entities[i].ResolvedID < entities[j].ResolvedID
	})

	stats.Clusters = len(entities)
	stats.Duration = time.Since(startTime)

	e.logger.Info("Resolution completed",
		"records", stats.Records,
		"blocks", stats.Blocks,
		"candidate_pairs", stats.CandidatePairs,
		"accepted_pairs", stats.AcceptedPairs,
		"entities", stats.Clusters,
		"duration", stats.Duration)

	return entities, stats, nil
}

func validateBatch(records []models.RawRecord) error {
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record at position %d has no id", ErrInvalidInput, i)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate record id %q", ErrInvalidInput, r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

// prepare standardizes records and derives their block keys in parallel chunks
func (e *Engine) prepare(ctx context.Context, records []models.RawRecord) ([]models.RawRecord, [][]string, error) {
	standardized := make([]models.RawRecord, len(records))
	keys := make([][]string, len(records))

	chunk := (len(records) + e.config.Workers - 1) / e.config.Workers
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(records); start += chunk {
		start, end := start, min(start+chunk, len(records))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				standardized[i] = e.normalizer.Standardize(records[i])
				keys[i] = e.indexer.Keys(standardized[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to prepare records: %w", err)
	}
	return standardized, keys, nil
}

// candidatePairs lists, per block, the pairs not already claimed by an earlier block
func candidatePairs(blocks []matching.Block) [][]indexPair {
	seen := make(map[indexPair]bool)
	out := make([][]indexPair, len(blocks))
	for bi, block := range blocks {
		members := block.Members
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				p := indexPair{a: min(members[x], members[y]), b: max(members[x], members[y])}
				if seen[p] {
					continue
				}
				seen[p] = true
				out[bi] = append(out[bi], p)
			}
		}
	}
	return out
}

// scoreBlocks scores each block's pairs concurrently. Cancellation is
// observed between blocks.
func (e *Engine) scoreBlocks(ctx context.Context, blocks []matching.Block, pairsByBlock [][]indexPair, records []models.RawRecord) ([][]scoredPair, error) {
	results := make([][]scoredPair, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for bi := range blocks {
		pairs := pairsByBlock[bi]
		if len(pairs) == 0 {
			continue
		}
		bi, key := bi, blocks[bi].Key
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scored := make([]scoredPair, len(pairs))
			for i, p := range pairs {
				candidate := e.matcher.Score(records[p.a], records[p.b])
				candidate.BlockingKey = key
				scored[i] = scoredPair{indexPair: p, candidate: candidate}
			}
			results[bi] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to score candidate pairs: %w", err)
	}
	return results, nil
}

func attachMatchScores(entities []models.ResolvedEntity, accepted []scoredPair, uf *UnionFind, ids []string) {
	byRoot := make(map[int]map[string]float64)
	for _, sp := range accepted {
		root := uf.Find(sp.a)
		if byRoot[root] == nil {
			byRoot[root] = make(map[string]float64)
		}
		byRoot[root][PairKey(ids[sp.a], ids[sp.b])] = sp.candidate.OverallScore
	}

	for i := range entities {
		pos, ok := uf.IndexOf(entities[i].MemberRecordIDs[0])
		if !ok {
			continue
		}
		if scores, ok := byRoot[uf.Find(pos)]; ok {
			entities[i].MatchScores = scores
		}
	}
}

// PairKey is the order-independent key of two record ids
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
