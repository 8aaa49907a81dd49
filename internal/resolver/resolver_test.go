package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/entity-network/internal/matching"
	"github.com/aegisshield/entity-network/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rec(id, source string, attrs map[string]interface{}) models.RawRecord {
	return models.RawRecord{
		ID:           id,
		SourceSystem: source,
		EntityKind:   "individual",
		Attributes:   models.AttributesFromNative(attrs),
	}
}

func resolvedIDs(entities []models.ResolvedEntity) []string {
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ResolvedID
	}
	sort.Strings(ids)
	return ids
}

func findByMember(entities []models.ResolvedEntity, recordID string) *models.ResolvedEntity {
	for i := range entities {
		for _, id := range entities[i].MemberRecordIDs {
			if id == recordID {
				return &entities[i]
			}
		}
	}
	return nil
}

func TestEngine_MergesNameVariants(t *testing.T) {
	engine := NewEngine(DefaultConfig(), testLogger())

	records := []models.RawRecord{
		rec("kyc-1", "kyc", map[string]interface{}{
			"name":          "John William Smith Jr.",
			"date_of_birth": "1985-03-15",
			"national_id":   "S1234567A",
		}),
		rec("crm-7", "crm", map[string]interface{}{
			"name":          "SMITH, JOHN W",
			"date_of_birth": "1985-03-15",
			"passport":      "E12345678",
		}),
	}

	entities, stats, err := engine.ResolveWithStats(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	entity := entities[0]
	assert.Equal(t, []string{"crm-7", "kyc-1"}, entity.MemberRecordIDs)
	assert.Equal(t, []string{"crm", "kyc"}, entity.SourceSystems)
	assert.Equal(t, "S1234567A", entity.Attributes.Text("national_id"))
	assert.Equal(t, "E12345678", entity.Attributes.Text("passport"))
	assert.InDelta(t, 0.8, entity.Confidence, 1e-9)

	score, ok := entity.MatchScores[PairKey("kyc-1", "crm-7")]
	require.True(t, ok)
	assert.GreaterOrEqual(t, score, 0.75)

	assert.Equal(t, 1, stats.CandidatePairs)
	assert.Equal(t, 1, stats.AcceptedPairs)
	assert.Equal(t, 1, stats.Clusters)

	// An initial against a full middle name blends to about 0.687, short of
	// the 0.75 threshold on its own. The pair merges on the overall score.
	name := matching.CompositeNameScore("John William Smith", "JOHN W SMITH")
	assert.InDelta(t, 0.687, name, 1e-3)
	assert.Less(t, name, DefaultMatchThreshold)
}

func TestEngine_SingletonPreservation(t *testing.T) {
	engine := NewEngine(DefaultConfig(), testLogger())

	entities, err := engine.Resolve(context.Background(), []models.RawRecord{
		rec("r1", "kyc", map[string]interface{}{"name": "Jane Mary Doe", "date_of_birth": "1990-07-22"}),
		rec("r2", "kyc", map[string]interface{}{"name": "Wei Zhang"}),
	})
	require.NoError(t, err)
	require.Len(t, entities, 2)

	jane := findByMember(entities, "r1")
	require.NotNil(t, jane)
	assert.Equal(t, []string{"r1"}, jane.MemberRecordIDs)
	assert.Equal(t, ResolvedID([]string{"r1"}), jane.ResolvedID)
	assert.Equal(t, "Jane Mary Doe", jane.CanonicalName)
	// one source, one member: 0.5 + 0.1 + 0.05
	assert.InDelta(t, 0.65, jane.Confidence, 1e-9)
	assert.Empty(t, jane.MatchScores)
}

func TestEngine_Transitivity(t *testing.T) {
	config := DefaultConfig()
	config.Blocking = matching.BlockingConfig{Strategies: []matching.Strategy{matching.StrategyToken}}
	engine := NewEngine(config, testLogger())

	a := rec("a", "s1", map[string]interface{}{"name": "John Smith", "national_id": "N1"})
	b := rec("b", "s2", map[string]interface{}{
		"name": "John Smith", "national_id": "N1", "date_of_birth": "1980-01-01", "passport": "P1",
	})
	c := rec("c", "s3", map[string]interface{}{"name": "Jonathan Smith", "date_of_birth": "1980-01-01", "passport": "P1"})

	matcher := matching.NewMatcher(nil, testLogger())
	require.Less(t, matcher.Score(a, c).OverallScore, DefaultMatchThreshold, "a and c must not match directly")

	entities, err := engine.Resolve(context.Background(), []models.RawRecord{a, b, c})
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, []string{"a", "b", "c"}, entities[0].MemberRecordIDs)
	assert.Len(t, entities[0].MatchScores, 2)
}

func TestEngine_Idempotent(t *testing.T) {
	engine := NewEngine(DefaultConfig(), testLogger())

	records := []models.RawRecord{
		rec("1", "a", map[string]interface{}{"name": "Acme Holdings", "company_reg": "C-1"}),
		rec("2", "b", map[string]interface{}{"name": "Acme Holding", "company_reg": "c-1"}),
		rec("3", "a", map[string]interface{}{"name": "Jon Smith"}),
		rec("4", "b", map[string]interface{}{"name": "John Smith"}),
		rec("5", "c", map[string]interface{}{"name": "Maria Gonzalez"}),
	}
	reversed := make([]models.RawRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}

	first, err := engine.Resolve(context.Background(), records)
	require.NoError(t, err)
	second, err := engine.Resolve(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, resolvedIDs(first), resolvedIDs(second))
	assert.Len(t, first, 3)

	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1].ResolvedID, first[i].ResolvedID, "output sorted by resolved id")
	}
}

func TestEngine_CanonicalCompleteness(t *testing.T) {
	engine := NewEngine(DefaultConfig(), testLogger())

	records := []models.RawRecord{
		rec("1", "a", map[string]interface{}{"name": "Acme Holdings", "company_reg": "C-1", "phone": "+65 6123 4567"}),
		rec("2", "b", map[string]interface{}{"name": "Acme Holding", "company_reg": "C-1", "email": "ops@acme.test"}),
	}

	entities, err := engine.Resolve(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	for _, r := range records {
		for key := range r.Attributes {
			_, ok := entities[0].Attributes.Get(key)
			assert.True(t, ok, "canonical record lost attribute %s", key)
		}
	}
}

func TestEngine_InvalidInput(t *testing.T) {
	engine := NewEngine(DefaultConfig(), testLogger())

	t.Run("duplicate ids", func(t *testing.T) {
		_, err := engine.Resolve(context.Background(), []models.RawRecord{
			rec("1", "a", map[string]interface{}{"name": "A"}),
			rec("1", "b", map[string]interface{}{"name": "B"}),
		})
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := engine.Resolve(context.Background(), []models.RawRecord{{SourceSystem: "a"}})
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("empty batch", func(t *testing.T) {
		entities, err := engine.Resolve(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, entities)
	})
}

func TestEngine_Cancelled(t *testing.T) {
	engine := NewEngine(DefaultConfig(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Resolve(ctx, []models.RawRecord{
		rec("1", "a", map[string]interface{}{"name": "John Smith"}),
		rec("2", "a", map[string]interface{}{"name": "Jon Smith"}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEngine_ThresholdIsConfigurable(t *testing.T) {
	strict := DefaultConfig()
	strict.MatchThreshold = 0.99
	engine := NewEngine(strict, testLogger())

	entities, err := engine.Resolve(context.Background(), []models.RawRecord{
		rec("1", "a", map[string]interface{}{"name": "Jon Smith"}),
		rec("2", "b", map[string]interface{}{"name": "John Smith"}),
	})
	require.NoError(t, err)
	assert.Len(t, entities, 2)
	assert.Equal(t, 0.99, engine.Threshold())
}
