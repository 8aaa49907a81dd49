package resolver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/entity-network/internal/models"
)

func TestResolvedID_OrderIndependent(t *testing.T) {
	a := ResolvedID([]string{"r3", "r1", "r2"})
	b := ResolvedID([]string{"r1", "r2", "r3"})

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, ResolvedID([]string{"r1", "r2"}))
	// joining must not let different splits collide
	assert.NotEqual(t, ResolvedID([]string{"a", "bc"}), ResolvedID([]string{"ab", "c"}))
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.65, Confidence(1, 1), 1e-9)
	assert.InDelta(t, 0.80, Confidence(2, 2), 1e-9)
	assert.Equal(t, 1.0, Confidence(5, 10))
}

func TestBuildCanonical(t *testing.T) {
	sparse := models.RawRecord{
		ID:           "r2",
		SourceSystem: "crm",
		EntityKind:   "individual",
		Attributes: models.Attributes{
			"name":  models.StringValue("J. Smith"),
			"email": models.StringValue("js@example.com"),
		},
	}
	rich := models.RawRecord{
		ID:           "r1",
		SourceSystem: "kyc",
		EntityKind:   "individual",
		Attributes: models.Attributes{
			"name":              models.StringValue("John Smith"),
			"name_standardized": models.StringValue("John Smith"),
			"national_id":       models.StringValue("S1234567A"),
			"email":             models.StringValue(""),
		},
	}

	entity, err := BuildCanonical([]models.RawRecord{sparse, rich})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "r2"}, entity.MemberRecordIDs)
	assert.Equal(t, []string{"crm", "kyc"}, entity.SourceSystems)
	assert.Equal(t, ResolvedID([]string{"r1", "r2"}), entity.ResolvedID)
	assert.Equal(t, "John Smith", entity.CanonicalName)
	assert.Equal(t, "individual", entity.EntityKind)
	assert.InDelta(t, 0.8, entity.Confidence, 1e-9)

	// most complete record wins shared keys
	assert.Equal(t, "John Smith", entity.Attributes.Text("name"))
	// null on the winner falls through to the next member
	assert.Equal(t, "js@example.com", entity.Attributes.Text("email"))
	assert.Equal(t, "S1234567A", entity.Attributes.Text("national_id"))
}

func TestBuildCanonical_CompletenessTieBreaksByID(t *testing.T) {
	a := models.RawRecord{ID: "b", Attributes: models.Attributes{"name": models.StringValue("Beta")}}
	b := models.RawRecord{ID: "a", Attributes: models.Attributes{"name": models.StringValue("Alpha")}}

	entity, err := BuildCanonical([]models.RawRecord{a, b})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", entity.CanonicalName)
}

func TestBuildCanonical_Unnamed(t *testing.T) {
	entity, err := BuildCanonical([]models.RawRecord{{ID: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", entity.CanonicalName)
	assert.Empty(t, entity.SourceSystems)
}

func TestBuildCanonical_EmptyCluster(t *testing.T) {
	_, err := BuildCanonical(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
