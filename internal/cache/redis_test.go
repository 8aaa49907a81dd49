package cache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/entity-network/internal/models"
)

func TestResultKey(t *testing.T) {
	assert.Equal(t, "entity-network:resolution:abc", resultKey("abc"))
}

func TestDecodeEntities(t *testing.T) {
	entities := []models.ResolvedEntity{{
		ResolvedID:      "r1",
		CanonicalName:   "Acme Holdings",
		MemberRecordIDs: []string{"1", "2"},
		Attributes:      models.AttributesFromNative(map[string]interface{}{"company_reg": "C-1"}),
		Confidence:      0.8,
	}}

	data, err := json.Marshal(entities)
	require.NoError(t, err)

	decoded, err := decodeEntities(data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "r1", decoded[0].ResolvedID)
	assert.Equal(t, "C-1", decoded[0].Attributes.Text("company_reg"))

	_, err = decodeEntities([]byte("{not json"))
	assert.Error(t, err)
}
