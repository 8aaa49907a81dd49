package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisshield/entity-network/internal/models"
)

func amount(f float64) *float64 {
	return &f
}

func TestExtractRelationshipsFromTransactions(t *testing.T) {
	g := newTestGenerator()

	edges := g.ExtractRelationshipsFromTransactions([]models.Transaction{
		{ID: "T1", SenderEntityID: "a", ReceiverEntityID: "b", Amount: amount(1500), Currency: "USD", TransactionDate: "2024-01-10"},
		{ID: "T2", SenderEntityID: "a", ReceiverEntityID: "b", Amount: amount(-250), Currency: "USD"},
		{ID: "T3", SenderEntityID: "a", ReceiverEntityID: "b"},
		{ID: "T4", SenderEntityID: "a"},
	})

	require.Len(t, edges, 3)
	assert.Equal(t, 3, g.Network().EdgeCount())

	for _, edge := range edges {
		assert.Equal(t, KindSentTo, edge.Kind)
		assert.Equal(t, "a", edge.SourceID)
		assert.Equal(t, "b", edge.TargetID)
		assert.Equal(t, 1.0, edge.Confidence)
		require.Len(t, edge.Evidence, 1)
		assert.Equal(t, "transaction", edge.Evidence[0]["source"])
	}

	assert.Equal(t, 1500.0, edges[0].Weight)
	assert.Equal(t, "T1", edges[0].Attributes.Text("transaction_id"))
	assert.Equal(t, models.KindDate, edges[0].Attributes["date"].Kind())
	assert.Equal(t, 250.0, edges[1].Weight)
	assert.Equal(t, 1.0, edges[2].Weight)
	_, ok := edges[2].Attributes.Get("amount")
	assert.False(t, ok)

	again := g.ExtractRelationshipsFromTransactions([]models.Transaction{
		{ID: "T1", SenderEntityID: "a", ReceiverEntityID: "b", Amount: amount(1500)},
	})
	require.Len(t, again, 1)
	assert.Same(t, edges[0], again[0])
	assert.Equal(t, 3, g.Network().EdgeCount())
}

func TestExtractRelationshipsFromTransactions_WithoutID(t *testing.T) {
	g := newTestGenerator()
	batch := []models.Transaction{
		{SenderEntityID: "a", ReceiverEntityID: "b", Amount: amount(100)},
		{SenderEntityID: "a", ReceiverEntityID: "b", Amount: amount(250)},
		{SenderEntityID: "a", ReceiverEntityID: "b", Amount: amount(100)},
	}

	edges := g.ExtractRelationshipsFromTransactions(batch)
	require.Len(t, edges, 3)
	assert.Equal(t, 3, g.Network().EdgeCount())
	assert.Equal(t, 100.0, edges[0].Weight)
	assert.Equal(t, 250.0, edges[1].Weight)
	assert.NotEqual(t, edges[0].ID, edges[2].ID)

	g.ExtractRelationshipsFromTransactions(batch)
	assert.Equal(t, 3, g.Network().EdgeCount(), "re-extracting the same batch adds nothing")
}

func TestExtractRelationshipsFromCorporateData(t *testing.T) {
	g := newTestGenerator()
	half := 25.0

	edges := g.ExtractRelationshipsFromCorporateData([]models.CorporateRecord{
		{
			CompanyID: "co",
			Directors: []models.Director{
				{EntityID: "d1", Role: "CEO", AppointmentDate: "2020-05-01"},
				{EntityID: ""},
			},
			Shareholders: []models.Shareholder{
				{EntityID: "s1", Percentage: 60, ShareType: "ordinary"},
				{EntityID: "s2", Percentage: 50, ShareType: "preference"},
			},
			BeneficialOwners: []models.BeneficialOwner{
				{EntityID: "o1", Percentage: &half, NatureOfControl: "trust"},
				{EntityID: "o2"},
			},
		},
		{Directors: []models.Director{{EntityID: "ignored"}}},
	})

	require.Len(t, edges, 5)

	byTarget := make(map[string]*Edge)
	for _, edge := range edges {
		assert.Equal(t, "co", edge.TargetID)
		byTarget[edge.SourceID] = edge
	}

	assert.Equal(t, KindDirectorOf, byTarget["d1"].Kind)
	assert.Equal(t, "CEO", byTarget["d1"].Attributes.Text("role"))

	assert.Equal(t, KindControls, byTarget["s1"].Kind)
	assert.InDelta(t, 0.6, byTarget["s1"].Weight, 1e-9)
	assert.Equal(t, KindShareholderOf, byTarget["s2"].Kind)
	assert.InDelta(t, 0.5, byTarget["s2"].Weight, 1e-9)

	assert.Equal(t, KindBeneficialOwner, byTarget["o1"].Kind)
	pct, ok := byTarget["o1"].Attributes.Get("ownership_percentage")
	require.True(t, ok)
	f, _ := pct.AsNumber()
	assert.Equal(t, 25.0, f)
	_, ok = byTarget["o2"].Attributes.Get("ownership_percentage")
	assert.False(t, ok)
}
