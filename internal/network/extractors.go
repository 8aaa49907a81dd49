package network

import (
	"fmt"
	"math"

	"github.com/aegisshield/entity-network/internal/models"
)

// controlling stake, in percent
const controlThreshold = 50.0

// ExtractRelationshipsFromTransactions adds one SENT_TO edge per transaction.
// Transactions missing either party are skipped. A transaction without an id
// is told apart by its position in the batch, amount and date.
func (g *Generator) ExtractRelationshipsFromTransactions(transactions []models.Transaction) []*Edge {
	var edges []*Edge
	skipped, anonymous := 0, 0

	for i, tx := range transactions {
		if tx.SenderEntityID == "" || tx.ReceiverEntityID == "" {
			skipped++
			continue
		}

		weight := 1.0
		amount := models.Value{}
		if tx.Amount != nil {
			weight = math.Abs(*tx.Amount)
			amount = models.NumberValue(*tx.Amount)
		}

		attrs := models.Attributes{
			"transaction_id": models.StringValue(tx.ID),
			"amount":         amount,
			"currency":       models.StringValue(tx.Currency),
			"date":           models.FromNative(tx.TransactionDate),
		}
		evidence := []Evidence{{
			"source":         "transaction",
			"transaction_id": tx.ID,
			"amount":         amount.Native(),
			"currency":       tx.Currency,
			"date":           tx.TransactionDate,
		}}

		discriminator := tx.ID
		if discriminator == "" {
			discriminator = fmt.Sprintf("#%d|%s|%s", i, amount.String(), tx.TransactionDate)
			anonymous++
		}

		edge := g.createEdge(tx.SenderEntityID, tx.ReceiverEntityID, KindSentTo, discriminator, attrs, weight, 1.0, evidence)
		edges = append(edges, edge)
	}

	g.logger.Debug("Transaction relationships extracted",
		"transactions", len(transactions),
		"edges", len(edges),
		"skipped", skipped,
		"without_id", anonymous)
	return edges
}

// ExtractRelationshipsFromCorporateData adds directorship, shareholding and
// beneficial ownership edges pointing at each company
func (g *Generator) ExtractRelationshipsFromCorporateData(records []models.CorporateRecord) []*Edge {
	var edges []*Edge

	for _, record := range records {
		if record.CompanyID == "" {
			continue
		}

		for _, director := range record.Directors {
			if director.EntityID == "" {
				continue
			}
			attrs := models.Attributes{
				"role":             models.StringValue(director.Role),
				"appointment_date": models.FromNative(director.AppointmentDate),
			}
			edges = append(edges, g.createEdge(director.EntityID, record.CompanyID, KindDirectorOf, "",
				attrs, 1.0, 1.0, corporateEvidence(record.CompanyID, "director")))
		}

		for _, holder := range record.Shareholders {
			if holder.EntityID == "" {
				continue
			}
			kind := KindShareholderOf
			if holder.Percentage > controlThreshold {
				kind = KindControls
			}
			attrs := models.Attributes{
				"percentage": models.NumberValue(holder.Percentage),
				"share_type": models.StringValue(holder.ShareType),
			}
			edges = append(edges, g.createEdge(holder.EntityID, record.CompanyID, kind, "",
				attrs, holder.Percentage/100.0, 1.0, corporateEvidence(record.CompanyID, "shareholder")))
		}

		for _, owner := range record.BeneficialOwners {
			if owner.EntityID == "" {
				continue
			}
			pct := models.Value{}
			if owner.Percentage != nil {
				pct = models.NumberValue(*owner.Percentage)
			}
			attrs := models.Attributes{
				"ownership_percentage": pct,
				"nature_of_control":    models.StringValue(owner.NatureOfControl),
			}
			edges = append(edges, g.createEdge(owner.EntityID, record.CompanyID, KindBeneficialOwner, "",
				attrs, 1.0, 1.0, corporateEvidence(record.CompanyID, "beneficial_owner")))
		}
	}

	g.logger.Debug("Corporate relationships extracted",
		"records", len(records),
		"edges", len(edges))
	return edges
}

func corporateEvidence(companyID, role string) []Evidence {
	return []Evidence{{
		"source":     "corporate_registry",
		"company_id": companyID,
		"role":       role,
	}}
}
