package matching

import (
	"log/slog"
	"strings"

	"github.com/aegisshield/entity-network/internal/models"
)

// Score keys for each compared attribute
const (
	ScoreName       = "name"
	ScoreDOB        = "dob"
	ScoreAddress    = "address"
	ScoreNationalID = "national_id"
	ScorePassport   = "passport"
	ScoreTaxID      = "tax_id"
	ScoreCompanyReg = "company_reg"
)

// attributes in evaluation order; identifiers map 1:1 to record attributes
var scoreOrder = []string{
	ScoreName, ScoreDOB, ScoreAddress,
	ScoreNationalID, ScorePassport, ScoreTaxID, ScoreCompanyReg,
}

var identifierAttributes = map[string]string{
	ScoreNationalID: models.AttrNationalID,
	ScorePassport:   models.AttrPassport,
	ScoreTaxID:      models.AttrTaxID,
	ScoreCompanyReg: models.AttrCompanyReg,
}

// Weights holds per-attribute weights keyed by score name
type Weights map[string]float64

// DefaultWeights returns the standard attribute weights
func DefaultWeights() Weights {
	return Weights{
		ScoreName:       0.35,
		ScoreDOB:        0.20,
		ScoreAddress:    0.15,
		ScoreNationalID: 0.15,
		ScorePassport:   0.10,
		ScoreTaxID:      0.05,
		ScoreCompanyReg: 0.05,
	}
}

// MatchCandidate is the scored comparison of two records
type MatchCandidate struct {
	RecordAID    string             `json:"record_a_id"`
	RecordBID    string             `json:"record_b_id"`
	BlockingKey  string             `json:"blocking_key,omitempty"`
	Scores       map[string]float64 `json:"per_attribute_scores"`
	OverallScore float64            `json:"overall_score"`
}

// Matcher scores candidate pairs attribute by attribute
type Matcher struct {
	weights Weights
	logger  *slog.Logger
}

// NewMatcher creates a new pairwise matcher. Missing weights fall back to the defaults.
func NewMatcher(weights Weights, logger *slog.Logger) *Matcher {
	merged := DefaultWeights()
	for k, w := range weights {
		if w >= 0 {
			merged[k] = w
		}
	}
	return &Matcher{
		weights: merged,
		logger:  logger,
	}
}

// Weights returns a copy of the merged attribute weights
func (m *Matcher) Weights() Weights {
	out := make(Weights, len(m.weights))
	for k, w := range m.weights {
		out[k] = w
	}
	return out
}

// Score compares two standardized records. Attributes missing on either side
// contribute neither score nor weight.
func (m *Matcher) Score(a, b models.RawRecord) MatchCandidate {
	scores := make(map[string]float64)

	nameA := a.Attributes.FirstText(models.AttrNameStandardized, models.AttrName)
	nameB := b.Attributes.FirstText(models.AttrNameStandardized, models.AttrName)
	if nameA != "" && nameB != "" {
		scores[ScoreName] = CompositeNameScore(nameA, nameB)
	}

	dobA := a.Attributes.FirstText(models.AttrDOBStandardized, models.AttrDateOfBirth)
	dobB := b.Attributes.FirstText(models.AttrDOBStandardized, models.AttrDateOfBirth)
	if dobA != "" && dobB != "" {
		scores[ScoreDOB] = exact(dobA == dobB)
	}

	addrA := a.Attributes.FirstText(models.AttrAddressStandardized, models.AttrAddress)
	addrB := b.Attributes.FirstText(models.AttrAddressStandardized, models.AttrAddress)
	if addrA != "" && addrB != "" {
		scores[ScoreAddress] = JaroWinkler(addrA, addrB)
	}

	for scoreKey, attr := range identifierAttributes {
		idA := strings.TrimSpace(a.Attributes.Text(attr))
		idB := strings.TrimSpace(b.Attributes.Text(attr))
		if idA != "" && idB != "" {
			scores[scoreKey] = exact(strings.EqualFold(idA, idB))
		}
	}

	if len(scores) == 0 {
		m.logger.Debug("Records share no comparable attributes",
			"record_a", a.ID,
			"record_b", b.ID)
	}

	return MatchCandidate{
		RecordAID:    a.ID,
		RecordBID:    b.ID,
		Scores:       scores,
		OverallScore: m.combine(scores),
	}
}

func (m *Matcher) combine(scores map[string]float64) float64 {
	var total, weight float64
	for _, key := range scoreOrder {
		s, ok := scores[key]
		if !ok {
			continue
		}
		w := m.weights[key]
		total += s * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return clamp01(total / weight)
}

func exact(equal bool) float64 {
	if equal {
		return 1.0
	}
	return 0.0
}
