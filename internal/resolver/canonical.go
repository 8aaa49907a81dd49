package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aegisshield/entity-network/internal/models"
)

// ErrInvalidInput is returned for batches or clusters the engine cannot process
var ErrInvalidInput = errors.New("invalid input")

const unknownName = "Unknown"

// ResolvedID hashes the sorted member ids, so it does not depend on input order
func ResolvedID(memberIDs []string) string {
	sorted := append([]string(nil), memberIDs...)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x1f")))
	return hex.EncodeToString(sum[:])[:16]
}

// Confidence grows with distinct sources and cluster size, capped at 1
func Confidence(distinctSources, size int) float64 {
	return math.Min(1.0, 0.5+0.1*float64(distinctSources)+0.05*float64(size))
}

// BuildCanonical merges a cluster into one golden record. Members are visited
// from most to least complete (ties by id) and the first non-null value per
// attribute survives.
func BuildCanonical(cluster []models.RawRecord) (models.ResolvedEntity, error) {
	if len(cluster) == 0 {
		return models.ResolvedEntity{}, fmt.Errorf("%w: empty cluster", ErrInvalidInput)
	}

	members := append([]models.RawRecord(nil), cluster...)
	sort.SliceStable(members, func(i, j int) bool {
		ci, cj := members[i].Attributes.NonNullCount(), members[j].Attributes.NonNullCount()
		if ci != cj {
			return ci > cj
		}
		return members[i].ID < members[j].ID
	})

	attrs := make(models.Attributes)
	ids := make([]string, 0, len(members))
	sourceSet := make(map[string]bool)
	var kind string

	for _, member := range members {
		ids = append(ids, member.ID)
		if member.SourceSystem != "" {
			sourceSet[member.SourceSystem] = true
		}
		if kind == "" {
			kind = member.EntityKind
		}
		for _, key := range member.Attributes.Keys() {
			if _, taken := attrs[key]; taken {
				continue
			}
			if v, ok := member.Attributes.Get(key); ok {
				attrs[key] = v
			}
		}
	}

	sort.Strings(ids)
	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	name := attrs.FirstText(models.AttrNameStandardized, models.AttrName)
	if name == "" {
		name = unknownName
	}

	return models.ResolvedEntity{
		ResolvedID:      ResolvedID(ids),
		CanonicalName:   name,
		EntityKind:      kind,
		MemberRecordIDs: ids,
		SourceSystems:   sources,
		Attributes:      attrs,
		Confidence:      Confidence(len(sources), len(members)),
	}, nil
}
