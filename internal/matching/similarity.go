package matching

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/aegisshield/entity-network/internal/standardization"
)

// Composite name score weights
const (
	WeightJaroWinkler = 0.30
	WeightLevenshtein = 0.25
	WeightTokenSet    = 0.20
	WeightJaccard     = 0.15
	WeightPhonetic    = 0.10

	winklerPrefixScale = 0.1
	winklerMaxPrefix   = 4
)

// NameScore is the per-algorithm breakdown of a composite name comparison
type NameScore struct {
	JaroWinkler float64 `json:"jaro_winkler"`
	Levenshtein float64 `json:"levenshtein"`
	TokenSet    float64 `json:"token_set"`
	Jaccard     float64 `json:"jaccard"`
	Phonetic    float64 `json:"phonetic"`
	Composite   float64 `json:"composite"`
}

// emptyScore handles the empty-input conventions shared by every scorer.
// It reports ok=false when both strings are non-empty.
func emptyScore(a, b string) (float64, bool) {
	switch {
	case a == "" && b == "":
		return 1.0, true
	case a == "" || b == "":
		return 0.0, true
	default:
		return 0, false
	}
}

// LevenshteinSimilarity returns 1 - distance/max(len)
func LevenshteinSimilarity(a, b string) float64 {
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	a, b = strings.ToLower(a), strings.ToLower(b)

	maxLen := max(len([]rune(a)), len([]rune(b)))
	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(maxLen)
}

// Jaro returns the Jaro similarity of a and b
func Jaro(a, b string) float64 {
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	s1, s2 := []rune(a), []rune(b)

	window := max(len(s1), len(s2))/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len(s1))
	matched2 := make([]bool, len(s2))
	matches := 0
	for i, r := range s1 {
		lo := max(0, i-window)
		hi := min(i+window+1, len(s2))
		for j := lo; j < hi; j++ {
			if matched2[j] || s2[j] != r {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i, r := range s1 {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if r != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(s1)) + m/float64(len(s2)) + (m-t)/m) / 3
}

// JaroWinkler boosts the Jaro score by the shared prefix, capped at 4 characters
func JaroWinkler(a, b string) float64 {
	jaro := Jaro(a, b)
	if a == "" || b == "" {
		return jaro
	}

	r1, r2 := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	prefix := 0
	for prefix < min(len(r1), len(r2), winklerMaxPrefix) && r1[prefix] == r2[prefix] {
		prefix++
	}
	return jaro + float64(prefix)*winklerPrefixScale*(1-jaro)
}

// JaccardNGram compares the sets of character n-grams, whitespace removed.
// Strings shorter than n form a single gram.
func JaccardNGram(a, b string, n int) float64 {
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	if n < 1 {
		n = 2
	}
	return jaccard(ngramSet(a, n), ngramSet(b, n))
}

// TokenSetJaccard compares whitespace separated token sets
func TokenSetJaccard(a, b string) float64 {
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	set1 := tokenSet(a)
	set2 := tokenSet(b)
	if len(set1) == 0 || len(set2) == 0 {
		return 0.0
	}
	return jaccard(set1, set2)
}

// noLetters is the Soundex code of input without any letters
const noLetters = "0000"

// PhoneticSimilarity is 1 on equal Soundex codes, else the share of equal positions.
// Input without letters has no phonetic form and only matches itself.
func PhoneticSimilarity(a, b string) float64 {
	if score, ok := emptyScore(a, b); ok {
		return score
	}
	c1, c2 := standardization.Soundex(a), standardization.Soundex(b)
	if c1 == noLetters || c2 == noLetters {
		return exact(strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)))
	}
	if c1 == c2 {
		return 1.0
	}
	same := 0
	for i := 0; i < 4; i++ {
		if c1[i] == c2[i] {
			same++
		}
	}
	return float64(same) / 4.0
}

// CompositeNameScore is the fixed-weight blend used for name attributes
func CompositeNameScore(a, b string) float64 {
	return NameScoreBreakdown(a, b).Composite
}

// NameScoreBreakdown returns every component of the composite name score
func NameScoreBreakdown(a, b string) NameScore {
	score := NameScore{
		JaroWinkler: JaroWinkler(a, b),
		Levenshtein: LevenshteinSimilarity(a, b),
		TokenSet:    TokenSetJaccard(a, b),
		Jaccard:     JaccardNGram(a, b, 2),
		Phonetic:    PhoneticSimilarity(a, b),
	}
	score.Composite = clamp01(score.JaroWinkler*WeightJaroWinkler +
		score.Levenshtein*WeightLevenshtein +
		score.TokenSet*WeightTokenSet +
		score.Jaccard*WeightJaccard +
		score.Phonetic*WeightPhonetic)
	return score
}

func ngramSet(s string, n int) map[string]struct{} {
	runes := []rune(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s))

	set := make(map[string]struct{})
	if len(runes) < n {
		set[string(runes)] = struct{}{}
		return set
	}
	for i := 0; i+n <= len(runes); i++ {
		set[string(runes[i:i+n])] = struct{}{}
	}
	return set
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(s)) {
		set[token] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
