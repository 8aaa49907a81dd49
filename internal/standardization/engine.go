package standardization

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"github.com/bbalet/stopwords"
	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/aegisshield/entity-network/internal/models"
)

var (
	honorificPattern   = regexp.MustCompile(`(?i)\b(mr|mrs|ms|miss|dr|prof|sir|jr|sr|iii|ii|iv)\b\.?`)
	punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	phoneNoisePattern  = regexp.MustCompile(`[^\d]`)
)

// street designator abbreviations
var addressAbbreviations = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bapartment\b`), "Apt"},
	{regexp.MustCompile(`(?i)\bboulevard\b`), "Blvd"},
	{regexp.MustCompile(`(?i)\bavenue\b`), "Ave"},
	{regexp.MustCompile(`(?i)\bstreet\b`), "St"},
	{regexp.MustCompile(`(?i)\bdrive\b`), "Dr"},
	{regexp.MustCompile(`(?i)\broad\b`), "Rd"},
	{regexp.MustCompile(`(?i)\blane\b`), "Ln"},
}

// Normalizer canonicalizes free-text attributes before blocking and comparison
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a new record normalizer
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger,
	}
}

// Standardize returns a copy of record with *_standardized attributes added
// next to the originals. Absent attributes are skipped; it never fails.
func (n *Normalizer) Standardize(record models.RawRecord) models.RawRecord {
	attrs := record.Attributes.Clone()
	if attrs == nil {
		attrs = models.Attributes{}
	}

	if name := attrs.Text(models.AttrName); name != "" {
		if standardized := StandardizeName(name); standardized != "" {
			attrs[models.AttrNameStandardized] = models.StringValue(standardized)
		}
	}

	if dob, ok := attrs.Get(models.AttrDateOfBirth); ok {
		n.standardizeDOB(record.ID, dob, attrs)
	}

	if address := attrs.Text(models.AttrAddress); address != "" {
		attrs[models.AttrAddressStandardized] = models.StringValue(StandardizeAddress(address))
	}

	if phone := attrs.Text(models.AttrPhone); phone != "" {
		if standardized := StandardizePhone(phone); standardized != "" {
			attrs[models.AttrPhoneStandardized] = models.StringValue(standardized)
		}
	}

	if email := attrs.Text(models.AttrEmail); email != "" {
		attrs[models.AttrEmailStandardized] = models.StringValue(StandardizeEmail(email))
	}

	return models.RawRecord{
		ID:           record.ID,
		SourceSystem: record.SourceSystem,
		EntityKind:   record.EntityKind,
		Attributes:   attrs,
	}
}

func (n *Normalizer) standardizeDOB(recordID string, dob models.Value, attrs models.Attributes) {
	var parsed time.Time
	if d, ok := dob.AsDate(); ok {
		parsed = d
	} else if dob.Kind() == models.KindString {
		t, err := dateparse.ParseIn(strings.TrimSpace(dob.String()), time.UTC)
		if err != nil {
			n.logger.Debug("Unparseable date of birth kept verbatim",
				"record_id", recordID,
				"value", dob.String())
			attrs[models.AttrDOBStandardized] = models.StringValue(dob.String())
			return
		}
		parsed = t
	} else {
		attrs[models.AttrDOBStandardized] = models.StringValue(dob.String())
		return
	}

	attrs[models.AttrDOBStandardized] = models.StringValue(parsed.Format(models.DateLayout))
	if _, ok := attrs.Get(models.AttrYearOfBirth); !ok {
		attrs[models.AttrYearOfBirth] = models.NumberValue(float64(parsed.Year()))
	}
}

// StandardizeName folds diacritics, reorders "Last, First" names, strips
// honorifics and suffixes, and removes punctuation. Case is preserved.
func StandardizeName(name string) string {
	name = FoldDiacritics(name)
	name = honorificPattern.ReplaceAllString(name, " ")

	if parts := nonEmptyParts(strings.Split(name, ",")); len(parts) == 2 {
		name = parts[1] + " " + parts[0]
	} else {
		name = strings.Join(parts, " ")
	}

	name = punctuationPattern.ReplaceAllString(name, "")
	return collapseWhitespace(name)
}

// StandardizeAddress abbreviates common street designators
func StandardizeAddress(address string) string {
	for _, abbr := range addressAbbreviations {
		address = abbr.pattern.ReplaceAllString(address, abbr.replacement)
	}
	return collapseWhitespace(address)
}

// StandardizePhone keeps digits and a leading plus sign
func StandardizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	digits := phoneNoisePattern.ReplaceAllString(phone, "")
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return "+" + digits
	}
	return digits
}

// StandardizeEmail trims and lower-cases an email address
func StandardizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FoldDiacritics strips combining marks, so "José Müller" becomes "Jose Muller"
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// NameTokens returns stemmed, stop-word filtered, lower-cased name tokens
func NameTokens(name string) []string {
	cleaned := stopwords.CleanString(strings.ToLower(FoldDiacritics(name)), "en", false)

	var tokens []string
	seen := make(map[string]bool)
	for _, token := range strings.Fields(cleaned) {
		stemmed, err := snowball.Stem(token, "english", true)
		if err == nil && stemmed != "" {
			token = stemmed
		}
		if !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func nonEmptyParts(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
