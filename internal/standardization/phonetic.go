package standardization

import (
	"regexp"
	"strings"
)

var soundexClasses = map[rune]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

var nonLetterPattern = regexp.MustCompile(`[^A-Z]`)

// metaphone rewrite rules, applied in order
var metaphoneRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`^KN`), "N"},
	{regexp.MustCompile(`^GN`), "N"},
	{regexp.MustCompile(`^PN`), "N"},
	{regexp.MustCompile(`^AE`), "E"},
	{regexp.MustCompile(`^WR`), "R"},
	{regexp.MustCompile(`^WH`), "W"},
	{regexp.MustCompile(`MB$`), "M"},
	{regexp.MustCompile(`GH`), ""},
	{regexp.MustCompile(`PH`), "F"},
	{regexp.MustCompile(`CK`), "K"},
	{regexp.MustCompile(`SCH`), "SK"},
	{regexp.MustCompile(`SH`), "X"},
	{regexp.MustCompile(`TH`), "0"},
	{regexp.MustCompile(`CH`), "X"},
	{regexp.MustCompile(`DG`), "J"},
}

// Soundex returns the 4 character Soundex code of name. Letters without a
// class (vowels, H, W, Y) and separators break runs of the same class.
func Soundex(name string) string {
	upper := []rune(strings.ToUpper(FoldDiacritics(name)))

	start := -1
	for i, r := range upper {
		if r >= 'A' && r <= 'Z' {
			start = i
			break
		}
	}
	if start < 0 {
		return "0000"
	}

	code := []byte{byte(upper[start])}
	prev := soundexClasses[upper[start]]
	for _, r := range upper[start+1:] {
		class, ok := soundexClasses[r]
		if !ok {
			prev = 0
			continue
		}
		if class != prev {
			code = append(code, class)
			if len(code) == 4 {
				break
			}
		}
		prev = class
	}

	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

// Metaphone returns a simplified Metaphone key of at most 6 characters
func Metaphone(name string) string {
	key := nonLetterPattern.ReplaceAllString(strings.ToUpper(FoldDiacritics(name)), "")
	if key == "" {
		return ""
	}

	for _, rule := range metaphoneRules {
		key = rule.pattern.ReplaceAllString(key, rule.replacement)
	}

	if len(key) > 6 {
		key = key[:6]
	}
	return key
}
