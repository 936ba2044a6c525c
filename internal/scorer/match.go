package scorer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold lowercases s, strips diacritics and collapses every run of
// non-alphanumerics to one space, padded on both sides so terms can be
// matched on word boundaries.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// hasTerm reports whether the folded text contains term as whole words.
func hasTerm(folded, term string) bool {
	return strings.Contains(folded, fold(term))
}

// firstFactor returns the factor of the first table entry found in text.
func firstFactor(table []keywordFactor, folded string) (keywordFactor, bool) {
	for _, kf := range table {
		if hasTerm(folded, kf.Term) {
			return kf, true
		}
	}
	return keywordFactor{}, false
}
