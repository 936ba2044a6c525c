package cost

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/model"
)

// ErrUnparseable marks fee text with no recognizable amount. Callers must
// treat it as unknown, never as free or expensive.
var ErrUnparseable = errors.New("cost: unparseable fee text")

// DefaultSemesterThreshold is the annual amount below which a per-semester
// fee is doubled.
const DefaultSemesterThreshold = 10000

// amountPattern accepts one thousands separator per amount, repeated in
// every group. A group is exactly three digits, so a trailing year such as
// "€1,500 2025/26" is never pulled into the amount.
const amountPattern = `\d{1,3}(?:,\d{3}\b)+(?:\.\d{1,2}\b)?` +
	`|\d{1,3}(?:\.\d{3}\b)+(?:,\d{1,2}\b)?` +
	`|\d{1,3}(?:[\x{00a0} ]\d{3}\b)+(?:[.,]\d{1,2}\b)?` +
	`|\d+(?:[.,]\d{1,2}\b)?`

// Currency markers, matched case-insensitively. "kr" alone is read as SEK.
// A dollar sign with any other letter prefix (AU$, CA$) has no entry and
// leaves the fee unparseable.
var symbolCodes = map[string]string{
	"€": "EUR", "eur": "EUR", "euro": "EUR", "euros": "EUR",
	"sek": "SEK", "kr": "SEK", "kronor": "SEK",
	"$": "USD", "us$": "USD", "usd": "USD",
	"£": "GBP", "gbp": "GBP",
	"nok": "NOK", "dkk": "DKK",
	"nt$": "TWD", "twd": "TWD",
}

const markerPattern = `nt\$|us\$|[a-z]{1,3}\$|€|\$|£|euros?|eur|sek|kronor|kr|usd|gbp|nok|dkk|twd`

var (
	prefixRe = regexp.MustCompile(`(?i)(` + markerPattern + `)\s*(` + amountPattern + `)`)
	suffixRe = regexp.MustCompile(`(?i)(` + amountPattern + `)\s*(` + markerPattern + `)`)
	freeRe   = regexp.MustCompile(`(?i)\b(tuition[- ]free|free|no tuition|no fees?)\b`)
	semRe    = regexp.MustCompile(`(?i)semester`)
)

// Normalizer converts fee text into a model.NormalizedCost.
type Normalizer struct {
	reference         string
	rates             Rates
	semesterThreshold float64
}

// NewNormalizer builds a Normalizer for the given reference currency.
func NewNormalizer(reference string, rates Rates) (*Normalizer, error) {
	if rates == nil {
		rates = DefaultRates()
	}
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if _, ok := rates[reference]; !ok {
		return nil, eris.Errorf("cost: unsupported reference currency %q", reference)
	}
	return &Normalizer{reference: reference, rates: rates, semesterThreshold: DefaultSemesterThreshold}, nil
}

// WithRates returns a copy that uses rates layered over the current table.
func (n *Normalizer) WithRates(rates Rates) *Normalizer {
	c := *n
	c.rates = n.rates.Merge(rates)
	return &c
}

// WithSemesterThreshold returns a copy with a different doubling threshold.
func (n *Normalizer) WithSemesterThreshold(v float64) *Normalizer {
	c := *n
	if v > 0 {
		c.semesterThreshold = v
	}
	return &c
}

// Reference returns the reference currency code.
func (n *Normalizer) Reference() string { return n.reference }

// Rates returns the active conversion table.
func (n *Normalizer) Rates() Rates { return n.rates }

// Normalize parses text and converts it to an annual reference amount.
// The earliest currency-tagged amount in the text wins.
func (n *Normalizer) Normalize(text string) (model.NormalizedCost, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return model.NormalizedCost{}, ErrUnparseable
	}

	code, raw, ok := firstAmount(trimmed)
	if !ok {
		if freeRe.MatchString(trimmed) {
			return model.NormalizedCost{
				Currency:       n.reference,
				SourceCurrency: n.reference,
				Rate:           1,
				Free:           true,
				Text:           text,
			}, nil
		}
		return model.NormalizedCost{}, ErrUnparseable
	}

	amount, ok := parseAmount(raw)
	if !ok {
		return model.NormalizedCost{}, ErrUnparseable
	}

	rate, err := n.rates.Rate(code, n.reference)
	if err != nil {
		return model.NormalizedCost{}, ErrUnparseable
	}

	nc := model.NormalizedCost{
		Amount:         amount * rate,
		Currency:       n.reference,
		SourceAmount:   amount,
		SourceCurrency: code,
		Rate:           rate,
		Text:           text,
	}
	if semRe.MatchString(trimmed) && nc.Amount < n.semesterThreshold {
		nc.Amount *= 2
		nc.PerSemester = true
	}
	nc.Amount = round2(nc.Amount)
	return nc, nil
}

// firstAmount finds the leftmost amount with a currency marker on either side.
func firstAmount(text string) (code, raw string, ok bool) {
	best := -1
	if m := prefixRe.FindStringSubmatchIndex(text); m != nil {
		best = m[0]
		code = symbolCodes[strings.ToLower(text[m[2]:m[3]])]
		raw = text[m[4]:m[5]]
	}
	if m := suffixRe.FindStringSubmatchIndex(text); m != nil && (best < 0 || m[0] < best) {
		best = m[0]
		code = symbolCodes[strings.ToLower(text[m[4]:m[5]])]
		raw = text[m[2]:m[3]]
	}
	return code, raw, best >= 0 && code != ""
}

// parseAmount reads "6,000", "140 000", "1.234,50" and "12.5". A final
// separator followed by exactly three digits is a thousands separator.
func parseAmount(raw string) (float64, bool) {
	s := strings.NewReplacer(" ", "", "\u00a0", "").Replace(raw)
	if i := strings.LastIndexAny(s, ",."); i >= 0 && len(s)-i-1 != 3 {
		whole := strings.NewReplacer(",", "", ".", "").Replace(s[:i])
		s = whole + "." + s[i+1:]
	} else {
		s = strings.NewReplacer(",", "", ".", "").Replace(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
