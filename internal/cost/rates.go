// Package cost turns free-form tuition text into an annual amount in one
// reference currency.
package cost

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Rates maps an ISO currency code to the value of one unit in EUR.
type Rates map[string]float64

// DefaultRates returns the static conversion table. SEK follows the
// 11-kronor-per-euro convention; the rest are cross rates from a TWD table.
func DefaultRates() Rates {
	return Rates{
		"EUR": 1,
		"SEK": 1.0 / 11,
		"USD": 31.5 / 33.5,
		"GBP": 38.5 / 33.5,
		"NOK": 2.8 / 33.5,
		"DKK": 4.5 / 33.5,
		"TWD": 1.0 / 33.5,
	}
}

// Merge returns a copy of r with every entry of other applied on top.
func (r Rates) Merge(other Rates) Rates {
	out := make(Rates, len(r)+len(other))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range other {
		if v > 0 {
			out[strings.ToUpper(k)] = v
		}
	}
	return out
}

// Rate returns the multiplier that converts an amount in from into to.
func (r Rates) Rate(from, to string) (float64, error) {
	f, ok := r[strings.ToUpper(from)]
	if !ok {
		return 0, eris.Errorf("cost: no rate for %s", from)
	}
	t, ok := r[strings.ToUpper(to)]
	if !ok {
		return 0, eris.Errorf("cost: no rate for %s", to)
	}
	return f / t, nil
}

// Convert converts amount from one currency to another.
func (r Rates) Convert(amount float64, from, to string) (float64, error) {
	rate, err := r.Rate(from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// Codes returns the known currency codes in sorted order.
func (r Rates) Codes() []string {
	codes := make([]string, 0, len(r))
	for k := range r {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
