package cost

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/resilience"
)

// ratesPayload is the exchangerate-api style response: units of each
// currency per one unit of Base.
type ratesPayload struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// RateFetcher loads live exchange rates over HTTP.
type RateFetcher struct {
	url    string
	client *http.Client
	policy resilience.Policy
}

// NewRateFetcher creates a fetcher for url. A nil client gets a 10s timeout.
func NewRateFetcher(url string, client *http.Client, policy resilience.Policy) *RateFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetries("exchange_rates")
	}
	return &RateFetcher{url: url, client: client, policy: policy}
}

// Fetch downloads the feed and returns it as EUR-valued Rates.
func (f *RateFetcher) Fetch(ctx context.Context) (Rates, error) {
	payload, err := resilience.RetryValue(ctx, f.policy, f.get)
	if err != nil {
		return nil, eris.Wrap(err, "cost: fetch rates")
	}

	rates, err := payload.toRates()
	if err != nil {
		return nil, err
	}
	zap.L().Info("cost: live rates loaded",
		zap.String("base", payload.Base),
		zap.Int("currencies", len(rates)),
	)
	return rates, nil
}

func (f *RateFetcher) get(ctx context.Context) (ratesPayload, error) {
	var p ratesPayload
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return p, eris.Wrap(err, "cost: build rates request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return p, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckResponse(resp); err != nil {
		return p, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return p, eris.Wrap(err, "cost: decode rates")
	}
	return p, nil
}

// toRates rebases the payload onto EUR.
func (p ratesPayload) toRates() (Rates, error) {
	base := strings.ToUpper(p.Base)
	if base == "" || len(p.Rates) == 0 {
		return nil, eris.New("cost: rates payload missing base or rates")
	}

	perBase := make(map[string]float64, len(p.Rates)+1)
	for k, v := range p.Rates {
		perBase[strings.ToUpper(k)] = v
	}
	perBase[base] = 1

	eurPerBase, ok := perBase["EUR"]
	if !ok || eurPerBase <= 0 {
		return nil, eris.Errorf("cost: rates payload has no EUR quote for base %s", base)
	}

	out := make(Rates, len(perBase))
	for code, units := range perBase {
		if units <= 0 {
			continue
		}
		out[code] = eurPerBase / units
	}
	return out, nil
}
