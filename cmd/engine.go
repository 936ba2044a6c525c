package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/catalog"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/cost"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/pipeline"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/resilience"
	"github.com/National-Cheng-Chi-University-DCT-Dep/personal-publicdata/internal/store"
)

const dateLayout = "2006-01-02"

// loadSnapshot reads the profile, catalog and live data named in the config.
func loadSnapshot() (*catalog.Snapshot, error) {
	return catalog.Load(catalog.Paths{
		Profile:  cfg.Data.ProfilePath,
		Schools:  cfg.Data.SchoolsPath,
		LiveData: cfg.Data.LiveDataPath,
	})
}

// clockFor pins the reference date when today is set.
func clockFor(today string) (func() time.Time, error) {
	if today == "" {
		return time.Now, nil
	}
	t, err := time.Parse(dateLayout, today)
	if err != nil {
		return nil, eris.Wrapf(err, "parse --today %q (want YYYY-MM-DD)", today)
	}
	return func() time.Time { return t }, nil
}

// buildNormalizer layers configured and, optionally, live rates over the
// static table. fallback is the currency used when none is configured.
// A failed live fetch logs and keeps the static rates.
func buildNormalizer(ctx context.Context, fallback string, liveRates bool) (*cost.Normalizer, error) {
	ref := cfg.Currency.Reference
	if ref == "" {
		ref = fallback
	}
	if ref == "" {
		ref = "EUR"
	}

	n, err := cost.NewNormalizer(ref, cost.DefaultRates().Merge(cost.Rates(cfg.Currency.Rates)))
	if err != nil {
		return nil, err
	}
	n = n.WithSemesterThreshold(cfg.Currency.SemesterThreshold)

	if !liveRates {
		return n, nil
	}
	if cfg.Currency.LiveRatesURL == "" {
		zap.L().Warn("live rates requested but currency.live_rates_url is empty; using static rates")
		return n, nil
	}

	policy := resilience.DefaultPolicy()
	if cfg.Currency.RetryAttempts > 0 {
		policy.Attempts = cfg.Currency.RetryAttempts
	}
	client := &http.Client{Timeout: time.Duration(cfg.Currency.TimeoutSecs) * time.Second}
	live, err := cost.NewRateFetcher(cfg.Currency.LiveRatesURL, client, policy).Fetch(ctx)
	if err != nil {
		zap.L().Warn("live rates unavailable; using static rates", zap.Error(err))
		return n, nil
	}
	return n.WithRates(live), nil
}

// newPipeline wires the engine from the loaded config.
func newPipeline(fees *cost.Normalizer, now func() time.Time) *pipeline.Pipeline {
	return pipeline.New(cfg, fees,
		pipeline.WithClock(now),
		pipeline.WithConcurrency(cfg.Batch.MaxConcurrentSchools),
	)
}

// initStore opens the configured run store.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// persistenceEnabled reports whether a store driver is configured.
func persistenceEnabled() bool {
	return cfg.Store.Driver != "" && cfg.Store.Driver != "none"
}
